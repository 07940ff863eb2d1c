package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/samirrijal/workradius/internal/adapters/postgres"
	"github.com/samirrijal/workradius/internal/pkg/config"
)

var migrationsDir string

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found (using environment variables)")
	}

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the workradius database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&migrationsDir, "dir", "migrations", "directory holding NNN_name.sql files")

	root.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, db *postgres.DB) error {
				return runMigrations(ctx, db, migrationsDir, cmd.OutOrStdout())
			})
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "seed <file.json>",
		Short: "Insert job postings from a JSON array",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := loadSeed(args[0])
			if err != nil {
				return err
			}
			return withDB(cmd.Context(), func(ctx context.Context, db *postgres.DB) error {
				if err := postgres.NewJobRepo(db).CreateBatch(ctx, jobs); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %d jobs from %s\n", len(jobs), args[0])
				return nil
			})
		},
	})

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

func withDB(ctx context.Context, fn func(context.Context, *postgres.DB) error) error {
	cfg, err := config.Load("workradius-migrate")
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN(), 2)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer db.Close()

	return fn(ctx, db)
}
