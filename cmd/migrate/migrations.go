package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/workradius/internal/adapters/postgres"
	"github.com/samirrijal/workradius/internal/core/domain"
)

// migrationFiles returns the .sql files in dir sorted by name.
func migrationFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no migrations in %s", dir)
	}
	sort.Strings(files)
	return files, nil
}

func runMigrations(ctx context.Context, db *postgres.DB, dir string, out io.Writer) error {
	files, err := migrationFiles(dir)
	if err != nil {
		return err
	}

	if _, err := db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name       TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied := 0
	for _, f := range files {
		name := filepath.Base(f)
		done, err := isApplied(ctx, db, name)
		if err != nil {
			return err
		}
		if done {
			continue
		}

		data, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("read %s: %w", f, err)
		}
		if err := pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, string(data)); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, name)
			return err
		}); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}

		fmt.Fprintf(out, "OK  %s\n", name)
		applied++
	}

	fmt.Fprintf(out, "%d migration(s) applied\n", applied)
	return nil
}

func isApplied(ctx context.Context, db *postgres.DB, name string) (bool, error) {
	var exists bool
	err := db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE name = $1)`, name,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check %s: %w", name, err)
	}
	return exists, nil
}

// loadSeed reads a JSON array of postings. Missing ids are generated and
// titles are required.
func loadSeed(path string) ([]domain.JobPosting, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	var jobs []domain.JobPosting
	if err := json.Unmarshal(data, &jobs); err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}
	for i := range jobs {
		if strings.TrimSpace(jobs[i].Title) == "" {
			return nil, fmt.Errorf("seed %s: job %d has no title", path, i)
		}
		if jobs[i].ID == "" {
			jobs[i].ID = uuid.NewString()
		}
	}
	return jobs, nil
}
