package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/workradius/internal/adapters/http"
	natsadapter "github.com/samirrijal/workradius/internal/adapters/nats"
	"github.com/samirrijal/workradius/internal/adapters/postgres"
	"github.com/samirrijal/workradius/internal/adapters/valkey"
	"github.com/samirrijal/workradius/internal/core/ports"
	"github.com/samirrijal/workradius/internal/core/usecases"
	"github.com/samirrijal/workradius/internal/pkg/config"
	"github.com/samirrijal/workradius/internal/pkg/logging"
	"github.com/samirrijal/workradius/internal/pkg/metrics"
	"github.com/samirrijal/workradius/internal/pkg/telemetry"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found (using environment variables)")
	}

	cfg, err := config.Load("workradius-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go reportPoolStats(ctx, db)

	// Cache; the services run uncached without it
	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	// NATS; postings are still stored when events cannot be published.
	// The WebSocket feed shares the publisher's connection.
	var (
		publisher ports.EventPublisher
		natsConn  *nats.Conn
	)
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, live feed disabled", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
		natsConn = pub.Conn()
	}

	// Repos
	jobRepo := postgres.NewJobRepo(db)

	// Use cases
	jobSvc := usecases.NewJobService(jobRepo, cacheSvc, publisher, cfg.Matching.CandidatePool)
	suggestionSvc := usecases.NewSuggestionService(jobRepo, cacheSvc, usecases.MatchOptions{
		DefaultRadiusKm: cfg.Matching.DefaultRadiusKm,
		CandidatePool:   cfg.Matching.CandidatePool,
		PoolCacheTTL:    cfg.Matching.PoolCacheTTL,
	})
	jobSvc.SetSuggestions(suggestionSvc)

	deps := &http.Dependencies{
		Jobs:        jobSvc,
		Suggestions: suggestionSvc,
		MaxRadiusKm: cfg.Matching.MaxRadiusKm,
		NATS:        natsConn,
		DB:          db,
		Cache:       cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "workradius API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

// reportPoolStats refreshes the pgx pool gauges until ctx ends.
func reportPoolStats(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateDBPoolMetrics(db.Pool.Stat())
		}
	}
}
