package main

import (
	"context"
	"log"
	"log/slog"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/workradius/internal/adapters/geocoder"
	natsadapter "github.com/samirrijal/workradius/internal/adapters/nats"
	"github.com/samirrijal/workradius/internal/adapters/postgres"
	"github.com/samirrijal/workradius/internal/adapters/valkey"
	"github.com/samirrijal/workradius/internal/core/ports"
	"github.com/samirrijal/workradius/internal/core/usecases"
	"github.com/samirrijal/workradius/internal/pkg/config"
	"github.com/samirrijal/workradius/internal/pkg/logging"
	"github.com/samirrijal/workradius/internal/pkg/telemetry"
	"github.com/samirrijal/workradius/internal/workflows"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found (using environment variables)")
	}

	cfg, err := config.Load("workradius-geotagger")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	if !cfg.Geocoder.Enabled {
		slog.Info("geocoder disabled, nothing to do")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	var cacheSvc ports.CacheService
	if cache, err := valkey.New(cfg.Valkey.Addr); err != nil {
		slog.Warn("valkey unavailable, cached pools expire by TTL only", "error", err)
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats publisher: %v", err)
	}
	defer pub.Close()

	geotagSvc := usecases.NewGeotagService(
		postgres.NewJobRepo(db),
		geocoder.NewOpenStreetMap(cfg.Geocoder.BaseURL),
		cacheSvc,
		pub,
		cfg.Matching.CandidatePool,
	)

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	// Start a workflow for each new posting that has location text only
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL, "geotagger")
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer sub.Close()

	if err := workflows.ListenForPostings(ctx, sub, c, cfg.Temporal.TaskQueue); err != nil {
		log.Fatalf("subscribe: %v", err)
	}

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.GeotagWorkflow)
	w.RegisterActivity(&workflows.GeotagActivities{Geotag: geotagSvc})

	slog.Info("geotagger worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
