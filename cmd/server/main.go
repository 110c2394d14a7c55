// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/tomtom215/roadpulse/internal/api"
	"github.com/tomtom215/roadpulse/internal/config"
	"github.com/tomtom215/roadpulse/internal/database"
	"github.com/tomtom215/roadpulse/internal/detection"
	"github.com/tomtom215/roadpulse/internal/ingest"
	"github.com/tomtom215/roadpulse/internal/logging"
	"github.com/tomtom215/roadpulse/internal/metrics"
	"github.com/tomtom215/roadpulse/internal/routing"
	"github.com/tomtom215/roadpulse/internal/segment"
	"github.com/tomtom215/roadpulse/internal/supervisor"
	"github.com/tomtom215/roadpulse/internal/supervisor/services"
	ws "github.com/tomtom215/roadpulse/internal/websocket"
)

//nolint:gocyclo // sequential startup
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Str("version", api.BuildInfo().Version).
		Str("ingest_mode", cfg.Ingest.Mode).
		Str("db_path", cfg.Database.Path).
		Str("osrm_url", cfg.Routing.URL).
		Msg("Starting Roadpulse")

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Roadpulse stopped with error")
	}
	logging.Info().Msg("Application stopped gracefully")
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized successfully")

	if cfg.Database.SeedMockData {
		logging.Info().Msg("Mock data seeding enabled (SEED_MOCK_DATA=true)")
		if err := db.SeedMockData(ctx, time.Now()); err != nil {
			return err
		}
	}

	segmentCache, closeCache, err := initSegmentCache(&cfg.Segment)
	if err != nil {
		return err
	}
	defer closeCache()

	osrm := routing.NewClient(&cfg.Routing)
	resolver := segment.NewResolver(osrm, segmentCache)
	osrm.SetSegmentResolver(resolver)
	if osrm.IsAvailable(ctx) {
		logging.Info().Str("url", cfg.Routing.URL).Msg("OSRM reachable")
	} else {
		logging.Warn().Str("url", cfg.Routing.URL).Msg("OSRM unreachable, positions will be stored unsnapped until it recovers")
	}

	verifier, err := initVerifier(cfg, db)
	if err != nil {
		return err
	}

	warnInsecureSettings(cfg)

	hub := ws.NewHub()

	natsComponents, err := InitNATS(&cfg.NATS)
	if err != nil {
		return err
	}
	defer natsComponents.Close()

	sinks := []ingest.Sink{hub}
	if pub := natsComponents.Publisher(); pub != nil {
		sinks = append(sinks, pub)
	}
	listener, err := ingest.NewListener(&cfg.Ingest, verifier, osrm, db, ingest.WithSinks(sinks...))
	if err != nil {
		return err
	}

	detector := detection.NewDetector(db)
	handler := api.NewHandler(cfg, db, detector, resolver, osrm, hub)
	router := api.NewRouter(handler, api.NewChiMiddleware(api.NewChiMiddlewareConfig(&cfg.Security)))

	server := &http.Server{
		Handler:           router.SetupChi(),
		ReadTimeout:       cfg.Server.Timeout,
		ReadHeaderTimeout: cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	metrics.AppInfo.WithLabelValues(api.BuildInfo().Version, runtime.Version(), cfg.Ingest.Mode).Set(1)

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return err
	}

	tree.AddIngestService(listener)
	tree.AddMessagingService(hub)
	natsComponents.AddToSupervisor(tree)
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.HTTPAddr(), cfg.Server.ShutdownTimeout))
	logging.Info().
		Str("http_addr", cfg.HTTPAddr()).
		Str("ingest_addr", cfg.IngestAddr()).
		Msg("Services added to supervisor tree")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// the channel delivers exactly one value and is never closed
	treeErr := <-errCh
	if errors.Is(treeErr, context.Canceled) {
		treeErr = nil
	} else if treeErr != nil {
		logging.Error().Err(treeErr).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}
	return treeErr
}
