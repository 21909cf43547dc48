// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/proctorlens/internal/api"
	"github.com/tomtom215/proctorlens/internal/capture"
	"github.com/tomtom215/proctorlens/internal/config"
	"github.com/tomtom215/proctorlens/internal/encoding"
	"github.com/tomtom215/proctorlens/internal/gate"
	"github.com/tomtom215/proctorlens/internal/inference"
	"github.com/tomtom215/proctorlens/internal/logging"
	"github.com/tomtom215/proctorlens/internal/session"
	"github.com/tomtom215/proctorlens/internal/supervisor"
	"github.com/tomtom215/proctorlens/internal/supervisor/services"
	ws "github.com/tomtom215/proctorlens/internal/websocket"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

//nolint:gocyclo // Sequential wiring of every component
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", version).
		Str("capture", cfg.Capture.Kind).
		Str("device", cfg.Capture.Device).
		Dur("tick_interval", cfg.Scheduler.TickInterval).
		Str("gate_store", cfg.Gate.Store).
		Msg("Starting Proctorlens with supervisor tree")

	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("CORS allows any origin (CORS_ORIGINS=*); WebSocket viewers from any site will be accepted")
	}
	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}

	// Activation flags
	storeFactory, err := gate.NewStoreFactory(gate.StoreType(cfg.Gate.Store), cfg.Gate.Path)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open activation flag store")
	}
	defer func() {
		if err := storeFactory.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing activation flag store")
		}
	}()
	gates := storeFactory.CreateStore(cfg.Gate.TTL)

	// Capture
	newSource, err := capture.NewFactory(cfg.Capture, capture.NewRegistry())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to configure frame source")
	}

	// Inference
	rawClient := inference.NewClient(inference.ClientConfig{
		URL:       cfg.Inference.URL,
		APIKey:    cfg.Inference.APIKey,
		Timeout:   cfg.Inference.EffectiveTimeout(cfg.Scheduler.TickInterval),
		HealthURL: cfg.Inference.HealthURL,
	})
	var (
		client  inference.AttentionClient = rawClient
		pinger  api.Pinger                = rawClient
		breaker api.BreakerStater
	)
	if cfg.Inference.CircuitBreaker.Enabled {
		cb := inference.NewCircuitBreakerClient(rawClient, cfg.Inference.CircuitBreaker)
		client, pinger, breaker = cb, cb, cb
		logging.Info().
			Uint32("min_requests", cfg.Inference.CircuitBreaker.MinRequests).
			Float64("failure_ratio", cfg.Inference.CircuitBreaker.FailureRatio).
			Dur("open_timeout", cfg.Inference.CircuitBreaker.Timeout).
			Msg("Inference circuit breaker enabled")
	}

	// Events
	eventComponents, err := InitEvents(cfg.Events, logging.NewWatermillAdapter())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize snapshot events")
	}
	defer eventComponents.Close(context.Background())

	wsHub := ws.NewHub()
	if err := eventComponents.Bus.Subscribe("websocket-hub", wsHub.HandleSnapshot); err != nil {
		logging.Fatal().Err(err).Msg("Failed to subscribe WebSocket hub to snapshots")
	}

	manager, err := session.NewManager(session.Config{
		TickInterval:  cfg.Scheduler.TickInterval,
		IdleTimeout:   cfg.Session.IdleTimeout,
		SweepInterval: cfg.Session.SweepInterval,
		MaxSessions:   cfg.Session.MaxSessions,
		Gates:         gates,
		NewSource:     newSource,
		Encoder:       encoding.NewJPEGEncoder(cfg.Capture.JPEGQuality),
		Client:        client,
		Publisher:     eventComponents.Bus,
		Ended:         wsHub.BroadcastSessionEnded,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create session manager")
	}

	handler, err := api.NewHandler(api.HandlerConfig{
		Sessions:  manager,
		Hub:       wsHub,
		Security:  cfg.Security,
		Gates:     gates,
		Inference: pinger,
		Breaker:   breaker,
		Version:   version,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create API handler")
	}
	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(cfg.Security)))

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadTimeout:       cfg.Server.Timeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	// Storage layer
	tree.AddStorageService(storeFactory)
	if eventComponents.Embedded != nil {
		tree.AddStorageService(services.NewEmbeddedNATSService(eventComponents.Embedded))
	}

	// Messaging layer
	tree.AddMessagingService(eventComponents.Bus)
	tree.AddMessagingService(wsHub)
	tree.AddMessagingService(manager)

	// API layer
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Application stopped gracefully")
}
