// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

package api

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/proctorlens/internal/config"
	"github.com/tomtom215/proctorlens/internal/models"
	ws "github.com/tomtom215/proctorlens/internal/websocket"
)

// SessionService is the session lifecycle the handlers drive.
// *session.Manager implements it.
type SessionService interface {
	Enter(ctx context.Context, token string) (models.Snapshot, error)
	Activation(ctx context.Context, token string) (bool, error)
	SetActivation(ctx context.Context, token string, enabled bool) error
	Start(ctx context.Context, token string) (models.Snapshot, error)
	Stop(ctx context.Context, token string) (models.Snapshot, error)
	End(ctx context.Context, token string) error
	Snapshot(ctx context.Context, token string) (models.Snapshot, error)
	Touch(token string) error
}

// Pinger is a dependency probed by the readiness check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BreakerStater reports circuit breaker state ("closed", "open", "half-open").
type BreakerStater interface {
	State() string
}

// HandlerConfig holds the dependencies of a Handler.
type HandlerConfig struct {
	Sessions SessionService
	Hub      *ws.Hub
	Security config.SecurityConfig

	// Readiness probes. Nil entries are skipped.
	Gates     Pinger
	Inference Pinger
	Breaker   BreakerStater

	Version string
}

// Handler contains dependencies for API handlers
//
// Handler methods are split across files:
//   - handlers_sessions.go: session lifecycle and snapshot endpoints
//   - handlers_websocket.go: snapshot stream
//   - handlers_health.go: liveness and readiness probes
type Handler struct {
	sessions  SessionService
	hub       *ws.Hub
	security  config.SecurityConfig
	gates     Pinger
	inference Pinger
	breaker   BreakerStater
	version   string
	startTime time.Time
}

// NewHandler creates a Handler.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.Sessions == nil {
		return nil, errors.New("api: session service is required")
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	return &Handler{
		sessions:  cfg.Sessions,
		hub:       cfg.Hub,
		security:  cfg.Security,
		gates:     cfg.Gates,
		inference: cfg.Inference,
		breaker:   cfg.Breaker,
		version:   cfg.Version,
		startTime: time.Now(),
	}, nil
}
