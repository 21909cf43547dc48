// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

package services

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/proctorlens/internal/logging"
)

// ErrNATSNotRunning is returned when the embedded server is found stopped.
var ErrNATSNotRunning = errors.New("embedded NATS server not running")

// NATSServer is satisfied by *events.EmbeddedServer.
type NATSServer interface {
	IsRunning() bool
	Shutdown(ctx context.Context) error
}

// EmbeddedNATSService owns the shutdown of an already started embedded
// NATS server. The server is started before the tree so the snapshot
// forwarder can connect during wiring; a restart of this service cannot
// bring it back, so a dead server ends supervision of it.
type EmbeddedNATSService struct {
	server          NATSServer
	checkInterval   time.Duration
	shutdownTimeout time.Duration
}

// NewEmbeddedNATSService wraps server with a 5s health check interval.
func NewEmbeddedNATSService(server NATSServer) *EmbeddedNATSService {
	return &EmbeddedNATSService{
		server:          server,
		checkInterval:   5 * time.Second,
		shutdownTimeout: defaultShutdownTimeout,
	}
}

// Serve implements suture.Service.
func (s *EmbeddedNATSService) Serve(ctx context.Context) error {
	if !s.server.IsRunning() {
		return ErrNATSNotRunning
	}

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
			defer cancel()
			if err := s.server.Shutdown(shutdownCtx); err != nil {
				logging.Warn().Err(err).Msg("Embedded NATS shutdown incomplete")
			}
			return ctx.Err()
		case <-ticker.C:
			if !s.server.IsRunning() {
				logging.Error().Msg("Embedded NATS server stopped unexpectedly")
				return ErrNATSNotRunning
			}
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (s *EmbeddedNATSService) String() string {
	return "embedded-nats"
}
