// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/tomtom215/proctorlens/internal/config"
	"github.com/tomtom215/proctorlens/internal/events"
	"github.com/tomtom215/proctorlens/internal/logging"
)

// EventComponents holds the snapshot bus and its optional NATS sinks.
type EventComponents struct {
	Bus       *events.Bus
	Forwarder *events.NATSForwarder
	Embedded  *events.EmbeddedServer

	mu     sync.Mutex
	closed bool
}

// InitEvents creates the snapshot bus. When forwarding is enabled it also
// starts the embedded NATS server (if no external URL is configured) and
// attaches a forwarder. Subscribers must be added before the bus is served.
func InitEvents(cfg config.EventsConfig, logger watermill.LoggerAdapter) (*EventComponents, error) {
	bus, err := events.NewBus(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create event bus: %w", err)
	}
	c := &EventComponents{Bus: bus}

	if !cfg.ForwardingEnabled() {
		logging.Info().Str("topic", cfg.Topic).Msg("Snapshot bus initialized (NATS forwarding disabled)")
		return c, nil
	}

	url := cfg.NATSURL
	if url == "" {
		c.Embedded, err = events.NewEmbeddedServer(cfg.EmbeddedPort)
		if err != nil {
			c.Close(context.Background())
			return nil, fmt.Errorf("start embedded NATS: %w", err)
		}
		url = c.Embedded.ClientURL()
		logging.Info().Str("url", url).Msg("Embedded NATS server started")
	}

	c.Forwarder, err = events.NewNATSForwarder(events.ForwarderConfig{
		URL:     url,
		Subject: cfg.NATSSubject,
	}, logger)
	if err != nil {
		c.Close(context.Background())
		return nil, fmt.Errorf("create NATS forwarder: %w", err)
	}
	if err := c.Forwarder.Attach(bus); err != nil {
		c.Close(context.Background())
		return nil, fmt.Errorf("attach NATS forwarder: %w", err)
	}

	logging.Info().
		Str("topic", cfg.Topic).
		Str("subject", cfg.NATSSubject).
		Bool("embedded", c.Embedded != nil).
		Msg("Snapshot bus initialized with NATS forwarding")
	return c, nil
}

// Close releases the forwarder, the bus and the embedded server, in that
// order. It is safe to call more than once. The embedded server is normally
// shut down by its supervisor service first.
func (c *EventComponents) Close(ctx context.Context) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true

	if c.Forwarder != nil {
		if err := c.Forwarder.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing NATS forwarder")
		}
	}
	if c.Bus != nil {
		if err := c.Bus.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing event bus")
		}
	}
	if c.Embedded != nil && c.Embedded.IsRunning() {
		if err := c.Embedded.Shutdown(ctx); err != nil {
			logging.Warn().Err(err).Msg("Error shutting down embedded NATS")
		}
	}
}
