// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

package config

import (
	"fmt"
	"net/url"

	"github.com/tomtom215/proctorlens/internal/validation"
)

// Validate checks struct tag constraints and the cross-field rules.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}

	if err := c.validateCapture(); err != nil {
		return err
	}
	if err := c.validateGate(); err != nil {
		return err
	}
	if err := c.validateEvents(); err != nil {
		return err
	}
	return c.validateSession()
}

func (c *Config) validateCapture() error {
	switch c.Capture.Kind {
	case "directory":
		if c.Capture.Directory == "" {
			return fmt.Errorf("CAPTURE_DIRECTORY is required when CAPTURE_KIND=directory")
		}
	case "snapshot":
		if c.Capture.SnapshotURL == "" {
			return fmt.Errorf("CAPTURE_SNAPSHOT_URL is required when CAPTURE_KIND=snapshot")
		}
	}
	return nil
}

func (c *Config) validateGate() error {
	if c.Gate.Store == "badger" && c.Gate.Path == "" {
		return fmt.Errorf("GATE_STORE_PATH is required when GATE_STORE=badger")
	}
	return nil
}

func (c *Config) validateEvents() error {
	if !c.Events.ForwardingEnabled() {
		return nil
	}
	if c.Events.NATSURL != "" {
		u, err := url.Parse(c.Events.NATSURL)
		if err != nil {
			return fmt.Errorf("EVENTS_NATS_URL failed to parse URL: %w", err)
		}
		if u.Scheme != "nats" && u.Scheme != "tls" {
			return fmt.Errorf("EVENTS_NATS_URL scheme must be nats or tls, got: %s", u.Scheme)
		}
	}
	if c.Events.NATSSubject == "" {
		return fmt.Errorf("EVENTS_NATS_SUBJECT is required when NATS forwarding is enabled")
	}
	return nil
}

func (c *Config) validateSession() error {
	if c.Session.IdleTimeout > 0 && c.Session.IdleTimeout < c.Scheduler.TickInterval {
		return fmt.Errorf("SESSION_IDLE_TIMEOUT (%v) must not be shorter than TICK_INTERVAL (%v)",
			c.Session.IdleTimeout, c.Scheduler.TickInterval)
	}
	return nil
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// ShouldWarnAboutCORS reports a wildcard CORS origin in production.
func (c *Config) ShouldWarnAboutCORS() bool {
	if !c.IsProduction() {
		return false
	}
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}
