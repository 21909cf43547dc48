// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    logging.Fatal().Err(err).Msg("Failed to load config")
//	}
//	timeout := cfg.Inference.EffectiveTimeout(cfg.Scheduler.TickInterval)
type Config struct {
	Inference InferenceConfig `koanf:"inference"`
	Capture   CaptureConfig   `koanf:"capture"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Gate      GateConfig      `koanf:"gate"`
	Session   SessionConfig   `koanf:"session"`
	Events    EventsConfig    `koanf:"events"`
	Server    ServerConfig    `koanf:"server"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// InferenceConfig describes the external attention inference endpoint.
type InferenceConfig struct {
	URL    string `koanf:"url" validate:"required,http_url"`
	APIKey string `koanf:"api_key"`

	// Timeout bounds a single request. Zero means three tick intervals.
	Timeout time.Duration `koanf:"timeout" validate:"gte=0"`

	// HealthURL is probed by /health/ready when set.
	HealthURL string `koanf:"health_url" validate:"omitempty,http_url"`

	CircuitBreaker CircuitBreakerConfig `koanf:"circuit_breaker"`
}

// EffectiveTimeout returns the configured timeout or three tick intervals.
func (c InferenceConfig) EffectiveTimeout(tick time.Duration) time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return 3 * tick
}

// CircuitBreakerConfig tunes the breaker around the inference client.
type CircuitBreakerConfig struct {
	Enabled bool `koanf:"enabled"`

	// MaxRequests allowed through while half-open.
	MaxRequests uint32 `koanf:"max_requests" validate:"min=1"`

	// Interval is the closed-state window after which counts reset.
	Interval time.Duration `koanf:"interval" validate:"gte=0"`

	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`

	// MinRequests and FailureRatio decide when the breaker trips.
	MinRequests  uint32  `koanf:"min_requests" validate:"min=1"`
	FailureRatio float64 `koanf:"failure_ratio" validate:"gt=0,lte=1"`
}

// CaptureConfig selects and parameterizes the frame source.
type CaptureConfig struct {
	Kind   string `koanf:"kind" validate:"oneof=synthetic directory snapshot"`
	Device string `koanf:"device" validate:"required"`

	Width  int `koanf:"width" validate:"min=16,max=7680"`
	Height int `koanf:"height" validate:"min=16,max=4320"`
	FPS    int `koanf:"fps" validate:"min=1,max=120"`

	// WarmUp delays the first frame after Acquire.
	WarmUp time.Duration `koanf:"warmup" validate:"gte=0"`

	// Directory source.
	Directory string `koanf:"directory"`

	// Snapshot source.
	SnapshotURL     string        `koanf:"snapshot_url" validate:"omitempty,http_url"`
	SnapshotTimeout time.Duration `koanf:"snapshot_timeout" validate:"gt=0"`

	JPEGQuality int `koanf:"jpeg_quality" validate:"min=1,max=100"`
}

// SchedulerConfig holds attention scheduler settings.
type SchedulerConfig struct {
	TickInterval time.Duration `koanf:"tick_interval" validate:"gte=50ms"`
}

// GateConfig holds the activation flag store settings.
type GateConfig struct {
	// Store is "badger" (persists across restarts) or "memory".
	Store string `koanf:"store" validate:"oneof=badger memory"`
	Path  string `koanf:"path"`

	// TTL expires stored flags; zero keeps them until deleted.
	TTL time.Duration `koanf:"ttl" validate:"gte=0"`
}

// SessionConfig holds exam session registry settings.
type SessionConfig struct {
	// IdleTimeout ends sessions that were not touched for this long while
	// not running. Zero disables the sweep.
	IdleTimeout   time.Duration `koanf:"idle_timeout" validate:"gte=0"`
	SweepInterval time.Duration `koanf:"sweep_interval" validate:"gt=0"`
	MaxSessions   int           `koanf:"max_sessions" validate:"min=1"`
}

// EventsConfig holds snapshot event bus settings.
type EventsConfig struct {
	Topic      string `koanf:"topic" validate:"required"`
	BufferSize int64  `koanf:"buffer_size" validate:"min=0"`

	// NATSURL enables forwarding of snapshots to NATS when set.
	NATSURL     string `koanf:"nats_url" validate:"omitempty,url"`
	NATSSubject string `koanf:"nats_subject"`

	// EmbeddedNATS starts an in-process NATS server and forwards to it
	// when no NATSURL is given. EmbeddedPort -1 picks a random port.
	EmbeddedNATS bool `koanf:"embedded_nats"`
	EmbeddedPort int  `koanf:"embedded_port" validate:"gte=-1,lte=65535"`
}

// ForwardingEnabled reports whether snapshots are forwarded to NATS.
func (c EventsConfig) ForwardingEnabled() bool {
	return c.NATSURL != "" || c.EmbeddedNATS
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout         time.Duration `koanf:"timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	Environment     string        `koanf:"environment" validate:"oneof=development staging production"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SecurityConfig holds request throttling and cross-origin settings.
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs" validate:"min=1"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level" validate:"oneof=trace debug info warn error"`

	// Format is json or console.
	Format string `koanf:"format" validate:"oneof=json console"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// Load reads configuration from defaults, an optional config file, and the
// environment, then validates it.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
