// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Inference.URL = "http://localhost:8000/attention"
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults with endpoint",
			mutate: func(*Config) {},
		},
		{
			name:    "missing endpoint",
			mutate:  func(c *Config) { c.Inference.URL = "" },
			wantErr: "Inference.URL is required",
		},
		{
			name:    "endpoint not http",
			mutate:  func(c *Config) { c.Inference.URL = "ftp://example.com/x" },
			wantErr: "Inference.URL",
		},
		{
			name:    "tick too fast",
			mutate:  func(c *Config) { c.Scheduler.TickInterval = 10 * time.Millisecond },
			wantErr: "Scheduler.TickInterval",
		},
		{
			name:    "unknown capture kind",
			mutate:  func(c *Config) { c.Capture.Kind = "webcam" },
			wantErr: "Capture.Kind must be one of",
		},
		{
			name:    "directory source without directory",
			mutate:  func(c *Config) { c.Capture.Kind = "directory" },
			wantErr: "CAPTURE_DIRECTORY is required",
		},
		{
			name:    "snapshot source without url",
			mutate:  func(c *Config) { c.Capture.Kind = "snapshot" },
			wantErr: "CAPTURE_SNAPSHOT_URL is required",
		},
		{
			name: "snapshot source with url",
			mutate: func(c *Config) {
				c.Capture.Kind = "snapshot"
				c.Capture.SnapshotURL = "http://10.0.0.5/snapshot.jpg"
			},
		},
		{
			name:    "badger gate without path",
			mutate:  func(c *Config) { c.Gate.Path = "" },
			wantErr: "GATE_STORE_PATH is required",
		},
		{
			name: "memory gate without path",
			mutate: func(c *Config) {
				c.Gate.Store = "memory"
				c.Gate.Path = ""
			},
		},
		{
			name:    "nats url with wrong scheme",
			mutate:  func(c *Config) { c.Events.NATSURL = "http://127.0.0.1:4222" },
			wantErr: "scheme must be nats or tls",
		},
		{
			name:   "nats forwarding",
			mutate: func(c *Config) { c.Events.NATSURL = "nats://127.0.0.1:4222" },
		},
		{
			name:   "embedded nats",
			mutate: func(c *Config) { c.Events.EmbeddedNATS = true },
		},
		{
			name: "embedded nats without subject",
			mutate: func(c *Config) {
				c.Events.EmbeddedNATS = true
				c.Events.NATSSubject = ""
			},
			wantErr: "EVENTS_NATS_SUBJECT is required",
		},
		{
			name:    "idle timeout shorter than tick",
			mutate:  func(c *Config) { c.Session.IdleTimeout = 500 * time.Millisecond },
			wantErr: "SESSION_IDLE_TIMEOUT",
		},
		{
			name:    "failure ratio above one",
			mutate:  func(c *Config) { c.Inference.CircuitBreaker.FailureRatio = 1.5 },
			wantErr: "Inference.CircuitBreaker.FailureRatio",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "Logging.Level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestShouldWarnAboutCORS(t *testing.T) {
	cfg := validConfig()
	if cfg.ShouldWarnAboutCORS() {
		t.Error("development mode should not warn")
	}
	cfg.Server.Environment = "production"
	if !cfg.ShouldWarnAboutCORS() {
		t.Error("wildcard origin in production should warn")
	}
	cfg.Security.CORSOrigins = []string{"https://exam.example.com"}
	if cfg.ShouldWarnAboutCORS() {
		t.Error("explicit origins should not warn")
	}
}

func TestServerAddr(t *testing.T) {
	cfg := validConfig()
	if got := cfg.Server.Addr(); got != "0.0.0.0:8085" {
		t.Errorf("Addr() = %q", got)
	}
}
