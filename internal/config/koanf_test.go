// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// setRequiredEnv sets the minimum environment for a loadable config.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("INFERENCE_URL", "http://localhost:8000/api/v1/attention")
	t.Setenv("GATE_STORE", "memory")
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Scheduler.TickInterval != time.Second {
		t.Errorf("Scheduler.TickInterval = %v, want 1s", cfg.Scheduler.TickInterval)
	}
	if cfg.Capture.Kind != "synthetic" {
		t.Errorf("Capture.Kind = %q, want synthetic", cfg.Capture.Kind)
	}
	if cfg.Gate.Store != "badger" {
		t.Errorf("Gate.Store = %q, want badger", cfg.Gate.Store)
	}
	if cfg.Events.Topic != "attention.snapshot" {
		t.Errorf("Events.Topic = %q", cfg.Events.Topic)
	}
	if cfg.Events.ForwardingEnabled() {
		t.Error("NATS forwarding should be off by default")
	}
	if cfg.Server.Port != 8085 {
		t.Errorf("Server.Port = %d, want 8085", cfg.Server.Port)
	}
	if !cfg.Inference.CircuitBreaker.Enabled {
		t.Error("circuit breaker should be enabled by default")
	}
}

func TestEffectiveTimeout(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		tick    time.Duration
		want    time.Duration
	}{
		{"derived from tick", 0, time.Second, 3 * time.Second},
		{"derived from fast tick", 0, 200 * time.Millisecond, 600 * time.Millisecond},
		{"explicit", 5 * time.Second, time.Second, 5 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := InferenceConfig{Timeout: tt.timeout}
			if got := c.EffectiveTimeout(tt.tick); got != tt.want {
				t.Errorf("EffectiveTimeout() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"INFERENCE_URL", "inference.url"},
		{"TICK_INTERVAL", "scheduler.tick_interval"},
		{"CAPTURE_KIND", "capture.kind"},
		{"GATE_STORE_PATH", "gate.path"},
		{"EVENTS_NATS_URL", "events.nats_url"},
		{"NATS_EMBEDDED", "events.embedded_nats"},
		{"HTTP_PORT", "server.port"},
		{"LOG_LEVEL", "logging.level"},
		{"HOME", ""},
		{"PATH", ""},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			if got := envTransformFunc(tt.env); got != tt.want {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.env, got, tt.want)
			}
		})
	}
}

func TestLoadWithKoanf_EnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TICK_INTERVAL", "500ms")
	t.Setenv("CAPTURE_FPS", "30")
	t.Setenv("INFERENCE_BREAKER_ENABLED", "false")
	t.Setenv("CORS_ORIGINS", "https://exam.example.com, https://proctor.example.com")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Inference.URL != "http://localhost:8000/api/v1/attention" {
		t.Errorf("Inference.URL = %q", cfg.Inference.URL)
	}
	if cfg.Scheduler.TickInterval != 500*time.Millisecond {
		t.Errorf("Scheduler.TickInterval = %v, want 500ms", cfg.Scheduler.TickInterval)
	}
	if cfg.Capture.FPS != 30 {
		t.Errorf("Capture.FPS = %d, want 30", cfg.Capture.FPS)
	}
	if cfg.Inference.CircuitBreaker.Enabled {
		t.Error("circuit breaker should be disabled by env")
	}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[1] != "https://proctor.example.com" {
		t.Errorf("Security.CORSOrigins = %v", cfg.Security.CORSOrigins)
	}
	if got := cfg.Inference.EffectiveTimeout(cfg.Scheduler.TickInterval); got != 1500*time.Millisecond {
		t.Errorf("EffectiveTimeout = %v, want 1.5s", got)
	}
}

func TestLoadWithKoanf_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlContent := `
inference:
  url: http://inference.internal:9000/attention
  api_key: from-file
capture:
  kind: directory
  directory: /srv/frames
gate:
  store: memory
server:
  port: 9090
`
	if err := os.WriteFile(path, []byte(yamlContent), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("INFERENCE_API_KEY", "from-env")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Capture.Kind != "directory" || cfg.Capture.Directory != "/srv/frames" {
		t.Errorf("Capture = %+v", cfg.Capture)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Inference.APIKey != "from-env" {
		t.Errorf("env should override file, got APIKey %q", cfg.Inference.APIKey)
	}
	if cfg.Capture.JPEGQuality != 80 {
		t.Errorf("unset fields keep defaults, got JPEGQuality %d", cfg.Capture.JPEGQuality)
	}
}

func TestLoadWithKoanf_MissingInferenceURL(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("INFERENCE_URL", "")
	t.Setenv("GATE_STORE", "memory")

	if _, err := LoadWithKoanf(); err == nil {
		t.Fatal("expected error when INFERENCE_URL is missing")
	}
}
