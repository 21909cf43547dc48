// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are tried in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/proctorlens/config.yaml",
	"/etc/proctorlens/config.yml",
}

// ConfigPathEnvVar names a config file to load ahead of DefaultConfigPaths.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Inference: InferenceConfig{
			URL:     "",
			Timeout: 0, // 3x tick interval
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:      true,
				MaxRequests:  1,
				Interval:     time.Minute,
				Timeout:      30 * time.Second,
				MinRequests:  10,
				FailureRatio: 0.6,
			},
		},
		Capture: CaptureConfig{
			Kind:            "synthetic",
			Device:          "camera0",
			Width:           640,
			Height:          480,
			FPS:             15,
			WarmUp:          0,
			SnapshotTimeout: 2 * time.Second,
			JPEGQuality:     80,
		},
		Scheduler: SchedulerConfig{
			TickInterval: time.Second,
		},
		Gate: GateConfig{
			Store: "badger",
			Path:  "/data/gate",
			TTL:   0,
		},
		Session: SessionConfig{
			IdleTimeout:   4 * time.Hour,
			SweepInterval: time.Minute,
			MaxSessions:   64,
		},
		Events: EventsConfig{
			Topic:        "attention.snapshot",
			BufferSize:   256,
			NATSURL:      "",
			NATSSubject:  "proctorlens.attention.snapshot",
			EmbeddedNATS: false,
			EmbeddedPort: 4222,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8085,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		Security: SecurityConfig{
			RateLimitReqs:     120,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf layers built-in defaults, an optional YAML file and mapped
// environment variables, later layers winning, then validates the result.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	type layer struct {
		name   string
		load   func() error
		enable bool
	}
	path := findConfigFile()
	layers := []layer{
		{"defaults", func() error { return k.Load(structs.Provider(defaultConfig(), "koanf"), nil) }, true},
		{"file " + path, func() error { return k.Load(file.Provider(path), yaml.Parser()) }, path != ""},
		{"environment", func() error { return k.Load(env.Provider("", ".", envTransformFunc), nil) }, true},
		{"list fields", func() error { return splitListFields(k) }, true},
	}
	for _, l := range layers {
		if !l.enable {
			continue
		}
		if err := l.load(); err != nil {
			return nil, fmt.Errorf("config %s: %w", l.name, err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile prefers CONFIG_PATH, then the first of DefaultConfigPaths
// that exists. A CONFIG_PATH naming a missing file is ignored.
func findConfigFile() string {
	candidates := DefaultConfigPaths
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		candidates = append([]string{p}, candidates...)
	}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// listFields arrive from the environment as comma-separated strings.
var listFields = []string{"security.cors_origins"}

func splitListFields(k *koanf.Koanf) error {
	for _, key := range listFields {
		raw, ok := k.Get(key).(string)
		if !ok {
			continue
		}
		var items []string
		for _, item := range strings.Split(raw, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		if len(items) == 0 {
			continue
		}
		if err := k.Set(key, items); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to koanf paths.
var envMappings = map[string]string{
	// Inference endpoint
	"inference_url":                   "inference.url",
	"inference_api_key":               "inference.api_key",
	"inference_timeout":               "inference.timeout",
	"inference_health_url":            "inference.health_url",
	"inference_breaker_enabled":       "inference.circuit_breaker.enabled",
	"inference_breaker_max_requests":  "inference.circuit_breaker.max_requests",
	"inference_breaker_interval":      "inference.circuit_breaker.interval",
	"inference_breaker_timeout":       "inference.circuit_breaker.timeout",
	"inference_breaker_min_requests":  "inference.circuit_breaker.min_requests",
	"inference_breaker_failure_ratio": "inference.circuit_breaker.failure_ratio",

	// Capture
	"capture_kind":             "capture.kind",
	"capture_device":           "capture.device",
	"capture_width":            "capture.width",
	"capture_height":           "capture.height",
	"capture_fps":              "capture.fps",
	"capture_warmup":           "capture.warmup",
	"capture_directory":        "capture.directory",
	"capture_snapshot_url":     "capture.snapshot_url",
	"capture_snapshot_timeout": "capture.snapshot_timeout",
	"jpeg_quality":             "capture.jpeg_quality",

	// Scheduler
	"tick_interval": "scheduler.tick_interval",

	// Activation gate
	"gate_store":      "gate.store",
	"gate_store_path": "gate.path",
	"gate_ttl":        "gate.ttl",

	// Sessions
	"session_idle_timeout":   "session.idle_timeout",
	"session_sweep_interval": "session.sweep_interval",
	"session_max":            "session.max_sessions",

	// Events
	"events_topic":        "events.topic",
	"events_buffer_size":  "events.buffer_size",
	"events_nats_url":     "events.nats_url",
	"events_nats_subject": "events.nats_subject",
	"nats_embedded":       "events.embedded_nats",
	"nats_embedded_port":  "events.embedded_port",

	// Server
	"http_host":        "server.host",
	"http_port":        "server.port",
	"http_timeout":     "server.timeout",
	"shutdown_timeout": "server.shutdown_timeout",
	"environment":      "server.environment",

	// Security
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable to its koanf path. Unmapped
// variables yield "" and are skipped by the env provider.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
