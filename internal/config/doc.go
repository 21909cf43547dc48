// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

/*
Package config provides layered configuration for Proctorlens.

Configuration is loaded with Koanf v2 in three layers, later layers winning:

 1. Built-in defaults (defaultConfig)
 2. Optional YAML file: $CONFIG_PATH, ./config.yaml, /etc/proctorlens/config.yaml
 3. Environment variables, mapped explicitly by envTransformFunc

Unmapped environment variables are ignored.

# Sections

  - inference: attention inference endpoint, API key, request timeout, circuit breaker
  - capture: frame source kind and device parameters, JPEG quality
  - scheduler: tick interval
  - gate: activation flag store (badger or memory)
  - session: idle expiry of exam sessions
  - events: snapshot event bus and optional NATS forwarding
  - server: HTTP listener
  - security: rate limiting and CORS
  - logging: zerolog level and format

# Environment Variables

	INFERENCE_URL            Attention inference endpoint (required)
	INFERENCE_API_KEY        Bearer token sent to the endpoint
	INFERENCE_TIMEOUT        Per-request timeout (default: 3x TICK_INTERVAL)
	TICK_INTERVAL            Scheduler tick period (default: 1s)
	CAPTURE_KIND             synthetic, directory or snapshot (default: synthetic)
	CAPTURE_DEVICE           Device identifier used for exclusive claims
	CAPTURE_DIRECTORY        Frame directory for the directory source
	CAPTURE_SNAPSHOT_URL     Snapshot endpoint for the snapshot source
	GATE_STORE               badger or memory (default: badger)
	GATE_STORE_PATH          BadgerDB directory (default: /data/gate)
	EVENTS_NATS_URL          Forward snapshots to this NATS server when set
	HTTP_HOST, HTTP_PORT     Listener address (default: 0.0.0.0:8085)
	LOG_LEVEL, LOG_FORMAT    Logging (default: info, json)

See envTransformFunc for the complete list.

# Validation

Validate runs the shared go-playground validator over the struct tags and then
applies the rules that depend on several fields, such as the directory source
requiring CAPTURE_DIRECTORY. Config is immutable after Load and safe for
concurrent reads.
*/
package config
