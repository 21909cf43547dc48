// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

/*
Package main is the entry point for the Proctorlens server.

Proctorlens monitors candidate attention during an online exam. While an
exam session is active and monitoring is enabled for it, the server samples
the camera once per tick, encodes the frame as JPEG, sends it to an external
attention inference endpoint and publishes the latest metrics to proctor
dashboards over WebSocket.

# Application Architecture

	RootSupervisor ("proctorlens")
	├── StorageSupervisor ("storage-layer")
	│   ├── gate-store-gc (BadgerDB value-log GC)
	│   └── embedded-nats (NATS_EMBEDDED=true)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── snapshot-bus (watermill GoChannel router)
	│   ├── websocket-hub
	│   └── session-manager (idle sweep, owns the attention schedulers)
	└── APISupervisor ("api-layer")
	    └── http-server

Initialization order:

 1. Configuration: Koanf v2 (defaults, optional config.yaml, environment)
 2. Logging: zerolog
 3. Activation flag store: BadgerDB or memory
 4. Capture: frame source factory and device registry
 5. Inference: HTTP client behind a gobreaker circuit breaker
 6. Events: snapshot bus, optional NATS forwarding
 7. WebSocket hub subscribed to the bus
 8. Session manager
 9. Chi router and HTTP server
 10. Supervisor tree

# Configuration

Commonly used environment variables:

	INFERENCE_URL         attention inference endpoint (required)
	INFERENCE_API_KEY     bearer token for the endpoint
	TICK_INTERVAL         sampling period (default 1s)
	CAPTURE_KIND          synthetic, directory or snapshot
	CAPTURE_DEVICE        device identifier claimed by one session at a time
	GATE_STORE            badger (default) or memory
	GATE_STORE_PATH       BadgerDB directory
	EVENTS_NATS_URL       forward snapshots to an external NATS server
	NATS_EMBEDDED         forward snapshots to an in-process NATS server
	HTTP_PORT             listen port (default 8085)
	CORS_ORIGINS          allowed dashboard origins, comma separated

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains for
SHUTDOWN_TIMEOUT, the session manager stops every scheduler and releases
every camera, and the hub closes viewer connections.

# Example Usage

	export INFERENCE_URL=http://inference:9000/v1/attention
	export CAPTURE_KIND=snapshot
	export CAPTURE_SNAPSHOT_URL=http://camera.local/snapshot.jpg
	export CORS_ORIGINS=https://proctor.example.edu
	./proctorlens
*/
package main
