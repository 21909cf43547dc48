// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

/*
Package metrics provides Prometheus instrumentation for Proctorlens.

All collectors are registered with the default registry through promauto and
exposed on /metrics by the API router.

# Attention Pipeline

  - attention_ticks_total{outcome}: sent, skipped, device_lost
  - attention_ticks_skipped_total{reason}: in_flight, no_frame, encoding, capture
  - attention_requests_total{result}: success, network, malformed, canceled, other
  - attention_request_duration_seconds
  - attention_in_flight
  - attention_publishes_total
  - attention_discarded_responses_total: results that arrived after Stop
  - attention_sessions_active, attention_sessions, attention_sessions_expired_total

A steadily rising attention_ticks_skipped_total{reason="in_flight"} means the
inference endpoint is slower than the tick interval.

# Capture and Encoding

  - capture_device_acquisitions_total{result}: success, busy, unavailable
  - capture_frames_dropped_total{source}
  - frame_encode_duration_seconds

# Circuit Breaker

  - circuit_breaker_state{name}: 0=closed, 1=half-open, 2=open
  - circuit_breaker_requests_total{name,result}
  - circuit_breaker_consecutive_failures{name}
  - circuit_breaker_state_transitions_total{name,from_state,to_state}

# API, WebSocket and Events

  - api_requests_total, api_request_duration_seconds, api_active_requests, api_rate_limit_hits_total
  - websocket_connections_active, websocket_messages_sent_total, websocket_messages_dropped_total
  - gate_store_operations_total{operation,result}
  - events_published_total{sink,result}

Example alert:

	- alert: AttentionInferenceDown
	  expr: circuit_breaker_state{name="attention-inference"} == 2
	  for: 1m
*/
package metrics
