// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

/*
Package inference is the client side of the attention inference service.

Each call POSTs one encoded frame with its sequence number:

	POST <url>
	Content-Type: application/json
	Authorization: Bearer <api key>   (when configured)
	X-Request-ID: <uuid>

	{"frame_number": 42, "image_base64": "/9j/4AAQ..."}

and expects a JSON object whose fields are all optional:

	{"face_detected": true, "attention_level": "high", "attention_score": 0.91, ...}

# Errors

  - ErrNetwork: transport failure, timeout, cancellation, or a non-2xx status
    (status and up to 64 KiB of body are included in the message)
  - ErrMalformedResponse: body is not a JSON object or a field has the wrong type

There are no retries. A failed frame is simply superseded by the next tick.

# Circuit Breaker

CircuitBreakerClient wraps any AttentionClient with sony/gobreaker. While the
breaker is open, calls fail fast with ErrNetwork so the scheduler's handling
does not change; the breaker only saves the endpoint from a request per tick
while it is down. Breaker state is exported as circuit_breaker_state{name}.
*/
package inference
