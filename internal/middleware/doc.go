// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

/*
Package middleware provides HTTP middleware components for the API server.

Key Components:

  - Request ID: UUID-based request tracking for log correlation
  - Prometheus Metrics: HTTP request/response instrumentation

Both are plain http.HandlerFunc decorators. The api package adapts them to
chi's func(http.Handler) http.Handler form.

Prometheus Metrics:

Requests are labeled by chi route pattern (for example
"/api/v1/sessions/{token}/start") rather than the raw path, so session
tokens never become label values. Requests that matched no route are
labeled "unmatched".

Metrics exposed:

  - api_requests_total{method, endpoint, status_code}
  - api_request_duration_seconds{method, endpoint}
  - api_active_requests

The response writer wrapper passes Hijack through so WebSocket upgrades
work behind the metrics middleware.

Request ID:

An incoming X-Request-ID header is kept when it is at most 128 characters
of letters, digits, '-', '_', '.' or ':'; otherwise a UUID v4 is generated.
The ID is echoed in the response header and stored in the logging context,
where GetRequestID and logging.Ctx read it.
*/
package middleware
