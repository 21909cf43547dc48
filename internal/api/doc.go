// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

/*
Package api provides the HTTP interface of the proctoring service.

It is the presentation layer over the session manager: exam views enter
and leave sessions, toggle the activation flag, start and stop attention
monitoring, and read the latest attention snapshot either by polling or
over a WebSocket.

Routes (chi):

	PUT    /api/v1/sessions/{token}             enter the exam view
	GET    /api/v1/sessions/{token}/activation  read the activation flag
	PUT    /api/v1/sessions/{token}/activation  set the activation flag
	POST   /api/v1/sessions/{token}/start       start monitoring
	POST   /api/v1/sessions/{token}/stop        leave the view, keep the flag
	DELETE /api/v1/sessions/{token}             submit the exam
	GET    /api/v1/sessions/{token}/attention   latest snapshot
	GET    /api/v1/sessions/{token}/ws          snapshot stream
	GET    /api/v1/health/live                  liveness probe
	GET    /api/v1/health/ready                 readiness probe
	GET    /metrics                             Prometheus exposition

Middleware Stack:

  - Request ID with logging context (middleware.RequestID)
  - Panic recovery and real IP (chi middleware)
  - CORS (go-chi/cors), global so preflight requests are answered
  - Rate limiting per IP (go-chi/httprate)
  - Security headers
  - Prometheus request metrics labeled by route pattern

Every session route validates {token} before reaching a handler, so
handlers never see malformed tokens.

Response Format:

All JSON endpoints use models.APIResponse:

	{"status": "success", "data": {...}, "metadata": {"timestamp": "..."}}
	{"status": "error", "data": null, "error": {"code": "...", "message": "..."}, "metadata": {...}}

Error codes map from domain errors in errors.go. Start reports
ACTIVATION_DISABLED, INVALID_STATE (409) and DEVICE_UNAVAILABLE (503).
Per-tick failures never surface here; they appear as the snapshot's
"error" status and last_error field.
*/
package api
