// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

package api

import (
	"context"
	"net/http"
	"time"
)

// readinessTimeout bounds each dependency probe.
const readinessTimeout = 2 * time.Second

// ReadinessStatus is the body of /health/ready.
type ReadinessStatus struct {
	Status         string            `json:"status"`
	Version        string            `json:"version"`
	Uptime         float64           `json:"uptime"`
	Checks         map[string]string `json:"checks"`
	CircuitBreaker string            `json:"circuit_breaker,omitempty"`
}

// HealthLive handles liveness probe requests.
// Returns 200 OK if the process is alive, regardless of dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles readiness probe requests.
// Returns 200 only when the gate store and inference endpoint answer and
// the inference circuit breaker is not open; 503 otherwise.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	status := ReadinessStatus{
		Status:  "ready",
		Version: h.version,
		Uptime:  time.Since(h.startTime).Seconds(),
		Checks:  map[string]string{},
	}
	ready := true

	probe := func(name string, p Pinger) {
		if p == nil {
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			status.Checks[name] = "error: " + err.Error()
			ready = false
			return
		}
		status.Checks[name] = "ok"
	}
	probe("gate_store", h.gates)
	probe("inference", h.inference)

	if h.breaker != nil {
		status.CircuitBreaker = h.breaker.State()
		if status.CircuitBreaker == "open" {
			ready = false
		}
	}

	code := http.StatusOK
	if !ready {
		status.Status = "not_ready"
		code = http.StatusServiceUnavailable
	}
	respondSuccess(w, r, code, status)
}
