// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/proctorlens/internal/logging"
	"github.com/tomtom215/proctorlens/internal/validation"
)

// ActivationRequest is the body of PUT /sessions/{token}/activation.
type ActivationRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// ActivationResponse reports the stored activation flag.
type ActivationResponse struct {
	Session string `json:"session"`
	Enabled bool   `json:"enabled"`
}

func sessionToken(r *http.Request) string {
	return chi.URLParam(r, "token")
}

// requireSessionToken rejects malformed {token} path values with 400 and
// tags the request context with the session for logging.
func requireSessionToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if verr := validation.ValidateSessionToken(token); verr != nil {
			apiErr := verr.ToAPIError()
			respondError(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
			return
		}
		next.ServeHTTP(w, r.WithContext(logging.ContextWithSession(r.Context(), token)))
	})
}

// EnterSession registers the session (idempotent) and returns its snapshot.
func (h *Handler) EnterSession(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sessions.Enter(r.Context(), sessionToken(r))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, snap)
}

// GetActivation returns the session's activation flag.
func (h *Handler) GetActivation(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r)
	enabled, err := h.sessions.Activation(r.Context(), token)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, ActivationResponse{Session: token, Enabled: enabled})
}

// SetActivation stores the session's activation flag. 409 while running.
func (h *Handler) SetActivation(w http.ResponseWriter, r *http.Request) {
	var req ActivationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	token := sessionToken(r)
	if err := h.sessions.SetActivation(r.Context(), token, *req.Enabled); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, ActivationResponse{Session: token, Enabled: *req.Enabled})
}

// StartMonitoring starts attention monitoring for the session.
func (h *Handler) StartMonitoring(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sessions.Start(r.Context(), sessionToken(r))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, snap)
}

// StopMonitoring stops monitoring as the exam view is left. The activation
// flag is kept.
func (h *Handler) StopMonitoring(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sessions.Stop(r.Context(), sessionToken(r))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, snap)
}

// EndSession submits the exam: monitoring stops, the flag is deleted and
// the session is forgotten.
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.End(r.Context(), sessionToken(r)); err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetAttention returns the latest attention snapshot.
func (h *Handler) GetAttention(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sessions.Snapshot(r.Context(), sessionToken(r))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, snap)
}
