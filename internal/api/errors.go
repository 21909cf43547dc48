// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/proctorlens/internal/attention"
	"github.com/tomtom215/proctorlens/internal/capture"
	"github.com/tomtom215/proctorlens/internal/gate"
	"github.com/tomtom215/proctorlens/internal/session"
	"github.com/tomtom215/proctorlens/internal/validation"
)

// Error codes for API responses
const (
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeValidation         = validation.ErrorCodeValidation
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeGateLocked         = "GATE_LOCKED"
	ErrCodeActivationDisabled = "ACTIVATION_DISABLED"
	ErrCodeInvalidState       = "INVALID_STATE"
	ErrCodeDeviceUnavailable  = "DEVICE_UNAVAILABLE"
	ErrCodeSessionLimit       = "SESSION_LIMIT"
	ErrCodeTooManyRequests    = "TOO_MANY_REQUESTS"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

// errorMapping is one domain error and how it is reported.
type errorMapping struct {
	target error
	status int
	code   string
}

// errorMappings is checked in order with errors.Is.
var errorMappings = []errorMapping{
	{session.ErrInvalidToken, http.StatusBadRequest, ErrCodeValidation},
	{session.ErrSessionNotFound, http.StatusNotFound, ErrCodeNotFound},
	{session.ErrGateLocked, http.StatusConflict, ErrCodeGateLocked},
	{session.ErrTooManySessions, http.StatusTooManyRequests, ErrCodeSessionLimit},
	{attention.ErrActivationDisabled, http.StatusConflict, ErrCodeActivationDisabled},
	{attention.ErrInvalidState, http.StatusConflict, ErrCodeInvalidState},
	{capture.ErrDeviceUnavailable, http.StatusServiceUnavailable, ErrCodeDeviceUnavailable},
	{gate.ErrStoreClosed, http.StatusServiceUnavailable, ErrCodeServiceUnavailable},
}

// classifyError returns the HTTP status and error code for err. Unknown
// errors are internal.
func classifyError(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, ErrCodeInternalError
}
