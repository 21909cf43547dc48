// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/proctorlens/internal/logging"
	"github.com/tomtom215/proctorlens/internal/middleware"
	"github.com/tomtom215/proctorlens/internal/models"
	"github.com/tomtom215/proctorlens/internal/validation"
)

// respondJSON sends a JSON response. Responses describe live session state,
// so they are never cached.
func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func metadata(r *http.Request) models.Metadata {
	return models.Metadata{
		Timestamp: time.Now(),
		RequestID: middleware.GetRequestID(r.Context()),
	}
}

// respondSuccess sends a success envelope around data.
func respondSuccess(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	respondJSON(w, status, &models.APIResponse{
		Status:   "success",
		Data:     data,
		Metadata: metadata(r),
	})
}

// respondError sends an error response
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]interface{}) {
	respondJSON(w, status, &models.APIResponse{
		Status:   "error",
		Data:     nil,
		Metadata: metadata(r),
		Error: &models.APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// respondDomainError maps err to a status and code. Internal errors are
// logged and reported without their text.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classifyError(err)

	var verr *validation.RequestValidationError
	if code == ErrCodeValidation && errors.As(err, &verr) {
		apiErr := verr.ToAPIError()
		respondError(w, r, status, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}

	if status == http.StatusInternalServerError {
		logging.Ctx(r.Context()).Error().Str("error", sanitizeLogValue(err.Error())).Msg("API error")
		respondError(w, r, status, code, "internal error", nil)
		return
	}

	logging.Ctx(r.Context()).Debug().Str("code", code).Str("error", sanitizeLogValue(err.Error())).Msg("API request rejected")
	respondError(w, r, status, code, err.Error(), nil)
}
