// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

// Package validation provides struct validation using go-playground/validator v10.
//
// A single validator instance is shared process-wide; it caches struct metadata
// and is safe for concurrent use. Besides the built-in tags it registers:
//
//   - session_token: opaque exam session token, 8-128 characters drawn from
//     [A-Za-z0-9._~-] so it is safe in URL paths and storage keys
//
// Failures are returned as *RequestValidationError, which converts to the
// API error envelope with ToAPIError:
//
//	type activationRequest struct {
//	    Enabled *bool `json:"enabled" validate:"required"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    respondError(w, http.StatusBadRequest, verr.ToAPIError())
//	    return
//	}
//
// Configuration structs use the same tags, so config.Validate and the HTTP
// handlers report problems in the same wording.
package validation
