// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/tomtom215/proctorlens/internal/logging"
)

// serveWithID runs RequestID with the given incoming header and returns the
// id seen by the handler and the id echoed in the response.
func serveWithID(t *testing.T, incoming string) (seen, echoed, correlation string) {
	t.Helper()
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		correlation = logging.CorrelationIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPut, "/api/v1/sessions/exam-2026-0042", nil)
	if incoming != "" {
		req.Header.Set(HeaderRequestID, incoming)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return seen, rec.Header().Get(HeaderRequestID), correlation
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"generated when absent", "", false},
		{"upstream kept", "lb-7f3a:req-42", true},
		{"too long replaced", strings.Repeat("x", maxRequestIDLength+1), false},
		{"log injection replaced", "abc\n{\"level\":\"error\"}", false},
		{"spaces replaced", "two words", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen, echoed, correlation := serveWithID(t, tt.incoming)

			if seen != echoed {
				t.Errorf("context id %q != response header %q", seen, echoed)
			}
			if correlation == "" {
				t.Error("no correlation id in logging context")
			}
			if tt.keep {
				if seen != tt.incoming {
					t.Errorf("id = %q, want upstream %q", seen, tt.incoming)
				}
				return
			}
			if _, err := uuid.Parse(seen); err != nil {
				t.Errorf("id %q is not a generated UUID: %v", seen, err)
			}
		})
	}
}

func TestGetRequestID_Missing(t *testing.T) {
	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("GetRequestID() = %q, want empty", got)
	}
}
