// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

package gate

import (
	"context"
	"errors"
	"time"
)

// ErrStoreClosed is returned by operations on a closed store.
var ErrStoreClosed = errors.New("gate store closed")

// Store persists activation flags keyed by session token.
type Store interface {
	// Get returns the flag for token; a missing record is false.
	Get(ctx context.Context, token string) (bool, error)
	Set(ctx context.Context, token string, enabled bool) error
	Delete(ctx context.Context, token string) error
	Ping(ctx context.Context) error
	Close() error
}

// Record is the stored form of one flag.
type Record struct {
	Session   string    `json:"session"`
	Enabled   bool      `json:"enabled"`
	UpdatedAt time.Time `json:"updated_at"`
}
