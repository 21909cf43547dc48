// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

package gate

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps flags in process memory.
type MemoryStore struct {
	ttl time.Duration

	mu      sync.RWMutex
	records map[string]Record
	closed  bool
}

// NewMemoryStore creates a MemoryStore. Records older than ttl read as
// missing; zero disables expiry.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		records: make(map[string]Record),
	}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, token string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, ErrStoreClosed
	}
	rec, ok := s.records[token]
	if !ok || s.expired(rec) {
		return false, nil
	}
	return rec.Enabled, nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, token string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	s.records[token] = Record{Session: token, Enabled: enabled, UpdatedAt: time.Now().UTC()}
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	delete(s.records, token)
	return nil
}

// Ping implements Store.
func (s *MemoryStore) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.records = nil
	return nil
}

func (s *MemoryStore) expired(rec Record) bool {
	return s.ttl > 0 && time.Since(rec.UpdatedAt) > s.ttl
}
