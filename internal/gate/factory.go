// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

package gate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/proctorlens/internal/logging"
)

// StoreType selects the flag storage backend.
type StoreType string

const (
	// StoreMemory keeps flags in memory (not persistent).
	StoreMemory StoreType = "memory"

	// StoreBadger persists flags in BadgerDB.
	StoreBadger StoreType = "badger"
)

const (
	gcInterval = 10 * time.Minute
	gcRatio    = 0.5
)

// StoreFactory creates gate stores based on configuration.
type StoreFactory struct {
	db *badger.DB
}

// NewStoreFactory creates a store factory. For StoreBadger it opens a DB at
// path, or an in-memory DB when path is empty. StoreMemory opens nothing.
func NewStoreFactory(storeType StoreType, path string) (*StoreFactory, error) {
	factory := &StoreFactory{}

	switch storeType {
	case StoreMemory, "":
		return factory, nil
	case StoreBadger:
	default:
		return nil, fmt.Errorf("unknown gate store type %q", storeType)
	}

	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for activation flags: %w", err)
	}
	factory.db = db

	logging.Info().Str("path", path).Bool("in_memory", path == "").Msg("Activation flag store opened")
	return factory, nil
}

// CreateStore returns a Store for the factory's backend. ttl bounds how long
// a flag survives without being rewritten; zero keeps flags until deleted.
func (f *StoreFactory) CreateStore(ttl time.Duration) Store {
	if f.db != nil {
		return NewBadgerStoreFromDB(f.db, ttl)
	}
	return NewMemoryStore(ttl)
}

// Close closes the underlying BadgerDB if one was opened.
func (f *StoreFactory) Close() error {
	if f.db != nil {
		return f.db.Close()
	}
	return nil
}

// GetDB returns the underlying BadgerDB, or nil for the memory backend.
func (f *StoreFactory) GetDB() *badger.DB {
	return f.db
}

// Serve runs periodic value log GC. It implements suture.Service.
func (f *StoreFactory) Serve(ctx context.Context) error {
	if f.db == nil || f.db.Opts().InMemory {
		return suture.ErrDoNotRestart
	}

	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := f.RunGC(); err != nil {
				logging.Warn().Err(err).Msg("Activation flag store GC failed")
			}
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (f *StoreFactory) String() string {
	return "gate-store-gc"
}

// RunGC reclaims value log space until there is nothing left to rewrite.
func (f *StoreFactory) RunGC() error {
	if f.db == nil {
		return nil
	}
	for {
		err := f.db.RunValueLogGC(gcRatio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run GC: %w", err)
		}
	}
}
