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
	"github.com/goccy/go-json"

	"github.com/tomtom215/proctorlens/internal/metrics"
)

const keyPrefix = "gate:"

// BadgerStore is a BadgerDB-backed Store.
type BadgerStore struct {
	db  *badger.DB
	ttl time.Duration
}

// NewBadgerStoreFromDB creates a BadgerStore over an open DB. The caller
// owns the DB; Close on the store is a no-op.
func NewBadgerStoreFromDB(db *badger.DB, ttl time.Duration) *BadgerStore {
	return &BadgerStore{db: db, ttl: ttl}
}

func key(token string) []byte {
	return []byte(keyPrefix + token)
}

// Get implements Store.
func (s *BadgerStore) Get(_ context.Context, token string) (enabled bool, err error) {
	defer func() { metrics.RecordGateOperation("get", err) }()

	if s.db.IsClosed() {
		return false, ErrStoreClosed
	}

	var rec Record
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(token))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get flag: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return false, err
	}
	return rec.Enabled, nil
}

// Set implements Store.
func (s *BadgerStore) Set(_ context.Context, token string, enabled bool) (err error) {
	defer func() { metrics.RecordGateOperation("set", err) }()

	if s.db.IsClosed() {
		return ErrStoreClosed
	}

	data, err := json.Marshal(Record{Session: token, Enabled: enabled, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal flag: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(key(token), data)
		if s.ttl > 0 {
			e = e.WithTTL(s.ttl)
		}
		return txn.SetEntry(e)
	})
}

// Delete implements Store.
func (s *BadgerStore) Delete(_ context.Context, token string) (err error) {
	defer func() { metrics.RecordGateOperation("delete", err) }()

	if s.db.IsClosed() {
		return ErrStoreClosed
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(key(token)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete flag: %w", err)
		}
		return nil
	})
}

// Ping implements Store.
func (s *BadgerStore) Ping(context.Context) error {
	if s.db.IsClosed() {
		return ErrStoreClosed
	}
	return nil
}

// Close implements Store. The DB belongs to whoever opened it.
func (s *BadgerStore) Close() error {
	return nil
}

// Count returns the number of stored flags.
func (s *BadgerStore) Count() (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}
