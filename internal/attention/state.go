// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

package attention

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/proctorlens/internal/metrics"
	"github.com/tomtom215/proctorlens/internal/models"
)

// Published is one immutable snapshot held by State.
type Published struct {
	Sequence    uint64
	Metrics     *models.AttentionMetrics
	PublishedAt time.Time
}

// State is a latest-value cell for attention metrics. One writer, any number
// of readers; readers see either a complete snapshot or nothing.
type State struct {
	cur atomic.Pointer[Published]

	mu        sync.RWMutex
	observers []func(Published)
}

// NewState creates an empty State.
func NewState() *State {
	return &State{}
}

// Publish replaces the snapshot and notifies observers. A sequence number
// not greater than the current one is ignored and Publish returns false.
func (s *State) Publish(seq uint64, m *models.AttentionMetrics) bool {
	p, ok := s.store(seq, m)
	if ok {
		s.notify(p)
	}
	return ok
}

// store swaps in a new snapshot without notifying observers.
func (s *State) store(seq uint64, m *models.AttentionMetrics) (Published, bool) {
	next := &Published{
		Sequence:    seq,
		Metrics:     m.Clone(),
		PublishedAt: time.Now(),
	}
	for {
		prev := s.cur.Load()
		if prev != nil && seq <= prev.Sequence {
			return Published{}, false
		}
		if s.cur.CompareAndSwap(prev, next) {
			metrics.AttentionPublishes.Inc()
			return *next, true
		}
	}
}

func (s *State) notify(p Published) {
	s.mu.RLock()
	observers := s.observers
	s.mu.RUnlock()

	for _, fn := range observers {
		fn(p.clone())
	}
}

// Current returns a copy of the latest snapshot, or false before the first publish.
func (s *State) Current() (Published, bool) {
	p := s.cur.Load()
	if p == nil {
		return Published{}, false
	}
	return p.clone(), true
}

// OnPublish registers fn to run after every successful publish. Observers
// run on the publishing goroutine and must not block.
func (s *State) OnPublish(fn func(Published)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Copy on write so notify can iterate without the lock.
	next := make([]func(Published), len(s.observers), len(s.observers)+1)
	copy(next, s.observers)
	s.observers = append(next, fn)
}

func (p Published) clone() Published {
	p.Metrics = p.Metrics.Clone()
	return p
}
