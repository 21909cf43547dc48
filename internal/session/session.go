// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

package session

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/proctorlens/internal/attention"
	"github.com/tomtom215/proctorlens/internal/models"
)

var (
	// ErrSessionNotFound is returned for an unknown session token.
	ErrSessionNotFound = errors.New("session not found")

	// ErrGateLocked is returned when changing the activation flag of a
	// session whose scheduler is running.
	ErrGateLocked = errors.New("activation flag cannot change while monitoring is running")

	// ErrInvalidToken is returned for a malformed session token.
	ErrInvalidToken = errors.New("invalid session token")

	// ErrTooManySessions is returned by Enter when the session limit is reached.
	ErrTooManySessions = errors.New("session limit reached")
)

// Session is one exam-taking instance.
type Session struct {
	Token     string
	CreatedAt time.Time

	lastSeen atomic.Int64

	// mu serializes lifecycle operations on this session.
	mu        sync.Mutex
	scheduler *attention.Scheduler
	state     *attention.State
	removed   bool

	// seq outlives individual runs: frame numbers continue across Stop and
	// Start. active is the scheduler the publish observer reports on.
	seq    atomic.Uint64
	active atomic.Pointer[attention.Scheduler]
}

func newSession(token string) *Session {
	now := time.Now()
	s := &Session{Token: token, CreatedAt: now}
	s.lastSeen.Store(now.UnixNano())
	return s
}

func (s *Session) touch() {
	s.lastSeen.Store(time.Now().UnixNano())
}

// LastSeen is the time of the most recent operation on the session.
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

// running reports whether the current scheduler is Running. Caller holds mu.
func (s *Session) running() bool {
	return s.scheduler != nil && s.scheduler.State() == models.SchedulerRunning
}

// snapshot builds the read model. Caller holds mu.
func (s *Session) snapshot(enabled bool) models.Snapshot {
	snap := models.Snapshot{
		Session: s.Token,
		Enabled: enabled,
		State:   models.SchedulerIdle,
		Status:  models.PipelineIdle,
	}
	if s.scheduler != nil {
		fillFromScheduler(&snap, s.scheduler, s.state)
	}
	return snap
}

func fillFromScheduler(snap *models.Snapshot, sched *attention.Scheduler, state *attention.State) {
	snap.State = sched.State()
	snap.Status = sched.Status()
	snap.LastError = sched.LastError()
	if state == nil {
		return
	}
	if p, ok := state.Current(); ok {
		fillPublished(snap, p)
	}
}

func fillPublished(snap *models.Snapshot, p attention.Published) {
	at := p.PublishedAt
	snap.Metrics = p.Metrics
	snap.Sequence = p.Sequence
	snap.PublishedAt = &at
}
