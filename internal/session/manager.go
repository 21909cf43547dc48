// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/proctorlens/internal/attention"
	"github.com/tomtom215/proctorlens/internal/capture"
	"github.com/tomtom215/proctorlens/internal/encoding"
	"github.com/tomtom215/proctorlens/internal/gate"
	"github.com/tomtom215/proctorlens/internal/inference"
	"github.com/tomtom215/proctorlens/internal/logging"
	"github.com/tomtom215/proctorlens/internal/metrics"
	"github.com/tomtom215/proctorlens/internal/models"
	"github.com/tomtom215/proctorlens/internal/validation"
)

// Publisher receives a snapshot after every successful attention publish.
type Publisher interface {
	PublishSnapshot(snap models.Snapshot) error
}

// Config holds the collaborators and limits of a Manager.
type Config struct {
	TickInterval  time.Duration
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	MaxSessions   int

	Gates     gate.Store
	NewSource capture.Factory
	Encoder   encoding.Encoder
	Client    inference.AttentionClient

	// Optional.
	Publisher Publisher
	NewTicker attention.TickerFactory

	// Ended is called after a session is removed, with reason
	// EndReasonSubmitted or EndReasonExpired.
	Ended func(token, reason string)
}

// Reasons passed to Config.Ended.
const (
	EndReasonSubmitted = "submitted"
	EndReasonExpired   = "expired"
)

// Manager is the registry of live exam sessions.
type Manager struct {
	cfg    Config
	logger zerolog.Logger

	// runCtx scopes every scheduler; canceled by Shutdown.
	runCtx    context.Context
	cancelRun context.CancelFunc

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a Manager.
func NewManager(cfg Config) (*Manager, error) {
	switch {
	case cfg.Gates == nil:
		return nil, errors.New("session manager: gate store is required")
	case cfg.NewSource == nil:
		return nil, errors.New("session manager: frame source factory is required")
	case cfg.Encoder == nil:
		return nil, errors.New("session manager: encoder is required")
	case cfg.Client == nil:
		return nil, errors.New("session manager: inference client is required")
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}

	runCtx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:       cfg,
		logger:    logging.WithComponent("session"),
		runCtx:    runCtx,
		cancelRun: cancel,
		sessions:  make(map[string]*Session),
	}, nil
}

// Enter registers the session if needed and returns its snapshot.
func (m *Manager) Enter(ctx context.Context, token string) (models.Snapshot, error) {
	if verr := validation.ValidateSessionToken(token); verr != nil {
		return models.Snapshot{}, fmt.Errorf("%w: %w", ErrInvalidToken, verr)
	}

	m.mu.Lock()
	s, ok := m.sessions[token]
	if !ok {
		if m.cfg.MaxSessions > 0 && len(m.sessions) >= m.cfg.MaxSessions {
			m.mu.Unlock()
			return models.Snapshot{}, ErrTooManySessions
		}
		s = newSession(token)
		m.sessions[token] = s
		metrics.SessionsTotal.Set(float64(len(m.sessions)))
	}
	m.mu.Unlock()

	if !ok {
		logging.Ctx(logging.ContextWithSession(ctx, token)).Info().Msg("Exam session entered")
	}
	return m.Snapshot(ctx, token)
}

// Activation returns the stored flag for the session.
func (m *Manager) Activation(ctx context.Context, token string) (bool, error) {
	s, err := m.get(token)
	if err != nil {
		return false, err
	}
	s.touch()
	return m.cfg.Gates.Get(ctx, token)
}

// SetActivation stores the flag. It fails with ErrGateLocked while the
// session's scheduler is running.
func (m *Manager) SetActivation(ctx context.Context, token string, enabled bool) error {
	s, err := m.lock(token)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()

	if s.running() {
		return ErrGateLocked
	}
	if err := m.cfg.Gates.Set(ctx, token, enabled); err != nil {
		return fmt.Errorf("store activation flag: %w", err)
	}
	logging.Ctx(logging.ContextWithSession(ctx, token)).Info().Bool("enabled", enabled).Msg("Activation flag updated")
	return nil
}

// Start begins monitoring. A running session returns attention.ErrInvalidState.
// A disabled flag returns attention.ErrActivationDisabled without touching
// the camera; acquisition failures match capture.ErrDeviceUnavailable.
func (m *Manager) Start(ctx context.Context, token string) (models.Snapshot, error) {
	s, err := m.lock(token)
	if err != nil {
		return models.Snapshot{}, err
	}
	defer s.mu.Unlock()

	if s.running() {
		return models.Snapshot{}, fmt.Errorf("%w: %s", attention.ErrInvalidState, models.SchedulerRunning)
	}

	enabled, err := m.cfg.Gates.Get(ctx, token)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("read activation flag: %w", err)
	}

	// The previous run must let go of the device before a new one claims it.
	if s.scheduler != nil {
		s.scheduler.Stop()
	}

	if !enabled {
		return models.Snapshot{}, attention.ErrActivationDisabled
	}

	source, err := m.cfg.NewSource()
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: %w", capture.ErrDeviceUnavailable, err)
	}

	// The state outlives runs so the last metrics stay visible until the
	// new run publishes.
	state := s.state
	if state == nil {
		state = attention.NewState()
		if m.cfg.Publisher != nil {
			state.OnPublish(m.publishFunc(s))
		}
	}
	sched, err := attention.NewScheduler(attention.Config{
		Session:   token,
		Interval:  m.cfg.TickInterval,
		Source:    source,
		Encoder:   m.cfg.Encoder,
		Client:    m.cfg.Client,
		State:     state,
		Gate:      attention.StaticGate(enabled),
		NewTicker: m.cfg.NewTicker,
		Sequence:  &s.seq,
	})
	if err != nil {
		return models.Snapshot{}, err
	}
	s.state = state
	s.active.Store(sched)

	runCtx := logging.ContextWithSession(m.runCtx, token)
	if err := sched.Start(runCtx); err != nil {
		s.active.Store(s.scheduler)
		return models.Snapshot{}, err
	}

	s.scheduler = sched
	s.touch()
	return s.snapshot(enabled), nil
}

// Stop ends monitoring for the session and keeps the activation flag.
func (m *Manager) Stop(ctx context.Context, token string) (models.Snapshot, error) {
	s, err := m.lock(token)
	if err != nil {
		return models.Snapshot{}, err
	}
	defer s.mu.Unlock()

	if s.scheduler != nil {
		s.scheduler.Stop()
	}

	enabled, err := m.cfg.Gates.Get(ctx, token)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("read activation flag: %w", err)
	}
	return s.snapshot(enabled), nil
}

// End stops monitoring, deletes the activation flag and forgets the session.
func (m *Manager) End(ctx context.Context, token string) error {
	s, err := m.lock(token)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()

	m.remove(s)
	m.ended(token, EndReasonSubmitted)
	if err := m.cfg.Gates.Delete(ctx, token); err != nil {
		return fmt.Errorf("delete activation flag: %w", err)
	}
	logging.Ctx(logging.ContextWithSession(ctx, token)).Info().Msg("Exam session ended")
	return nil
}

// Snapshot returns the session's current read model.
func (m *Manager) Snapshot(ctx context.Context, token string) (models.Snapshot, error) {
	s, err := m.lock(token)
	if err != nil {
		return models.Snapshot{}, err
	}
	defer s.mu.Unlock()

	enabled, err := m.cfg.Gates.Get(ctx, token)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("read activation flag: %w", err)
	}
	return s.snapshot(enabled), nil
}

// Touch marks the session as in use without any other effect.
func (m *Manager) Touch(token string) error {
	s, err := m.get(token)
	if err != nil {
		return err
	}
	s.touch()
	return nil
}

// Exists reports whether the session is registered.
func (m *Manager) Exists(token string) bool {
	_, err := m.get(token)
	return err == nil
}

// Count returns the number of registered sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep removes sessions idle longer than the idle timeout. Sessions with a
// running scheduler are kept. It returns the number removed.
func (m *Manager) Sweep() int {
	if m.cfg.IdleTimeout <= 0 {
		return 0
	}
	cutoff := time.Now().Add(-m.cfg.IdleTimeout)

	m.mu.RLock()
	candidates := make([]*Session, 0)
	for _, s := range m.sessions {
		if s.LastSeen().Before(cutoff) {
			candidates = append(candidates, s)
		}
	}
	m.mu.RUnlock()

	removed := 0
	for _, s := range candidates {
		s.mu.Lock()
		if !s.removed && !s.running() && s.LastSeen().Before(cutoff) {
			m.remove(s)
			m.ended(s.Token, EndReasonExpired)
			removed++
			metrics.SessionsExpired.Inc()
			m.logger.Info().Str("session", s.Token).Time("last_seen", s.LastSeen()).Msg("Idle exam session removed")
		}
		s.mu.Unlock()
	}
	return removed
}

// Serve runs the idle sweep until ctx is done, then stops every scheduler.
// It implements suture.Service.
func (m *Manager) Serve(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.Shutdown()
			return ctx.Err()
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (m *Manager) String() string {
	return "session-manager"
}

// Shutdown stops every running scheduler and releases every device.
func (m *Manager) Shutdown() {
	m.cancelRun()

	m.mu.RLock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.RUnlock()

	for _, s := range all {
		s.mu.Lock()
		if s.scheduler != nil {
			s.scheduler.Stop()
		}
		s.mu.Unlock()
	}
	m.logger.Info().Int("sessions", len(all)).Msg("All attention schedulers stopped")
}

func (m *Manager) get(token string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[token]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, token)
	}
	return s, nil
}

// lock returns the session with its mutex held and last-seen refreshed.
func (m *Manager) lock(token string) (*Session, error) {
	s, err := m.get(token)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.removed {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, token)
	}
	s.touch()
	return s, nil
}

// remove stops the scheduler and unregisters s. Caller holds s.mu.
func (m *Manager) remove(s *Session) {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	s.removed = true

	m.mu.Lock()
	if cur, ok := m.sessions[s.Token]; ok && cur == s {
		delete(m.sessions, s.Token)
	}
	metrics.SessionsTotal.Set(float64(len(m.sessions)))
	m.mu.Unlock()
}

func (m *Manager) ended(token, reason string) {
	if m.cfg.Ended != nil {
		m.cfg.Ended(token, reason)
	}
}

// publishFunc forwards every publish of s to the event bus. It runs on the
// scheduler's send goroutine without s.mu.
func (m *Manager) publishFunc(s *Session) func(attention.Published) {
	failed := logging.NewSampler(30*time.Second, 1).WithLogger(m.logger)
	return func(p attention.Published) {
		snap := models.Snapshot{Session: s.Token, Enabled: true}
		if sched := s.active.Load(); sched != nil {
			fillFromScheduler(&snap, sched, nil)
		}
		fillPublished(&snap, p)
		if err := m.cfg.Publisher.PublishSnapshot(snap); err != nil {
			if ev := failed.Warn(); ev != nil {
				ev.Err(err).Str("session", s.Token).Msg("Failed to publish attention snapshot")
			}
		}
	}
}
