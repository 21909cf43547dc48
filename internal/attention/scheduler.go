// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

package attention

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/proctorlens/internal/capture"
	"github.com/tomtom215/proctorlens/internal/encoding"
	"github.com/tomtom215/proctorlens/internal/inference"
	"github.com/tomtom215/proctorlens/internal/logging"
	"github.com/tomtom215/proctorlens/internal/metrics"
	"github.com/tomtom215/proctorlens/internal/models"
)

var (
	// ErrActivationDisabled is returned by Start when the gate is off.
	ErrActivationDisabled = errors.New("attention monitoring disabled for session")

	// ErrInvalidState is returned by Start on a scheduler that is not Idle.
	ErrInvalidState = errors.New("scheduler is not idle")
)

// DefaultInterval is the tick period used when Config.Interval is zero.
const DefaultInterval = time.Second

// Config wires a Scheduler to its collaborators.
type Config struct {
	Session  string
	Interval time.Duration

	Source  capture.FrameSource
	Encoder encoding.Encoder
	Client  inference.AttentionClient
	State   *State
	Gate    Gate

	// NewTicker defaults to NewTimeTicker.
	NewTicker TickerFactory

	// Sequence numbers frames across every run that shares it, so a session
	// restarted after Stop continues where it left off. Nil gives the
	// scheduler a private counter starting at 1.
	Sequence *atomic.Uint64
}

// Stats are cumulative counters for one scheduler run.
type Stats struct {
	Ticks        uint64 `json:"ticks"`
	Sent         uint64 `json:"sent"`
	Skipped      uint64 `json:"skipped"`
	Published    uint64 `json:"published"`
	Failed       uint64 `json:"failed"`
	Discarded    uint64 `json:"discarded"`
	LastSequence uint64 `json:"last_sequence"`
}

// Scheduler drives capture, encode, send and publish for one session.
type Scheduler struct {
	cfg    Config
	logger zerolog.Logger
	failed *logging.Sampler

	mu        sync.Mutex
	state     models.SchedulerState
	cancel    context.CancelFunc
	done      chan struct{} // closed when the tick loop exits
	halted    chan struct{} // closed once Stopped and the source is released
	lastErr   string
	lastFail  bool
	stopCause error

	seq *atomic.Uint64

	inFlight atomic.Bool
	sends    sync.WaitGroup

	ticks     atomic.Uint64
	sent      atomic.Uint64
	skipped   atomic.Uint64
	published atomic.Uint64
	failures  atomic.Uint64
	discarded atomic.Uint64
	lastSeq   atomic.Uint64
}

// NewScheduler creates an Idle scheduler.
func NewScheduler(cfg Config) (*Scheduler, error) {
	switch {
	case cfg.Source == nil:
		return nil, errors.New("attention scheduler: frame source is required")
	case cfg.Encoder == nil:
		return nil, errors.New("attention scheduler: encoder is required")
	case cfg.Client == nil:
		return nil, errors.New("attention scheduler: inference client is required")
	case cfg.State == nil:
		return nil, errors.New("attention scheduler: state is required")
	case cfg.Gate == nil:
		return nil, errors.New("attention scheduler: gate is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.NewTicker == nil {
		cfg.NewTicker = NewTimeTicker
	}
	if cfg.Sequence == nil {
		cfg.Sequence = new(atomic.Uint64)
	}

	logger := logging.WithComponent("attention").With().Str("session", cfg.Session).Logger()

	return &Scheduler{
		cfg:    cfg,
		logger: logger,
		failed: logging.NewSampler(10*time.Second, 3).WithLogger(logger),
		state:  models.SchedulerIdle,
		halted: make(chan struct{}),
		seq:    cfg.Sequence,
	}, nil
}

// Start acquires the capture device and begins ticking. The run lasts until
// Stop is called, ctx is done, or the device is lost.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != models.SchedulerIdle {
		return fmt.Errorf("%w: %s", ErrInvalidState, s.state)
	}
	if !s.cfg.Gate.IsEnabled() {
		return ErrActivationDisabled
	}

	if err := s.cfg.Source.Acquire(ctx); err != nil {
		if !errors.Is(err, capture.ErrDeviceUnavailable) {
			err = fmt.Errorf("%w: %w", capture.ErrDeviceUnavailable, err)
		}
		s.lastErr = err.Error()
		s.lastFail = true
		return fmt.Errorf("start attention scheduler: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.state = models.SchedulerRunning
	s.lastErr = ""
	s.lastFail = false
	metrics.AttentionSessionsActive.Inc()

	ticker := s.cfg.NewTicker(s.cfg.Interval)
	go s.run(runCtx, ticker)

	s.logger.Info().Dur("interval", s.cfg.Interval).Msg("Attention monitoring started")
	return nil
}

// Stop ends the run, cancels any outstanding request and releases the capture
// device before returning. Stopping an Idle scheduler makes it Stopped.
// Safe to call more than once.
func (s *Scheduler) Stop() {
	s.halt(nil, true)
	<-s.halted
}

// Done is closed once the scheduler is Stopped and its device released.
func (s *Scheduler) Done() <-chan struct{} {
	return s.halted
}

func (s *Scheduler) String() string {
	return "attention-scheduler[" + s.cfg.Session + "]"
}

// State returns the lifecycle state.
func (s *Scheduler) State() models.SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status derives the pipeline status shown to operators.
func (s *Scheduler) Status() models.PipelineStatus {
	s.mu.Lock()
	state, failed := s.state, s.lastFail
	s.mu.Unlock()

	if state != models.SchedulerRunning {
		if failed {
			return models.PipelineError
		}
		return models.PipelineIdle
	}
	switch {
	case s.inFlight.Load():
		return models.PipelineAwaitingResponse
	case failed:
		return models.PipelineError
	default:
		return models.PipelineCapturing
	}
}

// LastError is the most recent failure, or empty after a success.
func (s *Scheduler) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// StopCause reports why a Stopped scheduler stopped. Nil means Stop was called.
func (s *Scheduler) StopCause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopCause
}

// Stats returns a snapshot of the run counters.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Ticks:        s.ticks.Load(),
		Sent:         s.sent.Load(),
		Skipped:      s.skipped.Load(),
		Published:    s.published.Load(),
		Failed:       s.failures.Load(),
		Discarded:    s.discarded.Load(),
		LastSequence: s.lastSeq.Load(),
	}
}

// halt moves to Stopped exactly once. wait is false when called from the
// tick loop itself.
func (s *Scheduler) halt(cause error, wait bool) {
	s.mu.Lock()
	prev := s.state
	if prev == models.SchedulerStopped {
		s.mu.Unlock()
		return
	}
	s.state = models.SchedulerStopped
	s.stopCause = cause
	if cause != nil {
		s.lastErr = cause.Error()
		s.lastFail = true
	}
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if wait && done != nil {
		<-done
	}

	if prev == models.SchedulerRunning {
		if err := s.cfg.Source.Release(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to release capture device")
		}
		metrics.AttentionSessionsActive.Dec()
	}
	close(s.halted)

	ev := s.logger.Info()
	if cause != nil {
		ev = s.logger.Warn().Err(cause)
	}
	ev.Str("from", string(prev)).Uint64("last_sequence", s.lastSeq.Load()).Msg("Attention monitoring stopped")
}

func (s *Scheduler) run(ctx context.Context, ticker Ticker) {
	defer close(s.done)
	defer ticker.Stop()

	if !s.tick(ctx) {
		s.halt(capture.ErrDeviceLost, false)
		return
	}

	for {
		select {
		case <-ctx.Done():
			// No-op when Stop already ran; otherwise the parent context ended.
			s.halt(nil, false)
			return
		case <-ticker.C():
			if !s.tick(ctx) {
				s.halt(capture.ErrDeviceLost, false)
				return
			}
		}
	}
}

// tick performs one capture-encode-send step. It returns false when the
// device is gone and the run must end.
func (s *Scheduler) tick(ctx context.Context) bool {
	defer s.ticks.Add(1)

	if ctx.Err() != nil {
		return true
	}
	if s.inFlight.Load() {
		s.skip(metrics.SkipInFlight)
		return true
	}

	frame, err := s.cfg.Source.CurrentFrame()
	if err != nil {
		if errors.Is(err, capture.ErrDeviceLost) {
			metrics.AttentionTicks.WithLabelValues(metrics.TickDevice).Inc()
			return false
		}
		s.skip(metrics.SkipCapture)
		s.logger.Debug().Err(err).Msg("Frame capture failed")
		return true
	}
	if frame.Empty() {
		s.skip(metrics.SkipNoFrame)
		return true
	}

	data, err := s.cfg.Encoder.Encode(frame)
	if err != nil {
		s.skip(metrics.SkipEncoding)
		s.logger.Debug().Err(err).Msg("Frame encoding failed")
		return true
	}

	frameOut := models.EncodedFrame{Sequence: s.seq.Add(1), Data: data}

	s.inFlight.Store(true)
	metrics.AttentionInFlight.Inc()
	metrics.AttentionTicks.WithLabelValues(metrics.TickSent).Inc()
	s.sent.Add(1)
	s.lastSeq.Store(frameOut.Sequence)

	s.sends.Add(1)
	go s.send(ctx, frameOut)
	return true
}

func (s *Scheduler) skip(reason string) {
	s.skipped.Add(1)
	metrics.RecordTickSkipped(reason)
}

func (s *Scheduler) send(ctx context.Context, frame models.EncodedFrame) {
	defer s.sends.Done()
	defer func() {
		s.inFlight.Store(false)
		metrics.AttentionInFlight.Dec()
	}()

	start := time.Now()
	seq := frame.Sequence
	result, err := s.cfg.Client.Send(ctx, seq, frame.Data)
	elapsed := time.Since(start)

	outcome := classify(ctx, err)
	metrics.RecordAttentionRequest(outcome, elapsed)

	s.mu.Lock()
	if s.state != models.SchedulerRunning {
		s.mu.Unlock()
		if err == nil {
			s.discarded.Add(1)
			metrics.AttentionDiscardedResponses.Inc()
			s.logger.Debug().Uint64("sequence", seq).Msg("Discarded response received after stop")
		}
		return
	}
	if err != nil {
		s.lastErr = err.Error()
		s.lastFail = true
		s.mu.Unlock()

		s.failures.Add(1)
		if ev := s.failed.Warn(); ev != nil {
			ev.Err(err).Uint64("sequence", seq).Str("result", outcome).Dur("elapsed", elapsed).
				Msg("Attention request failed")
		}
		return
	}
	p, ok := s.cfg.State.store(seq, result)
	s.lastErr = ""
	s.lastFail = false
	s.mu.Unlock()

	if !ok {
		s.logger.Debug().Uint64("sequence", seq).Msg("Ignored stale attention result")
		return
	}
	s.published.Add(1)
	s.cfg.State.notify(p)
}

func classify(ctx context.Context, err error) string {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case ctx.Err() != nil, errors.Is(err, context.Canceled):
		return metrics.ResultCanceled
	case errors.Is(err, inference.ErrMalformedResponse):
		return metrics.ResultMalformed
	case errors.Is(err, inference.ErrNetwork):
		return metrics.ResultNetwork
	default:
		return metrics.ResultOther
	}
}
