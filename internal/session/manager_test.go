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
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/proctorlens/internal/attention"
	"github.com/tomtom215/proctorlens/internal/capture"
	"github.com/tomtom215/proctorlens/internal/config"
	"github.com/tomtom215/proctorlens/internal/encoding"
	"github.com/tomtom215/proctorlens/internal/gate"
	"github.com/tomtom215/proctorlens/internal/inference"
	"github.com/tomtom215/proctorlens/internal/models"
)

const (
	tokenA = "exam-session-aaaa"
	tokenB = "exam-session-bbbb"
)

// scoreClient answers 0.82 until fail is set, then reports network errors.
type scoreClient struct {
	calls atomic.Int64
	fail  atomic.Bool

	mu   sync.Mutex
	seqs []uint64
}

func (c *scoreClient) Send(_ context.Context, seq uint64, _ []byte) (*models.AttentionMetrics, error) {
	c.calls.Add(1)
	c.mu.Lock()
	c.seqs = append(c.seqs, seq)
	c.mu.Unlock()
	if c.fail.Load() {
		return nil, fmt.Errorf("%w: connection refused", inference.ErrNetwork)
	}
	v := 0.82
	return &models.AttentionMetrics{AttentionScore: &v}, nil
}

func (c *scoreClient) sequences() []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uint64(nil), c.seqs...)
}

type capturePublisher struct {
	mu    sync.Mutex
	snaps []models.Snapshot
}

func (p *capturePublisher) PublishSnapshot(snap models.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snaps = append(p.snaps, snap)
	return nil
}

func (p *capturePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.snaps)
}

type testEnv struct {
	manager   *Manager
	registry  *capture.Registry
	gates     *gate.MemoryStore
	client    *scoreClient
	publisher *capturePublisher
	acquires  atomic.Int64
}

// countingSource counts Acquire calls on a real synthetic source.
type countingSource struct {
	capture.FrameSource
	env *testEnv
}

func (c countingSource) Acquire(ctx context.Context) error {
	c.env.acquires.Add(1)
	return c.FrameSource.Acquire(ctx)
}

func newTestEnv(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()
	env := &testEnv{
		registry:  capture.NewRegistry(),
		gates:     gate.NewMemoryStore(0),
		client:    &scoreClient{},
		publisher: &capturePublisher{},
	}

	factory, err := capture.NewFactory(config.CaptureConfig{
		Kind:   capture.KindSynthetic,
		Device: "camera-test",
		Width:  32,
		Height: 24,
		FPS:    100,
	}, env.registry)
	if err != nil {
		t.Fatalf("NewFactory() error = %v", err)
	}

	cfg := Config{
		TickInterval:  20 * time.Millisecond,
		IdleTimeout:   time.Hour,
		SweepInterval: time.Minute,
		MaxSessions:   8,
		Gates:         env.gates,
		NewSource: func() (capture.FrameSource, error) {
			src, err := factory()
			if err != nil {
				return nil, err
			}
			return countingSource{FrameSource: src, env: env}, nil
		},
		Encoder:   encoding.NewJPEGEncoder(80),
		Client:    env.client,
		Publisher: env.publisher,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	env.manager = m
	t.Cleanup(m.Shutdown)
	return env
}

func (e *testEnv) enterActivated(t *testing.T, token string) {
	t.Helper()
	ctx := context.Background()
	if _, err := e.manager.Enter(ctx, token); err != nil {
		t.Fatalf("Enter() error = %v", err)
	}
	if err := e.manager.SetActivation(ctx, token, true); err != nil {
		t.Fatalf("SetActivation() error = %v", err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestNewManager_RequiresCollaborators(t *testing.T) {
	if _, err := NewManager(Config{}); err == nil {
		t.Error("expected error for empty config")
	}
}

func TestManager_Enter(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"valid", tokenA, nil},
		{"idempotent", tokenA, nil},
		{"too short", "abc", ErrInvalidToken},
		{"bad characters", "exam session/1", ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := env.manager.Enter(ctx, tt.token)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Enter() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Enter() error = %v", err)
			}
			if snap.Session != tt.token || snap.Enabled || snap.State != models.SchedulerIdle {
				t.Errorf("snapshot = %+v", snap)
			}
			if snap.Metrics != nil {
				t.Error("new session should have no metrics")
			}
		})
	}

	if env.manager.Count() != 1 {
		t.Errorf("Count() = %d, want 1", env.manager.Count())
	}
}

func TestManager_MaxSessions(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.MaxSessions = 1 })
	ctx := context.Background()

	if _, err := env.manager.Enter(ctx, tokenA); err != nil {
		t.Fatalf("Enter() error = %v", err)
	}
	if _, err := env.manager.Enter(ctx, tokenB); !errors.Is(err, ErrTooManySessions) {
		t.Errorf("Enter() error = %v, want ErrTooManySessions", err)
	}
}

func TestManager_UnknownSession(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	if _, err := env.manager.Activation(ctx, tokenA); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Activation() error = %v", err)
	}
	if err := env.manager.SetActivation(ctx, tokenA, true); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("SetActivation() error = %v", err)
	}
	if _, err := env.manager.Start(ctx, tokenA); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Start() error = %v", err)
	}
	if _, err := env.manager.Stop(ctx, tokenA); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Stop() error = %v", err)
	}
	if err := env.manager.End(ctx, tokenA); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("End() error = %v", err)
	}
	if _, err := env.manager.Snapshot(ctx, tokenA); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Snapshot() error = %v", err)
	}
	if err := env.manager.Touch(tokenA); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Touch() error = %v", err)
	}
}

func TestManager_DisabledGateNeverAcquires(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	if _, err := env.manager.Enter(ctx, tokenA); err != nil {
		t.Fatalf("Enter() error = %v", err)
	}

	// Never activated, then explicitly disabled.
	for i := 0; i < 2; i++ {
		if _, err := env.manager.Start(ctx, tokenA); !errors.Is(err, attention.ErrActivationDisabled) {
			t.Fatalf("Start() error = %v, want ErrActivationDisabled", err)
		}
		if err := env.manager.SetActivation(ctx, tokenA, false); err != nil {
			t.Fatalf("SetActivation() error = %v", err)
		}
	}

	if n := env.acquires.Load(); n != 0 {
		t.Errorf("Acquire called %d times with gate disabled", n)
	}
	if env.registry.Held() != 0 {
		t.Errorf("registry holds %d devices", env.registry.Held())
	}
	if env.client.calls.Load() != 0 {
		t.Errorf("inference called %d times", env.client.calls.Load())
	}
}

func TestManager_StartPublishesAndStops(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.enterActivated(t, tokenA)

	snap, err := env.manager.Start(ctx, tokenA)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if snap.State != models.SchedulerRunning || !snap.Enabled {
		t.Errorf("Start() snapshot = %+v", snap)
	}

	waitFor(t, "published metrics", func() bool {
		s, err := env.manager.Snapshot(ctx, tokenA)
		return err == nil && s.Metrics != nil && s.Sequence > 0
	})
	waitFor(t, "bus publish", func() bool { return env.publisher.count() > 0 })

	env.publisher.mu.Lock()
	first := env.publisher.snaps[0]
	env.publisher.mu.Unlock()
	if first.Session != tokenA || first.Metrics == nil || *first.Metrics.AttentionScore != 0.82 {
		t.Errorf("published snapshot = %+v", first)
	}

	stopped, err := env.manager.Stop(ctx, tokenA)
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if stopped.State != models.SchedulerStopped {
		t.Errorf("State = %s, want stopped", stopped.State)
	}
	if stopped.Metrics == nil {
		t.Error("last metrics should remain visible after Stop")
	}
	if env.registry.Held() != 0 {
		t.Error("device still held after Stop")
	}

	enabled, err := env.manager.Activation(ctx, tokenA)
	if err != nil || !enabled {
		t.Errorf("Activation() after Stop = %v, %v; want flag retained", enabled, err)
	}
}

func TestManager_RestartDoesNotLeakDevice(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.enterActivated(t, tokenA)

	for i := 0; i < 3; i++ {
		if _, err := env.manager.Start(ctx, tokenA); err != nil {
			t.Fatalf("Start() #%d error = %v", i+1, err)
		}
		if env.registry.Held() != 1 {
			t.Fatalf("Held() = %d after start #%d, want 1", env.registry.Held(), i+1)
		}
		if _, err := env.manager.Stop(ctx, tokenA); err != nil {
			t.Fatalf("Stop() error = %v", err)
		}
		if env.registry.Held() != 0 {
			t.Fatalf("Held() = %d after stop #%d, want 0", env.registry.Held(), i+1)
		}
	}
	if n := env.acquires.Load(); n != 3 {
		t.Errorf("acquires = %d, want 3", n)
	}
}

// Leaving and re-entering the exam view keeps frame numbers increasing.
func TestManager_SequenceContinuesAcrossRestart(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.enterActivated(t, tokenA)

	for run := 1; run <= 2; run++ {
		before := env.client.calls.Load()
		if _, err := env.manager.Start(ctx, tokenA); err != nil {
			t.Fatalf("Start() run %d error = %v", run, err)
		}
		waitFor(t, "three sends", func() bool { return env.client.calls.Load() >= before+3 })
		if _, err := env.manager.Stop(ctx, tokenA); err != nil {
			t.Fatalf("Stop() run %d error = %v", run, err)
		}
	}

	seqs := env.client.sequences()
	if len(seqs) < 6 || seqs[0] != 1 {
		t.Fatalf("sequences = %v, want at least six starting at 1", seqs)
	}
	for i := 1; i < len(seqs); i++ {
		if seqs[i] <= seqs[i-1] {
			t.Fatalf("sequence %d sent after %d: %v", seqs[i], seqs[i-1], seqs)
		}
	}
}

// A restart that only sees network errors keeps showing the last metrics.
func TestManager_RestartKeepsLastMetrics(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.enterActivated(t, tokenA)

	if _, err := env.manager.Start(ctx, tokenA); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, "published metrics", func() bool {
		s, err := env.manager.Snapshot(ctx, tokenA)
		return err == nil && s.Metrics != nil
	})
	stopped, err := env.manager.Stop(ctx, tokenA)
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	lastSeq := stopped.Sequence

	env.client.fail.Store(true)
	before := env.client.calls.Load()
	if _, err := env.manager.Start(ctx, tokenA); err != nil {
		t.Fatalf("restart error = %v", err)
	}
	waitFor(t, "failed requests", func() bool { return env.client.calls.Load() >= before+2 })

	snap, err := env.manager.Snapshot(ctx, tokenA)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if snap.Metrics == nil || snap.Metrics.AttentionScore == nil || *snap.Metrics.AttentionScore != 0.82 {
		t.Errorf("Metrics = %+v, want last published metrics kept", snap.Metrics)
	}
	if snap.Sequence != lastSeq {
		t.Errorf("Sequence = %d, want %d", snap.Sequence, lastSeq)
	}
	if snap.Status != models.PipelineError && snap.Status != models.PipelineAwaitingResponse {
		t.Errorf("Status = %s, want error or awaiting_response", snap.Status)
	}
}

func TestManager_StartWhileRunning(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.enterActivated(t, tokenA)

	if _, err := env.manager.Start(ctx, tokenA); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := env.manager.Start(ctx, tokenA); !errors.Is(err, attention.ErrInvalidState) {
		t.Errorf("second Start() error = %v, want ErrInvalidState", err)
	}
	if env.registry.Held() != 1 {
		t.Errorf("Held() = %d, want 1", env.registry.Held())
	}
}

func TestManager_DeviceExclusive(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.enterActivated(t, tokenA)
	env.enterActivated(t, tokenB)

	if _, err := env.manager.Start(ctx, tokenA); err != nil {
		t.Fatalf("Start(A) error = %v", err)
	}
	_, err := env.manager.Start(ctx, tokenB)
	if !errors.Is(err, capture.ErrDeviceUnavailable) {
		t.Fatalf("Start(B) error = %v, want ErrDeviceUnavailable", err)
	}
	snapB, err := env.manager.Snapshot(ctx, tokenB)
	if err != nil {
		t.Fatalf("Snapshot(B) error = %v", err)
	}
	if snapB.State != models.SchedulerIdle {
		t.Errorf("B state = %s, want idle", snapB.State)
	}

	if _, err := env.manager.Stop(ctx, tokenA); err != nil {
		t.Fatalf("Stop(A) error = %v", err)
	}
	if _, err := env.manager.Start(ctx, tokenB); err != nil {
		t.Errorf("Start(B) after A stopped error = %v", err)
	}
}

func TestManager_GateLockedWhileRunning(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.enterActivated(t, tokenA)

	if _, err := env.manager.Start(ctx, tokenA); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := env.manager.SetActivation(ctx, tokenA, false); !errors.Is(err, ErrGateLocked) {
		t.Fatalf("SetActivation() while running = %v, want ErrGateLocked", err)
	}
	if enabled, _ := env.manager.Activation(ctx, tokenA); !enabled {
		t.Error("flag changed despite lock")
	}

	if _, err := env.manager.Stop(ctx, tokenA); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := env.manager.SetActivation(ctx, tokenA, false); err != nil {
		t.Errorf("SetActivation() after Stop = %v", err)
	}
	if _, err := env.manager.Start(ctx, tokenA); !errors.Is(err, attention.ErrActivationDisabled) {
		t.Errorf("Start() after disabling = %v, want ErrActivationDisabled", err)
	}
}

func TestManager_EndDeletesFlagAndSession(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.enterActivated(t, tokenA)

	if _, err := env.manager.Start(ctx, tokenA); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := env.manager.End(ctx, tokenA); err != nil {
		t.Fatalf("End() error = %v", err)
	}

	if env.manager.Exists(tokenA) {
		t.Error("session still registered after End")
	}
	if env.registry.Held() != 0 {
		t.Error("device still held after End")
	}
	if enabled, _ := env.gates.Get(ctx, tokenA); enabled {
		t.Error("activation flag survived End")
	}

	// Re-entering starts from a clean, disabled session.
	snap, err := env.manager.Enter(ctx, tokenA)
	if err != nil {
		t.Fatalf("Enter() error = %v", err)
	}
	if snap.Enabled || snap.Metrics != nil {
		t.Errorf("re-entered snapshot = %+v", snap)
	}
}

func TestManager_FlagSurvivesReentry(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.enterActivated(t, tokenA)

	if _, err := env.manager.Stop(ctx, tokenA); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	snap, err := env.manager.Enter(ctx, tokenA)
	if err != nil {
		t.Fatalf("Enter() error = %v", err)
	}
	if !snap.Enabled {
		t.Error("re-entering the view disabled monitoring")
	}
}

func TestManager_Sweep(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.IdleTimeout = 30 * time.Millisecond })
	ctx := context.Background()
	env.enterActivated(t, tokenA)
	env.enterActivated(t, tokenB)

	if _, err := env.manager.Start(ctx, tokenB); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	time.Sleep(60 * time.Millisecond)

	if n := env.manager.Sweep(); n != 1 {
		t.Fatalf("Sweep() = %d, want 1", n)
	}
	if env.manager.Exists(tokenA) {
		t.Error("idle session A not removed")
	}
	if !env.manager.Exists(tokenB) {
		t.Error("running session B removed")
	}
	// Sweep keeps the flag; only End deletes it.
	if enabled, _ := env.gates.Get(ctx, tokenA); !enabled {
		t.Error("sweep deleted the activation flag")
	}
}

func TestManager_EndedCallback(t *testing.T) {
	var mu sync.Mutex
	got := map[string]string{}
	env := newTestEnv(t, func(c *Config) {
		c.IdleTimeout = 30 * time.Millisecond
		c.Ended = func(token, reason string) {
			mu.Lock()
			got[token] = reason
			mu.Unlock()
		}
	})
	ctx := context.Background()
	for _, token := range []string{tokenA, tokenB} {
		if _, err := env.manager.Enter(ctx, token); err != nil {
			t.Fatalf("Enter() error = %v", err)
		}
	}

	if err := env.manager.End(ctx, tokenA); err != nil {
		t.Fatalf("End() error = %v", err)
	}
	time.Sleep(60 * time.Millisecond)
	env.manager.Sweep()

	mu.Lock()
	defer mu.Unlock()
	if got[tokenA] != EndReasonSubmitted {
		t.Errorf("reason for A = %q, want %q", got[tokenA], EndReasonSubmitted)
	}
	if got[tokenB] != EndReasonExpired {
		t.Errorf("reason for B = %q, want %q", got[tokenB], EndReasonExpired)
	}
}

func TestManager_SweepDisabled(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.IdleTimeout = 0 })
	if _, err := env.manager.Enter(context.Background(), tokenA); err != nil {
		t.Fatalf("Enter() error = %v", err)
	}
	if n := env.manager.Sweep(); n != 0 {
		t.Errorf("Sweep() = %d, want 0", n)
	}
}

func TestManager_ServeShutdownReleasesDevices(t *testing.T) {
	env := newTestEnv(t, nil)
	env.enterActivated(t, tokenA)

	if _, err := env.manager.Start(context.Background(), tokenA); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.manager.Serve(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return")
	}
	if env.registry.Held() != 0 {
		t.Error("device still held after shutdown")
	}
}
