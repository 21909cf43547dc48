// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/proctorlens/internal/logging"
	"github.com/tomtom215/proctorlens/internal/metrics"
	"github.com/tomtom215/proctorlens/internal/models"
)

// producer yields the next frame. Returning ErrDeviceLost stops the device;
// any other error skips this interval.
type producer func(ctx context.Context) (*models.Frame, error)

// device is the lifecycle shared by every source in this package: an
// exclusive registry claim plus a goroutine feeding the mailbox.
type device struct {
	kind     string
	id       string
	owner    string
	registry *Registry
	interval time.Duration
	warmUp   time.Duration
	logger   zerolog.Logger

	mu       sync.Mutex
	acquired bool
	released bool
	cancel   context.CancelFunc
	done     chan struct{}

	box mailbox
}

func newDevice(kind, id string, fps int, warmUp time.Duration, registry *Registry) *device {
	if fps <= 0 {
		fps = 1
	}
	return &device{
		kind:     kind,
		id:       id,
		owner:    uuid.New().String(),
		registry: registry,
		interval: time.Second / time.Duration(fps),
		warmUp:   warmUp,
		logger:   logging.WithComponent("capture").With().Str("source", kind).Str("device", id).Logger(),
	}
}

// acquire claims the device, runs open, and starts the producer loop.
func (d *device) acquire(ctx context.Context, open func(context.Context) error, next producer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.released {
		return fmt.Errorf("%w: source already released", ErrDeviceUnavailable)
	}
	if d.acquired {
		return fmt.Errorf("%w: source already acquired", ErrDeviceUnavailable)
	}

	if err := d.registry.Claim(d.id, d.owner); err != nil {
		metrics.RecordAcquisition("busy")
		return err
	}

	if open != nil {
		if err := open(ctx); err != nil {
			d.registry.Release(d.id, d.owner)
			metrics.RecordAcquisition("unavailable")
			if errors.Is(err, ErrDeviceUnavailable) {
				return err
			}
			return fmt.Errorf("%w: %s: %w", ErrDeviceUnavailable, d.id, err)
		}
	}

	// The producer outlives Acquire's ctx; only release stops it.
	runCtx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.done = make(chan struct{})
	d.acquired = true

	go d.run(runCtx, next)

	metrics.RecordAcquisition("success")
	d.logger.Debug().Dur("interval", d.interval).Msg("Capture device acquired")
	return nil
}

func (d *device) run(ctx context.Context, next producer) {
	defer close(d.done)

	if d.warmUp > 0 {
		timer := time.NewTimer(d.warmUp)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		if !d.produceOnce(ctx, next) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// produceOnce returns false when the loop must stop.
func (d *device) produceOnce(ctx context.Context, next producer) bool {
	frame, err := next(ctx)
	switch {
	case err == nil:
		if frame != nil && d.box.put(frame) {
			metrics.CaptureFramesDropped.WithLabelValues(d.kind).Inc()
		}
		return true
	case ctx.Err() != nil:
		return false
	case errors.Is(err, ErrDeviceLost):
		d.box.fail(err)
		d.logger.Warn().Err(err).Msg("Capture device lost")
		return false
	default:
		d.logger.Debug().Err(err).Msg("Frame capture failed")
		return true
	}
}

func (d *device) currentFrame() (*models.Frame, error) {
	return d.box.get()
}

// release stops the producer and returns the claim. Idempotent.
func (d *device) release() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.released {
		return nil
	}
	d.released = true

	if !d.acquired {
		return nil
	}
	d.cancel()
	<-d.done
	d.registry.Release(d.id, d.owner)

	d.logger.Debug().Uint64("dropped_frames", d.box.drops.Load()).Msg("Capture device released")
	return nil
}

// Dropped returns the number of frames overwritten before being read.
func (d *device) Dropped() uint64 {
	return d.box.drops.Load()
}
