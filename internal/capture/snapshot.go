// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

package capture

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tomtom215/proctorlens/internal/config"
	"github.com/tomtom215/proctorlens/internal/models"
)

const (
	// maxSnapshotBytes bounds a single snapshot body.
	maxSnapshotBytes = 16 << 20

	// maxSnapshotFailures consecutive failed polls mark the camera as lost.
	maxSnapshotFailures = 10
)

// SnapshotSource polls an IP camera snapshot endpoint (a URL returning a
// single JPEG or PNG per GET).
type SnapshotSource struct {
	*device
	url     string
	client  *http.Client
	timeout time.Duration

	failures int
}

// NewSnapshotSource creates an unacquired snapshot source. A nil client
// uses a dedicated client with the configured snapshot timeout.
func NewSnapshotSource(cfg config.CaptureConfig, registry *Registry, client *http.Client) *SnapshotSource {
	timeout := cfg.SnapshotTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &SnapshotSource{
		device:  newDevice(KindSnapshot, cfg.Device, cfg.FPS, cfg.WarmUp, registry),
		url:     cfg.SnapshotURL,
		client:  client,
		timeout: timeout,
	}
}

// Acquire probes the endpoint once and starts polling.
func (s *SnapshotSource) Acquire(ctx context.Context) error {
	return s.acquire(ctx, s.probe, s.next)
}

// CurrentFrame returns the latest fetched snapshot.
func (s *SnapshotSource) CurrentFrame() (*models.Frame, error) {
	return s.currentFrame()
}

// Release stops polling and returns the device claim.
func (s *SnapshotSource) Release() error {
	return s.release()
}

func (s *SnapshotSource) probe(ctx context.Context) error {
	_, err := s.fetch(ctx)
	return err
}

func (s *SnapshotSource) next(ctx context.Context) (*models.Frame, error) {
	frame, err := s.fetch(ctx)
	if err == nil {
		s.failures = 0
		return frame, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}

	s.failures++
	if s.failures >= maxSnapshotFailures {
		return nil, fmt.Errorf("%w: %d consecutive snapshot failures: %w", ErrDeviceLost, s.failures, err)
	}
	return nil, err
}

func (s *SnapshotSource) fetch(ctx context.Context) (*models.Frame, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create snapshot request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snapshot request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxSnapshotBytes))
		return nil, fmt.Errorf("snapshot endpoint returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotBytes))
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return decodeFrame(data, time.Now())
}
