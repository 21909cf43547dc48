// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

package capture

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/tomtom215/proctorlens/internal/config"
	"github.com/tomtom215/proctorlens/internal/models"
)

var (
	// ErrDeviceUnavailable means the device does not exist, cannot be opened,
	// or is held by another source.
	ErrDeviceUnavailable = errors.New("capture device unavailable")

	// ErrDeviceBusy means another source holds the device.
	ErrDeviceBusy = fmt.Errorf("%w: device busy", ErrDeviceUnavailable)

	// ErrDeviceLost means the device failed after acquisition and will not recover.
	ErrDeviceLost = errors.New("capture device lost")
)

// FrameSource is a camera handle owned by exactly one scheduler.
type FrameSource interface {
	// Acquire opens the device. Errors wrap ErrDeviceUnavailable.
	Acquire(ctx context.Context) error

	// CurrentFrame returns the most recent frame, or nil before the first one.
	// It returns ErrDeviceLost once the device has failed irrecoverably.
	CurrentFrame() (*models.Frame, error)

	// Release closes the device and returns its claim. Safe to call more than once.
	Release() error
}

// Factory builds a fresh, unacquired FrameSource.
type Factory func() (FrameSource, error)

// FactoryOption customizes sources built by NewFactory.
type FactoryOption func(*factoryOptions)

type factoryOptions struct {
	httpClient *http.Client
}

// WithHTTPClient sets the client used by snapshot sources.
func WithHTTPClient(c *http.Client) FactoryOption {
	return func(o *factoryOptions) {
		o.httpClient = c
	}
}

// NewFactory returns a Factory for the configured source kind.
func NewFactory(cfg config.CaptureConfig, registry *Registry, opts ...FactoryOption) (Factory, error) {
	if registry == nil {
		return nil, errors.New("capture registry is required")
	}

	var o factoryOptions
	for _, opt := range opts {
		opt(&o)
	}

	switch cfg.Kind {
	case KindSynthetic, "":
		return func() (FrameSource, error) {
			return NewSyntheticSource(cfg, registry), nil
		}, nil
	case KindDirectory:
		if cfg.Directory == "" {
			return nil, errors.New("directory source requires a directory")
		}
		return func() (FrameSource, error) {
			return NewDirectorySource(cfg, registry), nil
		}, nil
	case KindSnapshot:
		if cfg.SnapshotURL == "" {
			return nil, errors.New("snapshot source requires a URL")
		}
		return func() (FrameSource, error) {
			return NewSnapshotSource(cfg, registry, o.httpClient), nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown capture kind %q (expected synthetic, directory or snapshot)", cfg.Kind)
	}
}

// Source kinds.
const (
	KindSynthetic = "synthetic"
	KindDirectory = "directory"
	KindSnapshot  = "snapshot"
)
