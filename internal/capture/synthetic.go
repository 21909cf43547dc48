// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

package capture

import (
	"context"
	"time"

	"github.com/tomtom215/proctorlens/internal/config"
	"github.com/tomtom215/proctorlens/internal/models"
)

// SyntheticSource generates a moving test pattern. It needs no hardware and
// is the default for development and load testing.
type SyntheticSource struct {
	*device
	width  int
	height int
	n      uint64
}

// NewSyntheticSource creates an unacquired synthetic source.
func NewSyntheticSource(cfg config.CaptureConfig, registry *Registry) *SyntheticSource {
	return &SyntheticSource{
		device: newDevice(KindSynthetic, cfg.Device, cfg.FPS, cfg.WarmUp, registry),
		width:  cfg.Width,
		height: cfg.Height,
	}
}

// Acquire claims the device and starts generating frames.
func (s *SyntheticSource) Acquire(ctx context.Context) error {
	return s.acquire(ctx, nil, s.next)
}

// CurrentFrame returns the latest generated frame.
func (s *SyntheticSource) CurrentFrame() (*models.Frame, error) {
	return s.currentFrame()
}

// Release stops generation and returns the device claim.
func (s *SyntheticSource) Release() error {
	return s.release()
}

// next runs only on the producer goroutine.
func (s *SyntheticSource) next(context.Context) (*models.Frame, error) {
	s.n++
	return &models.Frame{
		Data:       RenderPattern(s.width, s.height, s.n),
		Width:      s.width,
		Height:     s.height,
		CapturedAt: time.Now(),
	}, nil
}

// RenderPattern draws frame n of the test pattern: a diagonal gradient with
// a bright square sweeping left to right. Output is packed RGBA.
func RenderPattern(width, height int, n uint64) []byte {
	pix := make([]byte, models.BytesPerPixel*width*height)

	size := height / 4
	if size < 1 {
		size = 1
	}
	span := width - size
	if span < 1 {
		span = 1
	}
	boxX := int(n % uint64(span))
	boxY := (height - size) / 2

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := (y*width + x) * models.BytesPerPixel
			if x >= boxX && x < boxX+size && y >= boxY && y < boxY+size {
				pix[i], pix[i+1], pix[i+2] = 240, 240, 240
			} else {
				pix[i] = byte((x * 255) / width)
				pix[i+1] = byte((y * 255) / height)
				pix[i+2] = byte(n)
			}
			pix[i+3] = 255
		}
	}
	return pix
}
