// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

// Package encoding turns captured frames into the compressed payload sent to
// the inference service.
package encoding

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"time"

	"github.com/tomtom215/proctorlens/internal/metrics"
	"github.com/tomtom215/proctorlens/internal/models"
)

// ErrEncoding means the frame could not be encoded. The tick that produced
// it is skipped.
var ErrEncoding = errors.New("frame encoding failed")

// DefaultQuality is used when JPEGEncoder.Quality is outside 1..100.
const DefaultQuality = 80

// Encoder converts a frame into a byte sequence suitable for transmission.
// Implementations must be deterministic for identical input.
type Encoder interface {
	Encode(frame *models.Frame) ([]byte, error)
}

// JPEGEncoder encodes packed RGBA frames as baseline JPEG.
type JPEGEncoder struct {
	Quality int
}

// NewJPEGEncoder returns a JPEG encoder at the given quality (1-100).
func NewJPEGEncoder(quality int) *JPEGEncoder {
	return &JPEGEncoder{Quality: quality}
}

// Encode returns ErrEncoding for nil frames, non-positive dimensions, or a
// pixel buffer shorter than Width*Height*4.
func (e *JPEGEncoder) Encode(frame *models.Frame) ([]byte, error) {
	if frame == nil {
		return nil, fmt.Errorf("%w: nil frame", ErrEncoding)
	}
	if frame.Width <= 0 || frame.Height <= 0 {
		return nil, fmt.Errorf("%w: invalid dimensions %dx%d", ErrEncoding, frame.Width, frame.Height)
	}
	need := frame.Width * frame.Height * models.BytesPerPixel
	if len(frame.Data) < need {
		return nil, fmt.Errorf("%w: pixel buffer has %d bytes, need %d", ErrEncoding, len(frame.Data), need)
	}

	start := time.Now()
	img := &image.RGBA{
		Pix:    frame.Data[:need],
		Stride: frame.Width * models.BytesPerPixel,
		Rect:   image.Rect(0, 0, frame.Width, frame.Height),
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: e.quality()}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncoding, err)
	}
	metrics.EncodeDuration.Observe(time.Since(start).Seconds())

	return buf.Bytes(), nil
}

func (e *JPEGEncoder) quality() int {
	if e.Quality < 1 || e.Quality > 100 {
		return DefaultQuality
	}
	return e.Quality
}

// Base64 renders an encoded frame for the inference request body: standard
// padded base64 with no data-URI prefix.
func Base64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
