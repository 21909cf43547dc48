// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

package capture

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"time"

	"github.com/tomtom215/proctorlens/internal/models"
)

// decodeFrame decodes a JPEG or PNG image into a packed RGBA frame.
func decodeFrame(data []byte, at time.Time) (*models.Frame, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return imageToFrame(img, at), nil
}

func imageToFrame(img image.Image, at time.Time) *models.Frame {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != 4*b.Dx() || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	return &models.Frame{
		Data:       rgba.Pix,
		Width:      b.Dx(),
		Height:     b.Dy(),
		CapturedAt: at,
	}
}
