// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

package models

import "time"

// BytesPerPixel is the stride of Frame.Data (packed 8-bit RGBA).
const BytesPerPixel = 4

// Frame is a single captured visual sample.
//
// Data holds packed RGBA pixels, row-major, Width*Height*BytesPerPixel bytes.
// Frames are created each tick and consumed immediately by the encoder;
// Data MUST NOT be modified after the frame is handed out by a source.
type Frame struct {
	Data       []byte
	Width      int
	Height     int
	CapturedAt time.Time
}

// Empty reports whether the frame has no usable pixels (capture not warmed up).
func (f *Frame) Empty() bool {
	return f == nil || f.Width <= 0 || f.Height <= 0 || len(f.Data) == 0
}

// EncodedFrame is a Frame rendered as JPEG plus the sequence number it was
// assigned for transmission. Sequence starts at 1 and is never reused within
// a session.
type EncodedFrame struct {
	Sequence uint64
	Data     []byte
}

// InferenceRequest is the JSON body POSTed to the inference endpoint.
// ImageBase64 carries no data-URI prefix.
type InferenceRequest struct {
	FrameNumber uint64 `json:"frame_number"`
	ImageBase64 string `json:"image_base64"`
}
