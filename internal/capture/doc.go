// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

/*
Package capture provides camera frame sources for the attention scheduler.

A FrameSource is acquired once, polled for its most recent frame on every
scheduler tick, and released when monitoring stops:

	src, err := factory()
	if err != nil { ... }
	if err := src.Acquire(ctx); err != nil {
	    // errors.Is(err, capture.ErrDeviceUnavailable)
	}
	defer src.Release()

	frame, err := src.CurrentFrame() // nil, nil before the first frame

Every source runs a producer goroutine that writes into a single-slot
mailbox. A new frame overwrites the previous one; frames overwritten before
anyone read them are counted as drops. Consumers therefore always see the
latest frame and never a backlog.

# Exclusive Devices

A Registry grants one holder per device identifier. Acquiring a device that
another source holds fails with ErrDeviceBusy, which also matches
ErrDeviceUnavailable. Release returns the claim, so a restarted scheduler can
acquire the same device again.

# Sources

  - synthetic: moving test pattern at a configured FPS and resolution
  - directory: replays .jpg, .jpeg and .png files in lexical order, looping
  - snapshot: polls an IP camera snapshot URL

A source whose device fails irrecoverably reports ErrDeviceLost from
CurrentFrame; the scheduler treats that as terminal.
*/
package capture
