// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

/*
Package attention runs the per-session attention acquisition loop.

A Scheduler ticks at a fixed interval. Each tick captures the latest frame,
encodes it, assigns the next sequence number and sends it to the inference
service; a successful response replaces the session's State wholesale.

# Lifecycle

	Idle --Start--> Running --Stop / ctx done / device lost--> Stopped

Start refuses with ErrActivationDisabled when the Gate is off (the capture
device is never touched) and with ErrInvalidState unless the scheduler is
Idle. A failed acquisition keeps it Idle and returns an error matching
capture.ErrDeviceUnavailable. Stopped is terminal: build a new Scheduler to
monitor again.

# Backpressure

At most one request is in flight. A tick that fires while a response is
outstanding is skipped entirely: nothing is captured and nothing is queued.
Sequence numbers are assigned only to frames actually sent, so they are
strictly increasing with no duplicates.

# Failures

Encoding errors and missing frames skip the tick silently. Network and
malformed-response errors are logged (rate limited) and leave State as it
was; the next tick simply tries again. capture.ErrDeviceLost stops the
scheduler.

Stop cancels the in-flight request and releases the capture device before
returning. A response that still arrives afterwards is discarded.
*/
package attention
