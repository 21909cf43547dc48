// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

/*
Package models defines data structures shared across the Proctorlens service.

Key Components:

  - Frame / EncodedFrame: captured visual samples and their compressed form
  - AttentionMetrics: parsed result of one inference call (every field optional)
  - InferenceRequest: wire payload sent to the inference endpoint
  - SchedulerState / PipelineStatus: attention pipeline lifecycle and tick status
  - Snapshot: read model served to presentation (REST and WebSocket)
  - APIResponse / APIError: standard HTTP response envelope

Ownership:

Frames are ephemeral and never retained past the tick that captured them.
AttentionMetrics values are treated as immutable once published; the
attention state replaces them wholesale rather than merging fields.
*/
package models
