// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

package models

import "time"

// AttentionMetrics is the parsed result of one inference call.
//
// Every field is optional: the inference service may omit any of them, and a
// nil pointer means "not reported", which is different from a zero value.
type AttentionMetrics struct {
	FaceDetected    *bool    `json:"face_detected,omitempty"`
	AttentionLevel  *string  `json:"attention_level,omitempty"`
	AttentionScore  *float64 `json:"attention_score,omitempty"`
	IsConcentrated  *bool    `json:"is_concentrated,omitempty"`
	EAR             *float64 `json:"ear,omitempty"`
	PERCLOS         *float64 `json:"perclos,omitempty"`
	BlinksPerMinute *float64 `json:"blinks_per_minute,omitempty"`
	MAR             *float64 `json:"mar,omitempty"`
	HeadYaw         *float64 `json:"head_yaw,omitempty"`
	HeadPitch       *float64 `json:"head_pitch,omitempty"`
	GazeFocus       *string  `json:"gaze_focus,omitempty"`
	GazeDispersion  *float64 `json:"gaze_dispersion,omitempty"`
}

// Clone returns a deep copy so a published snapshot can never be mutated
// through a pointer the producer still holds.
func (m *AttentionMetrics) Clone() *AttentionMetrics {
	if m == nil {
		return nil
	}
	return &AttentionMetrics{
		FaceDetected:    cloneBool(m.FaceDetected),
		AttentionLevel:  cloneString(m.AttentionLevel),
		AttentionScore:  cloneFloat(m.AttentionScore),
		IsConcentrated:  cloneBool(m.IsConcentrated),
		EAR:             cloneFloat(m.EAR),
		PERCLOS:         cloneFloat(m.PERCLOS),
		BlinksPerMinute: cloneFloat(m.BlinksPerMinute),
		MAR:             cloneFloat(m.MAR),
		HeadYaw:         cloneFloat(m.HeadYaw),
		HeadPitch:       cloneFloat(m.HeadPitch),
		GazeFocus:       cloneString(m.GazeFocus),
		GazeDispersion:  cloneFloat(m.GazeDispersion),
	}
}

func cloneBool(v *bool) *bool {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// SchedulerState is the lifecycle state of an attention scheduler.
type SchedulerState string

const (
	// SchedulerIdle is the initial state; no capture device is held.
	SchedulerIdle SchedulerState = "idle"
	// SchedulerRunning means ticks are being issued.
	SchedulerRunning SchedulerState = "running"
	// SchedulerStopped is terminal; the capture device has been released.
	SchedulerStopped SchedulerState = "stopped"
)

// PipelineStatus is the derived per-tick status of a running pipeline.
type PipelineStatus string

const (
	PipelineIdle             PipelineStatus = "idle"
	PipelineCapturing        PipelineStatus = "capturing"
	PipelineAwaitingResponse PipelineStatus = "awaiting_response"
	PipelineError            PipelineStatus = "error"
)

// Snapshot is the presentation read model for one exam session.
type Snapshot struct {
	Session     string            `json:"session"`
	Enabled     bool              `json:"enabled"`
	State       SchedulerState    `json:"state"`
	Status      PipelineStatus    `json:"status"`
	Metrics     *AttentionMetrics `json:"metrics"`
	Sequence    uint64            `json:"sequence,omitempty"`
	PublishedAt *time.Time        `json:"published_at,omitempty"`
	LastError   string            `json:"last_error,omitempty"`
}
