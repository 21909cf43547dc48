// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

/*
Package session tracks exam sessions and owns their attention schedulers.

A session is created when the student enters the exam view (Enter) and
destroyed when the exam is submitted (End) or the session sits idle past
the configured timeout. While it exists it has at most one scheduler.

Lifecycle operations on a session are serialized. Start always stops and
releases the previous scheduler before a new one acquires the camera, so a
restart never holds two claims on one device. Each run gets a fresh
attention.State; metrics from an earlier run are not shown as current.

The activation flag lives in a gate.Store keyed by session token. It is read
once per Start and frozen into an attention.StaticGate for that run, and it
cannot be changed while a scheduler is running (ErrGateLocked). Stop keeps
the flag so re-entering the view resumes with the same setting; End deletes
it.
*/
package session
