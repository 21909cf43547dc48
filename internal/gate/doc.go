// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

// Package gate persists the per-session "attention active" flag.
//
// The flag survives the student leaving and re-entering the exam view, so a
// session that was activated stays activated until it is ended. A session
// with no stored flag is treated as disabled.
//
// Two backends are provided: BadgerStore (durable, optional TTL) and
// MemoryStore (tests and single-process deployments). NewStoreFactory picks
// one from configuration.
package gate
