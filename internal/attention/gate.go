// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

package attention

// Gate decides whether monitoring may run for a session.
type Gate interface {
	IsEnabled() bool
}

// StaticGate is a Gate fixed at construction. Schedulers take one so the
// decision cannot change while they run.
type StaticGate bool

// IsEnabled implements Gate.
func (g StaticGate) IsEnabled() bool {
	return bool(g)
}
