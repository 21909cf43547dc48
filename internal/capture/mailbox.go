// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

package capture

import (
	"sync"
	"sync/atomic"

	"github.com/tomtom215/proctorlens/internal/models"
)

// mailbox holds the latest frame. Writers overwrite; readers never block.
type mailbox struct {
	mu     sync.Mutex
	frame  *models.Frame
	unread bool
	err    error

	drops atomic.Uint64
}

// put overwrites the held frame and reports whether an unread frame was dropped.
func (m *mailbox) put(f *models.Frame) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	dropped := m.unread
	if dropped {
		m.drops.Add(1)
	}
	m.frame = f
	m.unread = true
	return dropped
}

// fail latches a terminal error; later reads return it.
func (m *mailbox) fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err == nil {
		m.err = err
	}
	m.frame = nil
}

func (m *mailbox) get() (*models.Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	m.unread = false
	return m.frame, nil
}
