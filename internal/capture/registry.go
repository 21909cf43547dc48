// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

package capture

import (
	"fmt"
	"sync"
)

// Registry tracks which source currently holds each device.
type Registry struct {
	mu      sync.Mutex
	holders map[string]string // device -> owner
}

// NewRegistry creates an empty device registry.
func NewRegistry() *Registry {
	return &Registry{holders: make(map[string]string)}
}

// Claim grants device to owner. Claiming a device you already hold is a no-op.
func (r *Registry) Claim(device, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if holder, held := r.holders[device]; held && holder != owner {
		return fmt.Errorf("%w: %s", ErrDeviceBusy, device)
	}
	r.holders[device] = owner
	return nil
}

// Release returns device if owner holds it. Releasing a claim held by
// someone else is ignored.
func (r *Registry) Release(device, owner string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.holders[device] == owner {
		delete(r.holders, device)
	}
}

// Holder reports the current owner of device.
func (r *Registry) Holder(device string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	owner, ok := r.holders[device]
	return owner, ok
}

// Held returns the number of claimed devices.
func (r *Registry) Held() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.holders)
}
