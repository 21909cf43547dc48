// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
)

func TestWatermillAdapter(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewWatermillAdapterWithLogger(NewTestLogger(&buf)).
		With(watermill.LogFields{"topic": "attention.snapshot"})

	adapter.Info("subscribed", watermill.LogFields{"consumer": "hub"})
	adapter.Error("publish failed", errors.New("closed"), nil)

	out := buf.String()
	for _, want := range []string{`"topic":"attention.snapshot"`, `"consumer":"hub"`, `"error":"closed"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output %s missing %s", out, want)
		}
	}
}
