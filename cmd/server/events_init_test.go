// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

package main

import (
	"context"
	"testing"

	"github.com/tomtom215/proctorlens/internal/config"
)

func TestInitEvents_NoForwarding(t *testing.T) {
	c, err := InitEvents(config.EventsConfig{Topic: "attention.snapshot", BufferSize: 8}, nil)
	if err != nil {
		t.Fatalf("InitEvents() error = %v", err)
	}
	defer c.Close(context.Background())

	if c.Bus == nil {
		t.Fatal("bus is nil")
	}
	if c.Forwarder != nil || c.Embedded != nil {
		t.Error("NATS components created without forwarding")
	}
}

func TestInitEvents_Embedded(t *testing.T) {
	c, err := InitEvents(config.EventsConfig{
		Topic:        "attention.snapshot",
		NATSSubject:  "proctorlens.attention.snapshot",
		EmbeddedNATS: true,
		EmbeddedPort: -1,
	}, nil)
	if err != nil {
		t.Fatalf("InitEvents() error = %v", err)
	}

	if c.Embedded == nil || !c.Embedded.IsRunning() {
		t.Fatal("embedded server not running")
	}
	if c.Forwarder == nil || c.Forwarder.Subject() != "proctorlens.attention.snapshot" {
		t.Fatal("forwarder not attached")
	}
	if names := c.Bus.Handlers(); len(names) != 1 || names[0] != "nats-forwarder" {
		t.Errorf("bus handlers = %v", names)
	}

	c.Close(context.Background())
	if c.Embedded.IsRunning() {
		t.Error("embedded server running after Close")
	}
	c.Close(context.Background())
}

func TestInitEvents_MissingTopic(t *testing.T) {
	if _, err := InitEvents(config.EventsConfig{}, nil); err == nil {
		t.Error("expected error for empty topic")
	}
}

func TestEventComponents_NilClose(t *testing.T) {
	var c *EventComponents
	c.Close(context.Background())
}
