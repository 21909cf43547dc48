// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// setupHubServer serves WebSocket connections bound to session.
func setupHubServer(t *testing.T, hub *Hub, session string, activity func()) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Failed to upgrade connection: %v", err)
			return
		}
		client := NewClient(hub, conn, session)
		if activity != nil {
			client.OnActivity(activity)
		}
		hub.Register <- client
		client.Start()
	}))
	t.Cleanup(server.Close)
	return server
}

// dialWebSocket establishes a WebSocket connection to the test server
func dialWebSocket(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, session string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.SessionClientCount(session) != n {
		if time.Now().After(deadline) {
			t.Fatalf("SessionClientCount(%s) = %d, want %d", session, hub.SessionClientCount(session), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestClient_ReceivesSnapshot(t *testing.T) {
	hub := NewHub()
	runHub(t, hub)
	server := setupHubServer(t, hub, "exam-ws0001", nil)
	conn := dialWebSocket(t, server)
	waitForClients(t, hub, "exam-ws0001", 1)

	hub.BroadcastSnapshot(testSnapshot("exam-ws0001", 4))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg struct {
		Type string `json:"type"`
		Data struct {
			Session  string `json:"session"`
			Sequence uint64 `json:"sequence"`
		} `json:"data"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if msg.Type != MessageTypeSnapshot {
		t.Errorf("Type = %q, want %q", msg.Type, MessageTypeSnapshot)
	}
	if msg.Data.Session != "exam-ws0001" || msg.Data.Sequence != 4 {
		t.Errorf("Data = %+v", msg.Data)
	}
}

func TestClient_PingPong(t *testing.T) {
	hub := NewHub()
	runHub(t, hub)

	var active atomic.Int32
	server := setupHubServer(t, hub, "exam-ws0002", func() { active.Add(1) })
	conn := dialWebSocket(t, server)
	waitForClients(t, hub, "exam-ws0002", 1)

	if err := conn.WriteJSON(Message{Type: MessageTypePing}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if msg.Type != MessageTypePong {
		t.Errorf("Type = %q, want %q", msg.Type, MessageTypePong)
	}
	if active.Load() != 1 {
		t.Errorf("activity callback ran %d times, want 1", active.Load())
	}
}

func TestClient_DisconnectUnregisters(t *testing.T) {
	hub := NewHub()
	runHub(t, hub)
	server := setupHubServer(t, hub, "exam-ws0003", nil)
	conn := dialWebSocket(t, server)
	waitForClients(t, hub, "exam-ws0003", 1)

	_ = conn.Close()
	waitForClients(t, hub, "exam-ws0003", 0)
}

func TestClient_Queue(t *testing.T) {
	c := newTestClient("exam-ws0004", 1)
	if !c.Queue(Message{Type: MessageTypeSnapshot}) {
		t.Error("Queue() on empty buffer = false")
	}
	if c.Queue(Message{Type: MessageTypeSnapshot}) {
		t.Error("Queue() on full buffer = true")
	}
	if c.Session() != "exam-ws0004" {
		t.Errorf("Session() = %q", c.Session())
	}
}

func TestClientConstants(t *testing.T) {
	if pingPeriod >= pongWait {
		t.Errorf("pingPeriod %v must be shorter than pongWait %v", pingPeriod, pongWait)
	}
	if writeWait != 10*time.Second {
		t.Errorf("writeWait = %v, want 10s", writeWait)
	}
}
