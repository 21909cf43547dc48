// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

package api

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/proctorlens/internal/models"
	ws "github.com/tomtom215/proctorlens/internal/websocket"
)

type wsSnapshotMessage struct {
	Type string          `json:"type"`
	Data models.Snapshot `json:"data"`
}

func (e *apiEnv) dial(t *testing.T, token, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.server.URL, "http") + sessionPath(token, "/ws")
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if conn != nil {
		t.Cleanup(func() { _ = conn.Close() })
	}
	return conn, resp, err
}

func readMessage(t *testing.T, conn *websocket.Conn) wsSnapshotMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var msg wsSnapshotMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return msg
}

func TestWebSocket_StreamsSnapshots(t *testing.T) {
	env := newAPIEnv(t, nil)
	env.enterActivated(t, testToken)

	conn, _, err := env.dial(t, testToken, testOrigin)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	initial := readMessage(t, conn)
	if initial.Type != ws.MessageTypeSnapshot || initial.Data.Session != testToken {
		t.Fatalf("initial message = %+v", initial)
	}
	if initial.Data.Sequence != 0 {
		t.Errorf("initial sequence = %d, want 0", initial.Data.Sequence)
	}

	if code, _ := env.do(t, http.MethodPost, sessionPath(testToken, "/start"), nil); code != http.StatusOK {
		t.Fatalf("start = %d", code)
	}

	var last uint64
	for i := 0; i < 3; i++ {
		msg := readMessage(t, conn)
		if msg.Type != ws.MessageTypeSnapshot {
			t.Fatalf("type = %q", msg.Type)
		}
		if msg.Data.Sequence <= last {
			t.Errorf("sequence %d after %d", msg.Data.Sequence, last)
		}
		last = msg.Data.Sequence
	}
}

func TestWebSocket_SessionEnded(t *testing.T) {
	env := newAPIEnv(t, nil)
	env.do(t, http.MethodPut, sessionPath(testToken, ""), nil)

	conn, _, err := env.dial(t, testToken, testOrigin)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	readMessage(t, conn)
	waitFor(t, "client registration", func() bool { return env.hub.SessionClientCount(testToken) == 1 })

	if code, _ := env.do(t, http.MethodDelete, sessionPath(testToken, ""), nil); code != http.StatusNoContent {
		t.Fatalf("DELETE = %d", code)
	}

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var msg ws.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if msg.Type != ws.MessageTypeSessionEnded {
		t.Errorf("type = %q, want %q", msg.Type, ws.MessageTypeSessionEnded)
	}
}

func TestWebSocket_Rejections(t *testing.T) {
	env := newAPIEnv(t, nil)
	env.do(t, http.MethodPut, sessionPath(testToken, ""), nil)

	tests := []struct {
		name     string
		token    string
		origin   string
		wantCode int
	}{
		{"unknown session", "never-entered", testOrigin, http.StatusNotFound},
		{"missing origin", testToken, "", http.StatusForbidden},
		{"foreign origin", testToken, "http://evil.test", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp, err := env.dial(t, tt.token, tt.origin)
			if err == nil {
				t.Fatal("expected dial to fail")
			}
			if resp == nil || resp.StatusCode != tt.wantCode {
				t.Errorf("response = %v, want status %d", resp, tt.wantCode)
			}
		})
	}
}
