// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

package websocket

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/proctorlens/internal/logging"
	"github.com/tomtom215/proctorlens/internal/metrics"
	"github.com/tomtom215/proctorlens/internal/models"
)

// ShutdownReason is logged when the hub stops.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types on the viewer socket.
const (
	MessageTypeSnapshot     = "attention_snapshot"
	MessageTypeSessionEnded = "session_ended"
	MessageTypePing         = "ping"
	MessageTypePong         = "pong"
)

// Message is the envelope for every frame written to or read from a viewer.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type SessionEndedData struct {
	Session string `json:"session"`
	Reason  string `json:"reason"`
}

type delivery struct {
	session string
	message Message
}

const deliveryBuffer = 256

// Hub routes snapshots to the viewers of each session. All mutation of the
// session index happens on the hub goroutine; the mutex only guards reads
// from the count accessors.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client

	queue chan delivery
	done  chan struct{}
	once  sync.Once

	mu       sync.RWMutex
	sessions map[string][]*Client // ordered by client id
	total    int
}

func NewHub() *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		queue:      make(chan delivery, deliveryBuffer),
		done:       make(chan struct{}),
		sessions:   make(map[string][]*Client),
	}
}

// Serve implements suture.Service.
func (h *Hub) Serve(ctx context.Context) error { return h.RunWithContext(ctx) }

func (h *Hub) String() string { return "websocket-hub" }

// Done is closed once the hub has stopped and closed its clients.
func (h *Hub) Done() <-chan struct{} { return h.done }

// RunWithContext runs the hub loop until ctx ends. Pending registrations are
// drained before each delivery so a viewer that registered before a
// snapshot was queued receives it.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			h.stop(ctx)
			return ctx.Err()
		}
		if h.drainLifecycle() {
			continue
		}

		select {
		case <-ctx.Done():
		case c := <-h.Register:
			h.add(c)
		case c := <-h.Unregister:
			h.remove(c)
		case d := <-h.queue:
			h.deliver(d)
		}
	}
}

// drainLifecycle handles one pending register or unregister, if any.
func (h *Hub) drainLifecycle() bool {
	select {
	case c := <-h.Register:
		h.add(c)
	case c := <-h.Unregister:
		h.remove(c)
	default:
		return false
	}
	return true
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	list := h.sessions[c.session]
	i, _ := slices.BinarySearchFunc(list, c.id, func(x *Client, id uint64) int {
		return compareID(x.id, id)
	})
	h.sessions[c.session] = slices.Insert(list, i, c)
	h.total++
	total := h.total
	h.mu.Unlock()

	metrics.WSConnections.Inc()
	logging.Info().Str("session", c.session).Int("total_clients", total).Msg("websocket client connected")
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	ok := h.detach(c)
	total := h.total
	h.mu.Unlock()

	if ok {
		close(c.send)
		metrics.WSConnections.Dec()
		logging.Info().Str("session", c.session).Int("total_clients", total).Msg("websocket client disconnected")
	}
}

// detach drops c from the index. Caller holds h.mu.
func (h *Hub) detach(c *Client) bool {
	list := h.sessions[c.session]
	i := slices.Index(list, c)
	if i < 0 {
		return false
	}
	list = slices.Delete(list, i, i+1)
	if len(list) == 0 {
		delete(h.sessions, c.session)
	} else {
		h.sessions[c.session] = list
	}
	h.total--
	return true
}

// deliver hands d to each viewer of its session in id order. A viewer whose
// buffer is full is disconnected rather than allowed to stall the others.
func (h *Hub) deliver(d delivery) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range slices.Clone(h.sessions[d.session]) {
		select {
		case c.send <- d.message:
			metrics.WSMessagesSent.WithLabelValues(d.message.Type).Inc()
		default:
			h.detach(c)
			close(c.send)
			metrics.WSConnections.Dec()
			metrics.WSMessagesDropped.Inc()
			logging.Warn().Str("session", c.session).Uint64("client_id", c.id).Msg("websocket client too slow, disconnected")
		}
	}
}

func (h *Hub) stop(ctx context.Context) {
	h.mu.Lock()
	closed := h.total
	for _, list := range h.sessions {
		for _, c := range list {
			close(c.send)
			metrics.WSConnections.Dec()
		}
	}
	h.sessions = make(map[string][]*Client)
	h.total = 0
	h.mu.Unlock()

	h.once.Do(func() { close(h.done) })
	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", closed).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

func compareID(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Send queues message for every viewer of session. It never blocks; when the
// queue is full the message is dropped and counted.
func (h *Hub) Send(session string, message Message) {
	select {
	case h.queue <- delivery{session: session, message: message}:
	default:
		metrics.WSMessagesDropped.Inc()
		logging.Warn().Str("session", session).Str("message_type", message.Type).Msg("broadcast channel full, dropping message")
	}
}

func (h *Hub) BroadcastSnapshot(snap models.Snapshot) {
	h.Send(snap.Session, Message{Type: MessageTypeSnapshot, Data: snap})
}

// HandleSnapshot is the event bus handler for published snapshots.
func (h *Hub) HandleSnapshot(_ context.Context, snap models.Snapshot) error {
	h.BroadcastSnapshot(snap)
	return nil
}

// BroadcastSessionEnded tells viewers the session is gone.
func (h *Hub) BroadcastSessionEnded(session, reason string) {
	h.Send(session, Message{
		Type: MessageTypeSessionEnded,
		Data: SessionEndedData{Session: session, Reason: reason},
	})
}

func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.total
}

func (h *Hub) SessionClientCount(session string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[session])
}

func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
