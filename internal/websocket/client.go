// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

package websocket

import (
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/proctorlens/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4 << 10
	sendBuffer     = 64
)

var clientIDCounter atomic.Uint64

// Client is one viewer connection for one session. The hub owns the send
// channel and closes it when the client is removed.
type Client struct {
	id      uint64
	session string
	hub     *Hub
	conn    *websocket.Conn
	send    chan Message
	pong    chan struct{} // never closed; read loop to write loop

	onActivity func()
}

func NewClient(hub *Hub, conn *websocket.Conn, session string) *Client {
	return &Client{
		id:      clientIDCounter.Add(1),
		session: session,
		hub:     hub,
		conn:    conn,
		send:    make(chan Message, sendBuffer),
		pong:    make(chan struct{}, 1),
	}
}

func (c *Client) ID() uint64 { return c.id }
func (c *Client) Session() string { return c.session }

// OnActivity registers fn to run for every frame the viewer sends.
// Call before Start.
func (c *Client) OnActivity(fn func()) { c.onActivity = fn }

// Queue bypasses the hub so the initial snapshot is the first frame the
// viewer sees. It reports false when the buffer is full.
func (c *Client) Queue(msg Message) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Start launches the read and write loops.
func (c *Client) Start() {
	go c.writeLoop()
	go c.readLoop()
}

func (c *Client) readLoop() {
	defer func() {
		select {
		case c.hub.Unregister <- c:
		case <-c.hub.Done():
		}
		_ = c.conn.Close()
	}()

	extend := func(string) error { return c.conn.SetReadDeadline(time.Now().Add(pongWait)) }
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(extend)
	if err := extend(""); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Error().Err(err).Str("session", c.session).Msg("unexpected websocket close error")
			}
			return
		}
		c.handleInbound(msg)
	}
}

func (c *Client) handleInbound(msg Message) {
	if c.onActivity != nil {
		c.onActivity()
	}
	if msg.Type == MessageTypePing {
		select {
		case c.pong <- struct{}{}:
		default:
		}
	}
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !c.armWrite() {
				return
			}
			if !ok {
				// Removed by the hub.
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				logging.Debug().Err(err).Str("session", c.session).Msg("failed to write JSON message")
				return
			}
		case <-c.pong:
			if !c.armWrite() {
				return
			}
			if err := c.conn.WriteJSON(Message{Type: MessageTypePong}); err != nil {
				return
			}
		case <-ticker.C:
			if !c.armWrite() {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) armWrite() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		logging.Error().Err(err).Str("session", c.session).Msg("failed to set write deadline")
		return false
	}
	return true
}
