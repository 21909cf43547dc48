// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

/*
Package websocket pushes attention snapshots to exam viewers in real time.

It uses gorilla/websocket with a hub-client architecture. Each client is
bound to one exam session and only receives that session's messages.

Key Components:

  - Hub: owns the client set and routes messages by session
  - Client: one WebSocket connection with read and write goroutines
  - Message: typed JSON envelope

Architecture:

	event bus --HandleSnapshot--> Hub --session A--> Client1, Client2
	                                  --session B--> Client3

Each client has two goroutines:
  - readLoop: reads from the WebSocket, answers application pings
  - writeLoop: writes queued messages and protocol pings

Message Types:

  - attention_snapshot: a models.Snapshot after every publish
  - session_ended: the session was submitted or expired; the server closes
  - ping / pong: application-level keepalive

Slow clients whose send buffer fills are disconnected rather than allowed to
stall delivery to everyone else.

The Hub implements suture.Service through Serve. When its context ends it
closes every client and returns.
*/
package websocket
