// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

/*
Package events carries published attention snapshots to interested consumers.

Every successful publish into a session's attention state becomes one
watermill message on the configured topic (default "attention.snapshot").
The payload is the JSON snapshot; the "session" metadata key holds the
session token so consumers can route without decoding.

The in-process Bus is a watermill GoChannel pub/sub driven by a watermill
Router. Consumers (the websocket hub, the NATS forwarder) register handlers
with Subscribe before the Bus is served.

When forwarding is configured, NATSForwarder republishes each message to a
NATS subject using watermill-nats with JetStream disabled: snapshots are
latest-value data and are not worth persisting. For single-instance
deployments an EmbeddedServer can host NATS in-process.
*/
package events
