// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

/*
Package services provides suture.Service wrappers for components whose
lifecycle is not already Serve(ctx) error.

HTTPServerService translates http.Server's ListenAndServe/Shutdown pair:
the listener runs in a goroutine, and cancellation triggers a Shutdown
bounded by the configured timeout.

EmbeddedNATSService takes ownership of an embedded NATS server started
during wiring. It polls IsRunning and shuts the server down when the
supervisor stops.

Return values follow suture's conventions:

	ctx.Err()   shutdown requested, normal termination
	error       service crashed, supervisor restarts it with backoff
*/
package services
