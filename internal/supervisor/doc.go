// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

/*
Package supervisor provides process supervision using suture v4.

Long-running services are organized into three layers for failure
isolation:

	RootSupervisor ("proctorlens")
	├── StorageSupervisor ("storage-layer")
	│   ├── gate.StoreFactory (BadgerDB value-log GC)
	│   └── EmbeddedNATSService (if events.embedded_nats)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── events.Bus (watermill router)
	│   ├── websocket.Hub
	│   └── session.Manager (idle sweep, scheduler shutdown)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Components that already implement Serve(ctx) error and String() are added
directly; services.* wraps the ones with other lifecycles.

A service that returns suture.ErrDoNotRestart (the in-memory gate store GC,
for example) is removed without affecting its siblings. Everything else is
restarted with backoff once FailureThreshold is exceeded.

Supervisor events are logged through sutureslog into the zerolog-backed
slog handler from the logging package:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddStorageService(storeFactory)
	tree.AddMessagingService(bus)
	tree.AddMessagingService(hub)
	tree.AddMessagingService(manager)
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	err = tree.Serve(ctx)
*/
package supervisor
