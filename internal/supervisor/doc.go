// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

// Package supervisor runs the long-lived Roadpulse services under a suture
// supervisor tree.
//
// # Tree Layout
//
//	roadpulse (root)
//	├── ingest-layer
//	│   └── udp-ingest          (ingest.Listener)
//	├── messaging-layer
//	│   ├── websocket-hub       (websocket.Hub)
//	│   └── nats-embedded       (eventprocessor.EmbeddedServer, optional)
//	└── api-layer
//	    └── http-server         (services.HTTPServerService)
//
// A service that returns an error is restarted with backoff. Failures in
// one layer do not stop the others: a crashing hub leaves ingestion and the
// REST API running.
//
// Supervisor events are logged through sutureslog on the slog bridge from
// the logging package, so restarts appear in the same JSON stream as the
// rest of the service.
//
// # Shutdown
//
// Cancelling the context passed to Serve stops every service. Each service
// gets ShutdownTimeout to return; UnstoppedServiceReport lists the ones that
// did not.
package supervisor
