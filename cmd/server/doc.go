// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

// Package main is the entry point for the Roadpulse server.
//
// Roadpulse receives GPS datagrams from vehicles over UDP, snaps each
// position onto the road network with OSRM, stores it in DuckDB and serves
// congestion, location and history queries over HTTP.
//
// # Startup Order
//
//  1. Configuration: defaults, config.yaml, .env and environment (koanf)
//  2. Logging: zerolog, JSON or console
//  3. Database: DuckDB position store, optional demo seed
//  4. Segment cache: memory, or memory over Badger
//  5. OSRM client with circuit breaker and segment resolver
//  6. Credential verifier (JWT), when JWT_SECRET is set
//  7. Websocket hub and optional NATS publisher as ingestion sinks
//  8. UDP listener, HTTP API
//  9. Supervisor tree (suture) runs listener, hub, NATS server and HTTP server
//
// # Configuration
//
// Common environment variables:
//
//	INGEST_MODE      authenticated (default) or trusted_plaintext
//	UDP_PORT         UDP port (default 5049)
//	HTTP_PORT        API port
//	OSRM_URL         routing engine base URL (default http://localhost:5001)
//	DUCKDB_PATH      database file
//	JWT_SECRET       HMAC secret, required in authenticated mode
//	NATS_ENABLED     publish stored positions to NATS
//	NATS_EMBEDDED    run nats-server in process
//	LOG_LEVEL        trace, debug, info, warn, error
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the root context. The UDP listener finishes the
// datagram in hand, the HTTP server drains within HTTP_SHUTDOWN_TIMEOUT,
// websocket clients are closed and the database is closed last.
package main
