// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

// Package database provides the DuckDB-backed position store and the local
// identity store.
//
// # Overview
//
// Positions are append-only: the package exposes no UPDATE or DELETE against
// the positions table. Every read is capped at the configured query limit
// (50000 by default) to bound scans over history.
//
// Files:
//   - database.go: connection lifecycle and initialization
//   - connection.go: connection string and pool configuration
//   - migrations.go: versioned schema migrations recorded in schema_migrations
//   - positions.go: append and read queries over positions
//   - users.go: external identity resolution (users table)
//   - seed.go: demo data for local runs
//   - query/: WHERE clause builder shared by the read queries
//
// # Timestamps
//
// Observation times are stored verbatim as DD/MM/YYYY HH:MM:SS text. Windowed
// and ranged queries parse the column with try_strptime and compare against a
// cutoff supplied by the caller, so the caller's clock decides what "now" is.
//
// # Thread Safety
//
// DB is safe for concurrent use. Appends and reads rely on DuckDB's own
// transaction handling; no extra locking is added.
package database
