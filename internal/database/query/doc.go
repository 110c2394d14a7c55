// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

// Package query builds parameterized WHERE clauses for position queries.
//
// Observation times are stored as DD/MM/YYYY HH:MM:SS text, so every time
// condition compares the parsed column (ObservedAtExpr) against a cutoff
// bound as a plain "YYYY-MM-DD HH:MM:SS" string. Rows whose text does not
// parse yield NULL and never satisfy a time condition.
//
//	wb := query.NewWhereBuilder().
//	    AddObservedSince(cutoff).
//	    AddUsers([]string{"7", "9"})
//	where, args := wb.BuildWithPrefix()
package query
