// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

/*
Package models defines the data structures shared by the ingestion pipeline,
the position store and the query API.

Key Components:

  - PositionRecord: one stored vehicle observation (append-only)
  - SegmentDescriptor: derived road segment identity and metadata
  - CongestionEntry: transient result of congestion detection
  - UserFilter, GeoBounds, TimeRange: read query filters
  - APIResponse, APIError, Metadata: HTTP response envelope

Nullable Columns:

Columns that may be absent in storage (user_id and the segment descriptor
columns) are pointers so that JSON renders them as null rather than zero
values. Helper constructors (StringPtr, Float64Ptr) keep call sites short.

Timestamps:

PositionRecord.Timestamp is the sender-reported observation time in
DD/MM/YYYY HH:MM:SS form and is stored verbatim. TimestampLayout is the
matching Go layout for callers that need to parse it.
*/
package models
