// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

/*
Package websocket streams stored positions to browser clients.

The Hub is registered as an ingestion sink. Every record the listener stores
is wrapped in a PositionEvent and fanned out to all connected clients:

	ingest.Listener --Publish--> Hub --send chan--> Client --> browser
	                                 \-> Client --> browser

Each client runs two goroutines. readPump answers application pings and
detects disconnects; writePump writes queued messages and keeps the
connection alive with websocket pings.

Messages are JSON objects of the form

	{"type": "position", "data": {"event_id": "...", "position": {...}}}

A slow client whose queue fills up is disconnected rather than allowed to
block the hub. Publishing never blocks the ingestion loop: when the hub's own
queue is full the event is dropped and ErrBroadcastFull returned.

The hub runs under the supervisor through Serve and closes every client on
shutdown.
*/
package websocket
