// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

// Package segment derives stable road segment identifiers and keeps a side
// cache of the descriptors that produced them.
//
// Two strategies exist. The preferred one hashes the pair of routing graph
// nodes bounding the matched edge, sorted so that travel direction does not
// change the id. When no node pair is available the snapped coordinate,
// rounded to four decimals, is hashed instead; nearby distinct segments then
// share one id.
//
// Ids are one-way. Nothing maps an id back to geometry, so the cache only
// answers for ids this process (or a previous run, with the Badger tier)
// has resolved itself.
package segment

import (
	"fmt"
	"math"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// IDLength is the number of hex characters in a segment id.
const IDLength = 16

// NodeKey normalizes a node pair to "min-max".
func NodeKey(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return strconv.FormatInt(a, 10) + "-" + strconv.FormatInt(b, 10)
}

// FromNodePair returns the segment id for the edge between two graph nodes.
// FromNodePair(a, b) == FromNodePair(b, a).
func FromNodePair(a, b int64) string {
	return hashKey(NodeKey(a, b))
}

// FromCoordinate returns the fallback segment id for a snapped coordinate.
func FromCoordinate(lat, lon float64) string {
	return hashKey(CoordinateKey(lat, lon))
}

// CoordinateKey formats a coordinate rounded to four decimals.
func CoordinateKey(lat, lon float64) string {
	return fmt.Sprintf("%.4f,%.4f", round4(lat), round4(lon))
}

func round4(v float64) float64 {
	r := math.Round(v*1e4) / 1e4
	if r == 0 {
		// avoid "-0.0000"
		return 0
	}
	return r
}

func hashKey(key string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(key))
}
