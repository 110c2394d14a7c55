// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/roadpulse/internal/logging"
	"github.com/tomtom215/roadpulse/internal/models"
	"github.com/tomtom215/roadpulse/internal/segment"
)

type seedRoad struct {
	name    string
	nodeA   int64
	nodeB   int64
	lat     float64
	lon     float64
	length  float64
	bearing float64
}

// SeedMockData creates demo drivers and a short trail of positions ending at
// now, with the last positions clustered so that congestion is visible.
// It is meant for local runs only and does nothing if positions exist.
func (db *DB) SeedMockData(ctx context.Context, now time.Time) error {
	count, err := db.CountPositions(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		logging.Info().Int64("positions", count).Msg("Skipping mock data seed, positions already exist")
		return nil
	}

	logging.Info().Msg("Seeding database with mock data...")

	roads := []seedRoad{
		{"Calle 72", 1001, 1002, 10.9965, -74.8070, 180.4, 95},
		{"Carrera 46", 2001, 2002, 11.0041, -74.8103, 240.0, 12},
		{"Via 40", 3001, 3002, 11.0150, -74.7990, 410.7, 310},
	}

	// Driver i finishes on roads[finish[i]].
	drivers := []string{"Ana", "Bruno", "Carla", "Diego", "Elena", "Felipe"}
	finish := []int{0, 0, 0, 1, 1, 2}

	const trail = 10
	for i, name := range drivers {
		user, err := db.CreateUser(ctx, fmt.Sprintf("demo-driver-%d", i+1), name)
		if err != nil {
			return fmt.Errorf("failed to seed user %s: %w", name, err)
		}

		road := roads[finish[i]]
		for k := 0; k < trail; k++ {
			observed := now.Add(-time.Duration(trail-k) * 45 * time.Second)
			offset := float64(trail-k) * 0.0004
			rec := &models.PositionRecord{
				Lat:       road.lat - offset + float64(i)*0.00005,
				Lon:       road.lon - offset,
				Timestamp: observed.Format(models.TimestampLayout),
				Source:    "seed",
				UserID:    models.StringPtr(user.ID),
			}
			if k == trail-1 {
				rec.AttachSegment(&models.SegmentDescriptor{
					SegmentID:  segment.FromNodePair(road.nodeA, road.nodeB),
					StreetName: road.name,
					Length:     models.Float64Ptr(road.length),
					Bearing:    models.Float64Ptr(road.bearing),
				})
			}
			if _, err := db.AppendPosition(ctx, rec); err != nil {
				return fmt.Errorf("failed to seed position: %w", err)
			}
		}
	}

	logging.Info().Int("users", len(drivers)).Int("positions", len(drivers)*trail).Msg("Mock data seeded")
	return nil
}
