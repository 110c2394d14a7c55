// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

package segment

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/roadpulse/internal/logging"
	"github.com/tomtom215/roadpulse/internal/metrics"
	"github.com/tomtom215/roadpulse/internal/models"
	"github.com/tomtom215/roadpulse/internal/routing"
)

// RouteSource issues the zero-length route request that exposes graph nodes.
// *routing.Client implements it.
type RouteSource interface {
	Route(ctx context.Context, lat, lon float64) (*routing.RouteInfo, error)
}

// Resolver turns a snapped coordinate into a SegmentDescriptor and records
// it in the side cache.
type Resolver struct {
	routes RouteSource
	cache  Cache
	now    func() time.Time
}

// NewResolver returns a resolver. cache may be nil.
func NewResolver(routes RouteSource, cache Cache) *Resolver {
	return &Resolver{routes: routes, cache: cache, now: time.Now}
}

// Resolve never returns nil. nearestName is the street name reported by the
// nearest service and is used when the route step carries none.
func (r *Resolver) Resolve(ctx context.Context, lat, lon float64, nearestName string) *models.SegmentDescriptor {
	desc := r.fromRoute(ctx, lat, lon, nearestName)
	if desc == nil {
		desc = &models.SegmentDescriptor{
			SegmentID:  FromCoordinate(lat, lon),
			StreetName: nearestName,
			Strategy:   models.StrategyCoordinate,
		}
	}
	desc.Lat, desc.Lon = lat, lon
	desc.ResolvedAt = r.now().UTC()

	metrics.SegmentResolutions.WithLabelValues(desc.Strategy).Inc()
	r.remember(ctx, desc)
	return desc
}

func (r *Resolver) fromRoute(ctx context.Context, lat, lon float64, nearestName string) *models.SegmentDescriptor {
	if r.routes == nil {
		return nil
	}

	info, err := r.routes.Route(ctx, lat, lon)
	if err != nil {
		logging.Ctx(ctx).Debug().
			Err(err).
			Str("reason", routing.ReasonOf(err)).
			Msg("Route lookup failed, using coordinate segment id")
		return nil
	}

	a, b, ok := info.NodePair()
	if !ok || !info.HasIntersection {
		logging.Ctx(ctx).Debug().
			Int("nodes", len(info.Nodes)).
			Bool("has_intersection", info.HasIntersection).
			Msg("No usable node pair, using coordinate segment id")
		return nil
	}

	name := info.Name
	if name == "" {
		name = nearestName
	}
	return &models.SegmentDescriptor{
		SegmentID:  FromNodePair(a, b),
		StreetName: name,
		Length:     models.Float64Ptr(info.Distance),
		Bearing:    info.Bearing,
		NodeKey:    NodeKey(a, b),
		Strategy:   models.StrategyNodePair,
	}
}

func (r *Resolver) remember(ctx context.Context, desc *models.SegmentDescriptor) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Put(ctx, desc); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("segment_id", desc.SegmentID).Msg("Failed to cache segment descriptor")
	}
}

// Lookup returns the cached descriptor for id. The boolean is false for ids
// never resolved (or expired); the error reports cache failures only.
func (r *Resolver) Lookup(ctx context.Context, id string) (*models.SegmentDescriptor, bool, error) {
	if r.cache == nil {
		return nil, false, nil
	}
	desc, err := r.cache.Get(ctx, id)
	if errors.Is(err, ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return desc, true, nil
}
