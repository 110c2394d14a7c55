// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

// Package routing is the OSRM client used to snap positions to the road
// network.
//
// Unavailability is not an error at this boundary. SnapToRoad always returns
// a coordinate: the snapped one when OSRM answered with a match, otherwise the
// input unchanged with Snapped=false and a Reason. Every call is bounded by the
// configured timeout and runs behind a circuit breaker, so a dead engine costs
// at most one timeout per open interval instead of one per packet.
package routing

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/roadpulse/internal/config"
	"github.com/tomtom215/roadpulse/internal/logging"
	"github.com/tomtom215/roadpulse/internal/metrics"
	"github.com/tomtom215/roadpulse/internal/models"
)

// BreakerName labels the OSRM circuit in metrics.
const BreakerName = "osrm"

const (
	serviceNearest = "nearest"
	serviceRoute   = "route"
	serviceProbe   = "probe"

	maxResponseBytes = 1 << 20
)

// SegmentResolver derives a segment descriptor for a snapped coordinate.
// It never fails; it returns nil only when no descriptor can be built.
type SegmentResolver interface {
	Resolve(ctx context.Context, lat, lon float64, name string) *models.SegmentDescriptor
}

// Client talks to an OSRM HTTP server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	probeLat   float64
	probeLon   float64

	breaker *gobreaker.CircuitBreaker[[]byte]
	probes  singleflight.Group

	mu       sync.RWMutex
	segments SegmentResolver
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithSegmentResolver attaches segment resolution to successful snaps.
func WithSegmentResolver(r SegmentResolver) Option {
	return func(c *Client) {
		c.segments = r
	}
}

// NewClient builds a client from the routing configuration.
func NewClient(cfg *config.RoutingConfig, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		timeout:    cfg.Timeout,
		probeLat:   cfg.ProbeLatitude,
		probeLon:   cfg.ProbeLongitude,
		breaker:    newBreaker(BreakerName, cfg.BreakerMaxFailures, cfg.BreakerInterval, cfg.BreakerOpenTimeout),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetSegmentResolver attaches a resolver after construction. The resolver
// usually needs the client itself to issue route requests.
func (c *Client) SetSegmentResolver(r SegmentResolver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.segments = r
}

func (c *Client) segmentResolver() SegmentResolver {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.segments
}

// BaseURL returns the configured OSRM base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// BreakerState returns "closed", "half-open" or "open".
func (c *Client) BreakerState() string {
	return stateToString(c.breaker.State())
}

// IsAvailable probes the nearest service at the reference coordinate.
// Concurrent callers share one probe. The probe bypasses the circuit breaker
// so that it reports the engine, not the breaker.
func (c *Client) IsAvailable(ctx context.Context) bool {
	v, _, _ := c.probes.Do("probe", func() (interface{}, error) {
		// the probe outlives a caller that gives up early
		pctx := context.WithoutCancel(ctx)

		body, err := c.fetch(pctx, serviceProbe, c.nearestURL(c.probeLat, c.probeLon))
		ok := false
		if err == nil {
			var resp nearestResponse
			ok = json.Unmarshal(body, &resp) == nil && resp.Code == codeOK
		}
		if !ok {
			logging.Debug().Err(err).Str("osrm_url", c.baseURL).Msg("OSRM health probe failed")
		}
		metrics.SetOSRMAvailable(ok)
		return ok, nil
	})
	ok, _ := v.(bool)
	return ok
}

// SnapToRoad moves a raw coordinate onto the nearest road. It never fails:
// on any problem it returns the input coordinate with Snapped=false.
func (c *Client) SnapToRoad(ctx context.Context, lat, lon float64) SnapResult {
	body, err := c.execute(ctx, serviceNearest, c.nearestURL(lat, lon))
	if err != nil {
		return c.degraded(ctx, lat, lon, ReasonOf(err), err)
	}

	var resp nearestResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return c.degraded(ctx, lat, lon, ReasonDecode, err)
	}
	if resp.Code != codeOK || len(resp.Waypoints) == 0 || len(resp.Waypoints[0].Location) < 2 {
		return c.degraded(ctx, lat, lon, ReasonNoMatch, fmt.Errorf("osrm code %q with %d waypoints", resp.Code, len(resp.Waypoints)))
	}

	wp := resp.Waypoints[0]
	res := SnapResult{
		Lat:       wp.Location[1],
		Lon:       wp.Location[0],
		Snapped:   true,
		DistanceM: wp.Distance,
		Name:      wp.Name,
	}
	if r := c.segmentResolver(); r != nil {
		res.Segment = r.Resolve(ctx, res.Lat, res.Lon, res.Name)
	}

	metrics.RecordSnap(true, "")
	ev := logging.Ctx(ctx).Debug().
		Str("result", "snapped").
		Float64("lat", res.Lat).
		Float64("lon", res.Lon).
		Float64("distance_m", res.DistanceM)
	if res.Segment != nil {
		ev = ev.Str("segment_id", res.Segment.SegmentID)
	}
	ev.Msg("Snapped position to road")
	return res
}

// Route requests a zero-length route at the snapped coordinate to learn the
// graph nodes of the matched edge.
func (c *Client) Route(ctx context.Context, lat, lon float64) (*RouteInfo, error) {
	body, err := c.execute(ctx, serviceRoute, c.routeURL(lat, lon))
	if err != nil {
		return nil, err
	}

	var resp routeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &RequestError{Service: serviceRoute, Reason: ReasonDecode, Err: err}
	}
	if resp.Code != codeOK || len(resp.Routes) == 0 || len(resp.Routes[0].Legs) == 0 {
		return nil, &RequestError{Service: serviceRoute, Reason: ReasonNoMatch, Err: fmt.Errorf("osrm code %q", resp.Code)}
	}

	lg := resp.Routes[0].Legs[0]
	info := &RouteInfo{
		Nodes:    lg.Annotation.Nodes,
		Distance: lg.Distance,
	}
	if len(lg.Steps) > 0 {
		st := lg.Steps[0]
		info.Name = st.Name
		if len(st.Intersections) > 0 {
			info.HasIntersection = true
			if bearings := st.Intersections[0].Bearings; len(bearings) > 0 {
				info.Bearing = models.Float64Ptr(bearings[0])
			}
		}
	}
	return info, nil
}

func (c *Client) execute(ctx context.Context, service, url string) ([]byte, error) {
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.fetch(ctx, service, url)
	})
	recordBreakerResult(BreakerName, err)
	return body, err
}

func (c *Client) fetch(ctx context.Context, service, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, &RequestError{Service: service, Reason: ReasonConnection, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.RecordOSRMRequest(service, time.Since(start))
	if err != nil {
		return nil, &RequestError{Service: service, Reason: classifyTransport(err), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &RequestError{Service: service, Reason: classifyTransport(err), Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &RequestError{Service: service, Reason: ReasonHTTPStatus, Status: resp.StatusCode}
	}
	return body, nil
}

func (c *Client) degraded(ctx context.Context, lat, lon float64, reason string, err error) SnapResult {
	metrics.RecordSnap(false, reason)
	logging.Ctx(ctx).Warn().
		Err(err).
		Str("result", "degraded").
		Str("reason", reason).
		Float64("lat", lat).
		Float64("lon", lon).
		Msg("Snap to road failed, keeping raw coordinate")
	return SnapResult{Lat: lat, Lon: lon, Reason: reason}
}

func (c *Client) nearestURL(lat, lon float64) string {
	return fmt.Sprintf("%s/nearest/v1/driving/%s,%s?number=1", c.baseURL, formatCoord(lon), formatCoord(lat))
}

func (c *Client) routeURL(lat, lon float64) string {
	lonStr, latStr := formatCoord(lon), formatCoord(lat)
	return fmt.Sprintf("%s/route/v1/driving/%s,%s;%s,%s?steps=true&annotations=true",
		c.baseURL, lonStr, latStr, lonStr, latStr)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
