// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

// Package ingest receives GPS datagrams over UDP, identifies the sender,
// snaps the position to the road network and appends it to the store.
//
// Datagrams are processed strictly one at a time. A slow routing engine
// therefore throttles every sender; the routing client's timeout bounds it.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/tomtom215/roadpulse/internal/auth"
	"github.com/tomtom215/roadpulse/internal/cache"
	"github.com/tomtom215/roadpulse/internal/config"
	"github.com/tomtom215/roadpulse/internal/logging"
	"github.com/tomtom215/roadpulse/internal/metrics"
	"github.com/tomtom215/roadpulse/internal/models"
	"github.com/tomtom215/roadpulse/internal/routing"
)

var (
	// ErrMissingCredential is returned when a packet carries no token in
	// ModeAuthenticated.
	ErrMissingCredential = errors.New("packet carries no credential")

	// ErrUnverifiableCredential is returned when a packet carries a token
	// but no verifier is configured.
	ErrUnverifiableCredential = errors.New("no verifier configured for credential")
)

// Outcome is the fate of one datagram.
type Outcome string

const (
	OutcomeStored        Outcome = metrics.OutcomeStored
	OutcomeMalformed     Outcome = metrics.OutcomeMalformed
	OutcomeRejected      Outcome = metrics.OutcomeRejected
	OutcomeDuplicate     Outcome = metrics.OutcomeDuplicate
	OutcomeRateLimited   Outcome = metrics.OutcomeRateLimited
	OutcomePersistFailed Outcome = metrics.OutcomePersistFailed
)

// Verifier resolves a bearer token to a local user id.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// Snapper moves a coordinate onto the road network. It never fails; a
// result with Snapped false carries the input coordinate.
type Snapper interface {
	SnapToRoad(ctx context.Context, lat, lon float64) routing.SnapResult
}

// Store persists position records.
type Store interface {
	AppendPosition(ctx context.Context, rec *models.PositionRecord) (int64, error)
}

// Sink receives every stored record. Sinks must not block for long: they run
// inline on the ingestion loop.
type Sink interface {
	Name() string
	Publish(ctx context.Context, rec *models.PositionRecord) error
}

const (
	limiterIdle   = time.Hour
	sweepInterval = 5 * time.Minute
)

// Listener receives GPS datagrams over UDP and stores them one at a time.
type Listener struct {
	addr      string
	mode      Mode
	maxPacket int

	verifier Verifier
	snapper  Snapper
	store    Store

	dedup     *cache.LRUCache
	limiter   *SourceLimiter
	now       func() time.Time
	lastSweep time.Time

	ready     chan struct{}
	readyOnce sync.Once
	boundMu   sync.RWMutex
	bound     net.Addr

	security *logging.SecurityLogger

	sinksMu sync.RWMutex
	sinks   []Sink
}

// Option configures a Listener.
type Option func(*Listener)

// WithClock replaces the time source of the listener, its duplicate filter
// and its rate limiter.
func WithClock(now func() time.Time) Option {
	return func(l *Listener) {
		l.now = now
	}
}

// WithSinks registers sinks at construction time.
func WithSinks(sinks ...Sink) Option {
	return func(l *Listener) {
		l.sinks = append(l.sinks, sinks...)
	}
}

// NewListener builds a listener from the ingest configuration. verifier may
// be nil only in trusted_plaintext mode.
func NewListener(cfg *config.IngestConfig, verifier Verifier, snapper Snapper, store Store, opts ...Option) (*Listener, error) {
	mode, err := ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	if mode == ModeAuthenticated && verifier == nil {
		return nil, fmt.Errorf("ingest: %s mode requires a credential verifier", mode)
	}
	if snapper == nil || store == nil {
		return nil, errors.New("ingest: snapper and store are required")
	}

	maxPacket := cfg.MaxPacketSize
	if maxPacket <= 0 {
		maxPacket = 1024
	}

	l := &Listener{
		addr:      cfg.Addr(),
		mode:      mode,
		maxPacket: maxPacket,
		verifier:  verifier,
		snapper:   snapper,
		store:     store,
		limiter:   NewSourceLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst),
		now:       time.Now,
		ready:     make(chan struct{}),
		security:  logging.NewSecurityLogger(),
	}
	if cfg.DedupWindow > 0 {
		l.dedup = cache.NewLRUCache(cfg.DedupCapacity, cfg.DedupWindow)
		l.dedup.OnEvict = func() {
			metrics.CacheEvictions.WithLabelValues("datagram_dedup").Inc()
		}
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.dedup != nil {
		l.dedup.SetClock(l.now)
	}
	if l.limiter != nil {
		l.limiter.now = l.now
	}

	if mode == ModeTrustedPlaintext {
		l.security.LogEvent(context.Background(), &logging.SecurityEvent{
			Event:   logging.EventTrustedPlaintext,
			Source:  l.addr,
			Reason:  "sender-asserted DeviceID is stored as the user id; identities can be spoofed by anyone who can reach the port",
			Details: map[string]string{"mode": mode.String()},
		})
	}
	return l, nil
}

// Mode returns the identity mode in effect.
func (l *Listener) Mode() Mode { return l.mode }

// String names the listener for the supervisor.
func (l *Listener) String() string { return "udp-ingest" }

// AddSink registers a sink for stored records.
func (l *Listener) AddSink(s Sink) {
	l.sinksMu.Lock()
	defer l.sinksMu.Unlock()
	l.sinks = append(l.sinks, s)
}

// Ready is closed once the socket is bound.
func (l *Listener) Ready() <-chan struct{} { return l.ready }

// Addr returns the bound socket address, or nil before Ready.
func (l *Listener) Addr() net.Addr {
	l.boundMu.RLock()
	defer l.boundMu.RUnlock()
	return l.bound
}

// Serve binds the UDP socket and processes datagrams until ctx is done.
// It returns ctx.Err() on shutdown.
func (l *Listener) Serve(ctx context.Context) error {
	conn, err := (&net.ListenConfig{}).ListenPacket(ctx, "udp", l.addr)
	if err != nil {
		return fmt.Errorf("listen udp %s: %w", l.addr, err)
	}

	l.boundMu.Lock()
	l.bound = conn.LocalAddr()
	l.boundMu.Unlock()
	l.readyOnce.Do(func() { close(l.ready) })

	logging.Info().
		Str("addr", conn.LocalAddr().String()).
		Str("mode", l.mode.String()).
		Int("max_packet_size", l.maxPacket).
		Msg("UDP ingestion listener started")

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		_ = conn.Close()
	}()

	// one spare byte detects oversized datagrams
	buf := make([]byte, l.maxPacket+1)
	for {
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				logging.Info().Msg("UDP ingestion listener stopped")
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			logging.Warn().Err(err).Msg("UDP read failed")
			continue
		}

		if n > l.maxPacket {
			metrics.RecordIngest(string(OutcomeMalformed), 0)
			logging.Warn().
				Str("source", addrString(addr)).
				Int("max_packet_size", l.maxPacket).
				Msg("Dropping oversized datagram")
		} else {
			// a packet that has been parsed runs to completion even during shutdown
			l.Process(context.WithoutCancel(ctx), buf[:n], addr)
		}

		l.maybeSweep()
	}
}

func (l *Listener) maybeSweep() {
	now := l.now()
	if now.Sub(l.lastSweep) < sweepInterval {
		return
	}
	l.lastSweep = now
	removed := l.limiter.Sweep(limiterIdle)
	if l.dedup != nil {
		removed += l.dedup.CleanupExpired()
	}
	if removed > 0 {
		logging.Debug().Int("removed", removed).Msg("Swept idle ingest state")
	}
}

// Process runs one datagram through the pipeline and returns its outcome.
func (l *Listener) Process(ctx context.Context, payload []byte, addr net.Addr) Outcome {
	start := l.now()
	source := addrString(addr)
	ctx = logging.ContextWithSource(logging.ContextWithNewCorrelationID(ctx), source)

	outcome := l.process(ctx, payload, addr, source)
	metrics.RecordIngest(string(outcome), l.now().Sub(start))
	return outcome
}

func (l *Listener) process(ctx context.Context, payload []byte, addr net.Addr, source string) Outcome {
	log := logging.Ctx(ctx)

	if !l.limiter.Allow(hostOf(addr)) {
		log.Debug().Msg("Dropping datagram over source rate limit")
		return OutcomeRateLimited
	}
	if l.dedup != nil && l.dedup.IsDuplicate(cache.DatagramKey(source, payload)) {
		log.Debug().Msg("Dropping duplicate datagram")
		return OutcomeDuplicate
	}

	pkt, err := ParsePacket(payload)
	if err != nil {
		log.Warn().Err(err).Int("bytes", len(payload)).Msg("Dropping malformed datagram")
		return OutcomeMalformed
	}

	userID, err := l.identify(ctx, pkt)
	if err != nil {
		log.Debug().Err(err).Str("device_name", pkt.DeviceName).Msg("Dropping datagram with rejected credential")
		l.security.LogCredentialRejected(ctx, source, rejectReason(err), pkt.Token)
		return OutcomeRejected
	}
	if pkt.Token != "" {
		l.security.LogCredentialAccepted(ctx, source, *userID)
	}

	snap := l.snapper.SnapToRoad(ctx, pkt.Lat, pkt.Lon)

	rec := &models.PositionRecord{
		Lat:       pkt.Lat,
		Lon:       pkt.Lon,
		Timestamp: pkt.Time,
		Source:    source,
		UserID:    userID,
	}
	if snap.Snapped {
		rec.Lat, rec.Lon = snap.Lat, snap.Lon
		rec.AttachSegment(snap.Segment)
	}

	id, err := l.store.AppendPosition(ctx, rec)
	if err != nil {
		log.Error().Err(err).Msg("Failed to store position, packet lost")
		return OutcomePersistFailed
	}
	rec.ID = id

	ev := log.Debug().Int64("id", id).Bool("snapped", snap.Snapped)
	if rec.UserID != nil {
		ev = ev.Str("user_id", *rec.UserID)
	}
	if rec.SegmentID != nil {
		ev = ev.Str("segment_id", *rec.SegmentID)
	}
	ev.Msg("Position stored")

	l.publish(ctx, rec)
	return OutcomeStored
}

// identify returns the user id the record is stored under.
func (l *Listener) identify(ctx context.Context, pkt *Packet) (*string, error) {
	if pkt.Token != "" {
		if l.verifier == nil {
			return nil, ErrUnverifiableCredential
		}
		userID, err := l.verifier.Verify(ctx, pkt.Token)
		if err != nil {
			return nil, err
		}
		return &userID, nil
	}

	if l.mode == ModeAuthenticated {
		return nil, ErrMissingCredential
	}
	if pkt.DeviceID != "" {
		return models.StringPtr(pkt.DeviceID), nil
	}
	return nil, nil
}

func (l *Listener) publish(ctx context.Context, rec *models.PositionRecord) {
	l.sinksMu.RLock()
	sinks := l.sinks
	l.sinksMu.RUnlock()

	for _, s := range sinks {
		if err := s.Publish(ctx, rec); err != nil {
			metrics.IngestSinkErrors.WithLabelValues(s.Name()).Inc()
			logging.Ctx(ctx).Warn().Err(err).Str("sink", s.Name()).Msg("Failed to hand position to sink")
		}
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrMissingCredential):
		return "missing"
	case errors.Is(err, ErrUnverifiableCredential):
		return "no_verifier"
	default:
		return auth.RejectReason(err)
	}
}

func addrString(addr net.Addr) string {
	if addr == nil {
		return models.SourceUDP
	}
	return addr.String()
}

func hostOf(addr net.Addr) string {
	switch a := addr.(type) {
	case *net.UDPAddr:
		return a.IP.String()
	case nil:
		return models.SourceUDP
	default:
		host, _, err := net.SplitHostPort(a.String())
		if err != nil {
			return a.String()
		}
		return host
	}
}
