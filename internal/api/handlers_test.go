// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/roadpulse/internal/config"
	"github.com/tomtom215/roadpulse/internal/database"
	"github.com/tomtom215/roadpulse/internal/logging"
	"github.com/tomtom215/roadpulse/internal/models"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

var testNow = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

// fakeStore records the arguments of the last call.
type fakeStore struct {
	pingErr  error
	err      error
	records  []models.PositionRecord
	latest   map[string]models.PositionRecord
	since    time.Time
	day      time.Time
	tr       models.TimeRange
	trPtr    *models.TimeRange
	bounds   models.GeoBounds
	filter   models.UserFilter
	lastCall string
}

func (s *fakeStore) Ping(context.Context) error { return s.pingErr }

func (s *fakeStore) LatestPosition(_ context.Context, userID string) (*models.PositionRecord, error) {
	s.lastCall = "latest"
	if s.err != nil {
		return nil, s.err
	}
	rec, ok := s.latest[userID]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &rec, nil
}

func (s *fakeStore) LatestPositions(_ context.Context, since time.Time, f models.UserFilter) ([]models.PositionRecord, error) {
	s.lastCall, s.since, s.filter = "latest_all", since, f
	return s.records, s.err
}

func (s *fakeStore) PositionsByDate(_ context.Context, day time.Time, f models.UserFilter) ([]models.PositionRecord, error) {
	s.lastCall, s.day, s.filter = "by_date", day, f
	return s.records, s.err
}

func (s *fakeStore) PositionsByDateRange(_ context.Context, tr models.TimeRange, f models.UserFilter) ([]models.PositionRecord, error) {
	s.lastCall, s.tr, s.filter = "by_range", tr, f
	return s.records, s.err
}

func (s *fakeStore) PositionsByGeofence(_ context.Context, b models.GeoBounds, f models.UserFilter, tr *models.TimeRange) ([]models.PositionRecord, error) {
	s.lastCall, s.bounds, s.filter, s.trPtr = "by_geofence", b, f, tr
	return s.records, s.err
}

type fakeDetector struct {
	entries []models.CongestionEntry
	err     error
	window  int
}

func (d *fakeDetector) Detect(_ context.Context, windowSeconds int) ([]models.CongestionEntry, error) {
	d.window = windowSeconds
	return d.entries, d.err
}

type fakeSegments map[string]models.SegmentDescriptor

func (f fakeSegments) Lookup(_ context.Context, id string) (*models.SegmentDescriptor, bool, error) {
	d, ok := f[id]
	if !ok {
		return nil, false, nil
	}
	return &d, true, nil
}

type fakeRouting bool

func (f fakeRouting) IsAvailable(context.Context) bool { return bool(f) }

type fixture struct {
	store    *fakeStore
	detector *fakeDetector
	handler  http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.Config{
		App:      config.AppConfig{Name: "roadpulse-test"},
		Ingest:   config.IngestConfig{Mode: config.IngestModeAuthenticated},
		Security: config.SecurityConfig{CORSOrigins: []string{"http://localhost:3000"}, RateLimitDisabled: true},
	}
	f := &fixture{
		store:    &fakeStore{latest: map[string]models.PositionRecord{}},
		detector: &fakeDetector{},
	}
	segments := fakeSegments{
		"0123456789abcdef": {SegmentID: "0123456789abcdef", StreetName: "Calle 72", Strategy: models.StrategyNodePair},
	}
	h := NewHandler(cfg, f.store, f.detector, segments, fakeRouting(true), nil)
	h.SetClock(func() time.Time { return testNow })
	f.handler = NewRouter(h, NewChiMiddleware(NewChiMiddlewareConfig(&cfg.Security))).SetupChi()
	return f
}

func (f *fixture) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return resp
}

func record(id int64, user string) models.PositionRecord {
	return models.PositionRecord{
		ID:        id,
		Lat:       11.0,
		Lon:       -74.8,
		Timestamp: "02/03/2026 11:59:00",
		Source:    "10.0.0.1:5000",
		UserID:    models.StringPtr(user),
	}
}

func TestCongestion(t *testing.T) {
	f := newFixture(t)
	f.detector.entries = []models.CongestionEntry{{
		SegmentID:    "abc123",
		StreetName:   "Calle 72",
		VehicleCount: 2,
		VehicleIDs:   []string{"1", "2"},
	}}

	rec := f.get(t, "/api/congestion?time_window=30")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var resp models.CongestionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.Total != 1 || resp.TimeWindow != 30 || resp.Congestion[0].SegmentID != "abc123" {
		t.Errorf("response = %+v", resp)
	}
	if f.detector.window != 30 {
		t.Errorf("window passed = %d", f.detector.window)
	}
}

func TestCongestion_DefaultsAndEmpty(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/api/congestion")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if f.detector.window != defaultCongestionWindow {
		t.Errorf("window = %d, want %d", f.detector.window, defaultCongestionWindow)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatal(err)
	}
	if list, ok := raw["congestion"].([]interface{}); !ok || len(list) != 0 {
		t.Errorf("congestion = %#v, want empty array", raw["congestion"])
	}
}

func TestCongestion_Errors(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		detectErr  error
		wantStatus int
		wantCode   string
	}{
		{"non integer", "/api/congestion?time_window=abc", nil, http.StatusBadRequest, codeValidation},
		{"zero", "/api/congestion?time_window=0", nil, http.StatusBadRequest, codeValidation},
		{"too large", "/api/congestion?time_window=86401", nil, http.StatusBadRequest, codeValidation},
		{"store failure", "/api/congestion", errors.New("io error"), http.StatusInternalServerError, codeDatabase},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.detector.err = tt.detectErr
			rec := f.get(t, tt.target)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			resp := decodeEnvelope(t, rec)
			if resp.Success || resp.Error == nil || resp.Error.Code != tt.wantCode {
				t.Errorf("response = %+v", resp)
			}
		})
	}
}

func TestLocation(t *testing.T) {
	f := newFixture(t)
	f.store.latest["7"] = record(5, "7")

	rec := f.get(t, "/api/location/7")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	data, _ := resp.Data.(map[string]interface{})
	if !resp.Success || data["user_id"] != "7" {
		t.Errorf("response = %s", rec.Body)
	}

	rec = f.get(t, "/api/location/unknown")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if resp := decodeEnvelope(t, rec); resp.Error == nil || resp.Error.Code != codeNotFound {
		t.Errorf("response = %+v", resp)
	}

	f.store.err = errors.New("boom")
	if rec := f.get(t, "/api/location/7"); rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestActiveDevices(t *testing.T) {
	f := newFixture(t)
	f.store.records = []models.PositionRecord{record(1, "1"), record(2, "2")}

	rec := f.get(t, "/api/devices/active?user_ids=1,%202,,")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if want := testNow.Add(-120 * time.Second); !f.store.since.Equal(want) {
		t.Errorf("since = %v, want %v", f.store.since, want)
	}
	if !reflect.DeepEqual(f.store.filter.UserIDs, []string{"1", "2"}) {
		t.Errorf("filter = %+v", f.store.filter)
	}
	resp := decodeEnvelope(t, rec)
	if resp.Metadata.Count == nil || *resp.Metadata.Count != 2 {
		t.Errorf("count = %v", resp.Metadata.Count)
	}

	f.get(t, "/api/devices/active?window=30")
	if want := testNow.Add(-30 * time.Second); !f.store.since.Equal(want) {
		t.Errorf("since = %v, want %v", f.store.since, want)
	}
}

func TestHistoryByDate(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/api/history/2026-03-01?user_id=7")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if f.store.lastCall != "by_date" || !f.store.day.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("call = %s day = %v", f.store.lastCall, f.store.day)
	}
	if f.store.filter.UserID != "7" {
		t.Errorf("filter = %+v", f.store.filter)
	}
	var raw map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &raw)
	if list, ok := raw["data"].([]interface{}); !ok || len(list) != 0 {
		t.Errorf("data = %#v, want empty array", raw["data"])
	}

	if rec := f.get(t, "/api/history/01-03-2026"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad date status = %d", rec.Code)
	}
}

func TestHistoryRange(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantStart  time.Time
		wantEnd    time.Time
	}{
		{
			name:       "default clocks cover whole days",
			query:      "start=2026-03-01&end=2026-03-02",
			wantStatus: http.StatusOK,
			wantStart:  time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:    time.Date(2026, 3, 2, 23, 59, 59, 0, time.UTC),
		},
		{
			name:       "explicit clocks",
			query:      "start=2026-03-01&start_time=08:30&end=2026-03-01&end_time=09:15",
			wantStatus: http.StatusOK,
			wantStart:  time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC),
			wantEnd:    time.Date(2026, 3, 1, 9, 15, 59, 0, time.UTC),
		},
		{name: "missing end", query: "start=2026-03-01", wantStatus: http.StatusBadRequest},
		{name: "bad clock", query: "start=2026-03-01&end=2026-03-01&start_time=8h", wantStatus: http.StatusBadRequest},
		{name: "start after end", query: "start=2026-03-02&end=2026-03-01", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rec := f.get(t, "/api/history/range?"+tt.query)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body = %s", rec.Code, tt.wantStatus, rec.Body)
			}
			if tt.wantStatus != http.StatusOK {
				if f.store.lastCall != "" {
					t.Errorf("store called on invalid request")
				}
				return
			}
			if !f.store.tr.Start.Equal(tt.wantStart) || !f.store.tr.End.Equal(tt.wantEnd) {
				t.Errorf("range = %v..%v, want %v..%v", f.store.tr.Start, f.store.tr.End, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestHistoryGeofence(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantRange  bool
	}{
		{"bounds only", "min_lat=10.9&max_lat=11.1&min_lon=-74.9&max_lon=-74.7", http.StatusOK, false},
		{"bounds and days", "min_lat=10.9&max_lat=11.1&min_lon=-74.9&max_lon=-74.7&start=2026-03-01&end=2026-03-02", http.StatusOK, true},
		{"missing bound", "min_lat=10.9&max_lat=11.1&min_lon=-74.9", http.StatusBadRequest, false},
		{"not a number", "min_lat=north&max_lat=11.1&min_lon=-74.9&max_lon=-74.7", http.StatusBadRequest, false},
		{"latitude out of range", "min_lat=-91&max_lat=11.1&min_lon=-74.9&max_lon=-74.7", http.StatusBadRequest, false},
		{"inverted latitude", "min_lat=11.2&max_lat=11.1&min_lon=-74.9&max_lon=-74.7", http.StatusBadRequest, false},
		{"start without end", "min_lat=10.9&max_lat=11.1&min_lon=-74.9&max_lon=-74.7&start=2026-03-01", http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rec := f.get(t, "/api/history/geofence?"+tt.query)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body = %s", rec.Code, tt.wantStatus, rec.Body)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			want := models.GeoBounds{MinLat: 10.9, MaxLat: 11.1, MinLon: -74.9, MaxLon: -74.7}
			if f.store.bounds != want {
				t.Errorf("bounds = %+v", f.store.bounds)
			}
			if (f.store.trPtr != nil) != tt.wantRange {
				t.Fatalf("time range = %v, want present=%v", f.store.trPtr, tt.wantRange)
			}
			if tt.wantRange && !f.store.trPtr.End.Equal(time.Date(2026, 3, 2, 23, 59, 59, 0, time.UTC)) {
				t.Errorf("end = %v", f.store.trPtr.End)
			}
		})
	}
}

func TestSegment(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/api/segments/0123456789ABCDEF")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	data, _ := decodeEnvelope(t, rec).Data.(map[string]interface{})
	if data["street_name"] != "Calle 72" {
		t.Errorf("data = %v", data)
	}

	if rec := f.get(t, "/api/segments/fedcba9876543210"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown segment status = %d", rec.Code)
	}
	if rec := f.get(t, "/api/segments/not-a-segment"); rec.Code != http.StatusBadRequest {
		t.Errorf("malformed segment status = %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	data, _ := decodeEnvelope(t, rec).Data.(map[string]interface{})
	if data["status"] != "healthy" || data["app"] != "roadpulse-test" || data["ingest_mode"] != "authenticated" {
		t.Errorf("health = %v", data)
	}

	f.store.pingErr = errors.New("closed")
	data, _ = decodeEnvelope(t, f.get(t, "/health")).Data.(map[string]interface{})
	if data["status"] != "degraded" || data["database"] != false {
		t.Errorf("health = %v", data)
	}
}

func TestVersion(t *testing.T) {
	f := newFixture(t)
	data, _ := decodeEnvelope(t, f.get(t, "/version")).Data.(map[string]interface{})
	if data["version"] == "" || data["go_version"] == "" {
		t.Errorf("version = %v", data)
	}
}

func TestRouter_Operational(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/metrics")
	if rec.Code != http.StatusOK {
		t.Errorf("/metrics status = %d", rec.Code)
	}

	rec = f.get(t, "/api/nowhere")
	if rec.Code != http.StatusNotFound || decodeEnvelope(t, rec).Error.Code != codeNotFound {
		t.Errorf("unknown route: %d %s", rec.Code, rec.Body)
	}

	rec = f.get(t, "/api/congestion")
	if rec.Header().Get("X-Request-ID") == "" || rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Errorf("headers = %v", rec.Header())
	}
}

func TestWebSocket_HubUnavailable(t *testing.T) {
	f := newFixture(t)
	if rec := f.get(t, "/api/ws"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestCheckWebSocketOrigin(t *testing.T) {
	h := NewHandler(&config.Config{Security: config.SecurityConfig{CORSOrigins: []string{"http://localhost:3000"}}}, nil, nil, nil, nil, nil)

	tests := []struct {
		origin string
		want   bool
	}{
		{"", false},
		{"http://localhost:3000", true},
		{"http://evil.example", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/ws", nil)
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		if got := h.checkWebSocketOrigin(req); got != tt.want {
			t.Errorf("origin %q: got %v, want %v", tt.origin, got, tt.want)
		}
	}
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(&config.Config{}, f.store, f.detector, nil, nil, nil)
	mw := NewChiMiddleware(&ChiMiddlewareConfig{RateLimitRequests: 2, RateLimitWindow: time.Minute})
	handler := NewRouter(h, mw).SetupChi()

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/congestion", nil)
		req.RemoteAddr = "192.0.2.1:4000"
		handler.ServeHTTP(last, req)
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", last.Code)
	}
	if resp := decodeEnvelope(t, last); resp.Error == nil || resp.Error.Code != codeRateLimit {
		t.Errorf("response = %+v", resp)
	}
}
