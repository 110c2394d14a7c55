// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

package ingest

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tomtom215/roadpulse/internal/models"
)

// ErrMalformedPacket is wrapped by every ParsePacket error.
var ErrMalformedPacket = errors.New("malformed packet")

// Packet is one decoded observation.
type Packet struct {
	Lat  float64
	Lon  float64
	Time string

	// Token is the bearer credential with any "Bearer " prefix still present.
	Token string

	// DeviceID is the identifier asserted by the sender. It is only trusted
	// in ModeTrustedPlaintext.
	DeviceID string

	// DeviceName is informational and only logged.
	DeviceName string
}

// field names accepted in a datagram, lowercased
var fieldAliases = map[string]string{
	"lat":           "lat",
	"latitude":      "lat",
	"lon":           "lon",
	"lng":           "lon",
	"longitude":     "lon",
	"time":          "time",
	"timestamp":     "time",
	"token":         "token",
	"authorization": "token",
	"deviceid":      "deviceid",
	"device_id":     "deviceid",
	"devicename":    "devicename",
	"device_name":   "devicename",
}

// ParsePacket decodes a datagram of "Key: Value" fields.
//
//	Lat: 11.0041
//	Lon: -74.8070
//	Time: 02/03/2026 12:00:00
//	Token: eyJhbGciOi...
//
// Fields are separated by newlines. A payload without newlines is split on
// commas instead ("Lat: 11.0, Lon: -74.8, Time: 02/03/2026 12:00:00").
// Keys are case-insensitive and unknown keys are ignored. Lat, Lon and Time
// are required.
func ParsePacket(payload []byte) (*Packet, error) {
	if !utf8.Valid(payload) {
		return nil, fmt.Errorf("%w: payload is not valid UTF-8", ErrMalformedPacket)
	}
	text := strings.TrimSpace(string(payload))
	if text == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedPacket)
	}

	sep := "\n"
	if !strings.Contains(text, "\n") {
		sep = ","
	}

	fields := make(map[string]string, 6)
	for _, line := range strings.Split(text, sep) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		// Time values contain colons, so only the first one separates.
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("%w: field %q has no separator", ErrMalformedPacket, line)
		}
		name, known := fieldAliases[strings.ToLower(strings.TrimSpace(key))]
		if !known {
			continue
		}
		fields[name] = strings.TrimSpace(value)
	}

	p := &Packet{
		Token:      fields["token"],
		DeviceID:   fields["deviceid"],
		DeviceName: fields["devicename"],
	}

	var err error
	if p.Lat, err = parseCoordinate(fields, "lat", 90); err != nil {
		return nil, err
	}
	if p.Lon, err = parseCoordinate(fields, "lon", 180); err != nil {
		return nil, err
	}

	ts, ok := fields["time"]
	if !ok || ts == "" {
		return nil, fmt.Errorf("%w: missing time", ErrMalformedPacket)
	}
	if _, err := time.Parse(models.TimestampLayout, ts); err != nil {
		return nil, fmt.Errorf("%w: time %q is not DD/MM/YYYY HH:MM:SS", ErrMalformedPacket, ts)
	}
	p.Time = ts

	return p, nil
}

func parseCoordinate(fields map[string]string, name string, limit float64) (float64, error) {
	raw, ok := fields[name]
	if !ok || raw == "" {
		return 0, fmt.Errorf("%w: missing %s", ErrMalformedPacket, name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a number", ErrMalformedPacket, name, raw)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < -limit || v > limit {
		return 0, fmt.Errorf("%w: %s %v out of range", ErrMalformedPacket, name, v)
	}
	return v, nil
}
