// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

package validation

import (
	"strings"
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()
	if v1 == nil {
		t.Fatal("GetValidator() returned nil")
	}
	if v1 != v2 {
		t.Error("GetValidator() should return the same instance")
	}
}

type windowRequest struct {
	TimeWindow int `query:"time_window" validate:"min=1,max=86400"`
}

type boundsRequest struct {
	MinLat float64 `query:"min_lat" validate:"latitude"`
	MaxLat float64 `query:"max_lat" validate:"latitude,gtefield=MinLat"`
	MinLon float64 `query:"min_lon" validate:"longitude"`
	MaxLon float64 `query:"max_lon" validate:"longitude,gtefield=MinLon"`
}

type rangeRequest struct {
	Start     string `query:"start" validate:"required,isodate"`
	StartTime string `query:"start_time" validate:"clock"`
}

type segmentRequest struct {
	SegmentID string `query:"segment_id" validate:"segmentid"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name      string
		input     interface{}
		wantField string
		wantTag   string
	}{
		{name: "window ok", input: &windowRequest{TimeWindow: 30}},
		{name: "window zero", input: &windowRequest{TimeWindow: 0}, wantField: "time_window", wantTag: "min"},
		{name: "window too large", input: &windowRequest{TimeWindow: 90000}, wantField: "time_window", wantTag: "max"},
		{name: "bounds ok", input: &boundsRequest{MinLat: 10.9, MaxLat: 11.1, MinLon: -74.9, MaxLon: -74.7}},
		{name: "latitude out of range", input: &boundsRequest{MinLat: -91, MaxLat: 11, MinLon: -75, MaxLon: -74}, wantField: "min_lat", wantTag: "latitude"},
		{name: "inverted bounds", input: &boundsRequest{MinLat: 11, MaxLat: 10, MinLon: -75, MaxLon: -74}, wantField: "max_lat", wantTag: "gtefield"},
		{name: "range ok", input: &rangeRequest{Start: "2025-03-14", StartTime: "08:30"}},
		{name: "range bad date", input: &rangeRequest{Start: "14/03/2025", StartTime: "08:30"}, wantField: "start", wantTag: "isodate"},
		{name: "range bad clock", input: &rangeRequest{Start: "2025-03-14", StartTime: "8h"}, wantField: "start_time", wantTag: "clock"},
		{name: "segment ok", input: &segmentRequest{SegmentID: "00ff00ff00ff00ff"}},
		{name: "segment uppercase", input: &segmentRequest{SegmentID: "00FF00FF00FF00FF"}, wantField: "segment_id", wantTag: "segmentid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := ValidateStruct(tt.input)
			if tt.wantTag == "" {
				if verr != nil {
					t.Fatalf("ValidateStruct() = %v, want nil", verr)
				}
				return
			}
			if verr == nil {
				t.Fatal("ValidateStruct() = nil, want error")
			}
			errs := verr.Errors()
			if len(errs) != 1 {
				t.Fatalf("got %d errors, want 1: %v", len(errs), verr)
			}
			if errs[0].Field() != tt.wantField {
				t.Errorf("Field() = %q, want %q", errs[0].Field(), tt.wantField)
			}
			if errs[0].Tag() != tt.wantTag {
				t.Errorf("Tag() = %q, want %q", errs[0].Tag(), tt.wantTag)
			}
		})
	}
}

func TestToAPIError(t *testing.T) {
	verr := ValidateStruct(&windowRequest{TimeWindow: -5})
	if verr == nil {
		t.Fatal("expected validation error")
	}
	apiErr := verr.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q", apiErr.Code)
	}
	if apiErr.Message != "time_window must be at least 1" {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if apiErr.Details["field"] != "time_window" {
		t.Errorf("Details[field] = %v", apiErr.Details["field"])
	}
}

func TestToAPIError_MultipleFields(t *testing.T) {
	verr := ValidateStruct(&boundsRequest{MinLat: 100, MaxLat: 100, MinLon: 200, MaxLon: 200})
	if verr == nil {
		t.Fatal("expected validation error")
	}
	apiErr := verr.ToAPIError()
	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok {
		t.Fatalf("Details[fields] has type %T", apiErr.Details["fields"])
	}
	if len(fields) < 2 {
		t.Errorf("expected at least 2 failed fields, got %d", len(fields))
	}
	if !strings.Contains(apiErr.Message, "; ") {
		t.Errorf("Message should join errors: %q", apiErr.Message)
	}
}
