// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

package query

import (
	"fmt"
	"strings"
	"time"
)

// ObservedAtExpr parses the stored observation time. try_strptime yields
// NULL for text that does not match.
const ObservedAtExpr = `try_strptime("timestamp", '%d/%m/%Y %H:%M:%S')`

// cutoffLayout is how time bounds are bound as parameters.
const cutoffLayout = "2006-01-02 15:04:05"

// FormatCutoff renders t as a DuckDB TIMESTAMP literal in t's own location.
func FormatCutoff(t time.Time) string {
	return t.Format(cutoffLayout)
}

// WhereBuilder accumulates AND-ed conditions and their arguments.
type WhereBuilder struct {
	clauses []string
	args    []interface{}
}

func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{
		clauses: []string{},
		args:    []interface{}{},
	}
}

// AddClause appends a raw condition.
func (wb *WhereBuilder) AddClause(clause string, args ...interface{}) *WhereBuilder {
	wb.clauses = append(wb.clauses, clause)
	wb.args = append(wb.args, args...)
	return wb
}

// AddObservedSince keeps rows observed at or after since.
func (wb *WhereBuilder) AddObservedSince(since time.Time) *WhereBuilder {
	return wb.AddClause(ObservedAtExpr+" >= CAST(? AS TIMESTAMP)", FormatCutoff(since))
}

// AddObservedRange keeps rows observed within [start, end].
func (wb *WhereBuilder) AddObservedRange(start, end time.Time) *WhereBuilder {
	return wb.AddClause(ObservedAtExpr+" BETWEEN CAST(? AS TIMESTAMP) AND CAST(? AS TIMESTAMP)",
		FormatCutoff(start), FormatCutoff(end))
}

// AddUsers keeps rows whose user_id is in users. An empty slice adds nothing.
func (wb *WhereBuilder) AddUsers(users []string) *WhereBuilder {
	if len(users) == 0 {
		return wb
	}
	placeholders := make([]string, len(users))
	for i, user := range users {
		placeholders[i] = "?"
		wb.args = append(wb.args, user)
	}
	wb.clauses = append(wb.clauses, fmt.Sprintf("user_id IN (%s)", strings.Join(placeholders, ", ")))
	return wb
}

// AddBounds keeps rows inside the inclusive box.
func (wb *WhereBuilder) AddBounds(minLat, maxLat, minLon, maxLon float64) *WhereBuilder {
	return wb.AddClause("lat BETWEEN ? AND ? AND lon BETWEEN ? AND ?", minLat, maxLat, minLon, maxLon)
}

// AddNotNull keeps rows where column is present.
func (wb *WhereBuilder) AddNotNull(column string) *WhereBuilder {
	return wb.AddClause(column + " IS NOT NULL")
}

func (wb *WhereBuilder) Build() (string, []interface{}) {
	if len(wb.clauses) == 0 {
		return "1=1", []interface{}{}
	}
	return strings.Join(wb.clauses, " AND "), wb.args
}

func (wb *WhereBuilder) BuildWithPrefix() (string, []interface{}) {
	whereClause, args := wb.Build()
	return "WHERE " + whereClause, args
}

func (wb *WhereBuilder) IsEmpty() bool {
	return len(wb.clauses) == 0
}
