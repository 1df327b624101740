// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package history persists per-cycle composite scores to InfluxDB so the
// dashboard can chart readiness over the life of a call. The sink is
// optional: without an INFLUXDB_TOKEN the analyzer runs with history
// disabled and every method is a no-op on a nil receiver.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/pkg/validation"
	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/datatypes"
)

const scoreMeasurement = "call_scores"

type Sink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	queryAPI api.QueryAPI
	bucket   string
	org      string
}

// NewSink builds the InfluxDB sink from the environment. A missing
// token disables history: the caller gets (nil, nil) and nil-receiver
// methods no-op, so the pipeline never branches on configuration.
func NewSink() (*Sink, error) {
	token := os.Getenv("INFLUXDB_TOKEN")
	if token == "" {
		slog.Warn("INFLUXDB_TOKEN not set, score history disabled")
		return nil, nil
	}

	url := os.Getenv("INFLUXDB_URL")
	if url == "" {
		url = "http://localhost:8086"
		slog.Warn("INFLUXDB_URL not set, defaulting", "url", url)
	}
	org := os.Getenv("INFLUXDB_ORG")
	if org == "" {
		org = "copilot"
	}
	bucket := os.Getenv("INFLUXDB_BUCKET")
	if bucket == "" {
		bucket = "call-history"
	}

	client := influxdb2.NewClient(url, token)
	return &Sink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		queryAPI: client.QueryAPI(org),
		bucket:   bucket,
		org:      org,
	}, nil
}

// Record writes one published analysis state as a point. Pillar
// contributions are stored as fields so Grafana can stack them.
func (s *Sink) Record(ctx context.Context, state datatypes.AnalysisState) error {
	if s == nil {
		return nil
	}
	p := influxdb2.NewPointWithMeasurement(scoreMeasurement).
		AddTag("session_id", state.SessionID).
		AddTag("level", string(state.Result.Level)).
		AddField("score", state.Result.Score).
		AddField("max", state.Result.Max).
		AddField("penalty_total", state.Result.PenaltyTotal).
		AddField("cycle_seq", int64(state.CycleSeq)).
		AddField("degraded", state.Degraded)
	for _, ps := range state.Result.Pillars {
		p.AddField("pillar_"+ps.Pillar.String(), ps.Effective)
	}
	p.SetTime(time.Now().UTC())

	if err := s.writeAPI.WritePoint(ctx, p); err != nil {
		return fmt.Errorf("failed to write the score point: %w", err)
	}
	return nil
}

// ScorePoint is one step of a session's score timeline.
type ScorePoint struct {
	Time  time.Time `json:"time"`
	Score float64   `json:"score"`
}

// Timeline returns the composite score series for one session over the
// lookback window, oldest first.
func (s *Sink) Timeline(ctx context.Context, sessionID string, lookback time.Duration) ([]ScorePoint, error) {
	if s == nil {
		return nil, nil
	}
	// The id lands inside a Flux string literal; reject anything that
	// could break out of it.
	if err := validation.ValidateSessionID(sessionID); err != nil {
		return nil, fmt.Errorf("invalid session id: %w", err)
	}
	query := fmt.Sprintf(`
		from(bucket: "%s")
		  |> range(start: -%ds)
		  |> filter(fn: (r) => r._measurement == "%s")
		  |> filter(fn: (r) => r.session_id == "%s")
		  |> filter(fn: (r) => r._field == "score")
	`, s.bucket, int(lookback.Seconds()), scoreMeasurement, sessionID)

	result, err := s.queryAPI.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query the score timeline: %w", err)
	}
	var points []ScorePoint
	for result.Next() {
		v, ok := result.Record().Value().(float64)
		if !ok {
			continue
		}
		points = append(points, ScorePoint{Time: result.Record().Time(), Score: v})
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("score timeline query failed: %w", result.Err())
	}
	return points, nil
}

// Close flushes and releases the underlying client.
func (s *Sink) Close() {
	if s == nil {
		return
	}
	s.client.Close()
}
