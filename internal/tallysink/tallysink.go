// Package tallysink exports per-date status tallies to InfluxDB so the status
// distribution can be charted over time outside the report.
package tallysink

import (
	"context"
	"errors"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"mipwatch/internal/analysis"
	"mipwatch/internal/platform/config"
	"mipwatch/internal/status"
)

const (
	statusMeasurement = "mip_status_count"
	totalMeasurement  = "mip_total"
)

// PointWriter is the subset of the InfluxDB blocking write API used here.
type PointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// Sink writes tallies as InfluxDB points, one per status per date plus a total.
// Re-writing a date overwrites its points since the series and timestamp match.
type Sink struct {
	writer PointWriter
	client influxdb2.Client
}

// New connects to InfluxDB using cfg.
func New(cfg config.Influx) (*Sink, error) {
	if cfg.URL == "" {
		return nil, errors.New("influx url is required")
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &Sink{
		writer: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		client: client,
	}, nil
}

// NewWithWriter wraps an existing writer.
func NewWithWriter(w PointWriter) *Sink {
	return &Sink{writer: w}
}

// WriteTallies writes every tally in one call.
func (s *Sink) WriteTallies(ctx context.Context, tallies []analysis.DateTally) error {
	points := Points(tallies)
	if len(points) == 0 {
		return nil
	}
	if err := s.writer.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("write tally points: %w", err)
	}
	return nil
}

// Health reports whether the InfluxDB server is reachable.
func (s *Sink) Health(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	if _, err := s.client.Health(ctx); err != nil {
		return fmt.Errorf("influx health: %w", err)
	}
	return nil
}

// Close releases the client.
func (s *Sink) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

// Points converts tallies to InfluxDB points timestamped at each publish date.
func Points(tallies []analysis.DateTally) []*write.Point {
	var points []*write.Point
	for _, t := range tallies {
		for _, b := range t.Buckets() {
			points = append(points, influxdb2.NewPoint(
				statusMeasurement,
				map[string]string{"status": b.Status, "known": fmt.Sprint(status.IsKnown(b.Status))},
				map[string]interface{}{"count": b.Count},
				t.Date,
			))
		}
		points = append(points, influxdb2.NewPoint(
			totalMeasurement,
			nil,
			map[string]interface{}{"count": t.Total},
			t.Date,
		))
	}
	return points
}
