// Package influx writes scored feeder readings to InfluxDB v2.
package influx

import (
	"context"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/pkg/errors"

	"github.com/samyak-umathe/L-THackthon/pkg/config"
	"github.com/samyak-umathe/L-THackthon/pkg/grid"
	gsio "github.com/samyak-umathe/L-THackthon/pkg/io"
)

// Measurement is the InfluxDB measurement scored readings are written to.
const Measurement = "feeder_score"

var _ gsio.Sink = (*Sink)(nil)

// PointWriter is the subset of api.WriteAPIBlocking the sink needs.
type PointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// Sink writes one point per reading.
type Sink struct {
	writer PointWriter
	close  func()
	bucket string
	now    func() time.Time
}

// NewSink connects to the server in cfg and verifies it is healthy.
func NewSink(ctx context.Context, cfg config.InfluxConfig) (*Sink, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	if _, err := client.Health(ctx); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "failed to connect to influxdb at %s", cfg.URL)
	}

	s := NewSinkWithWriter(client.WriteAPIBlocking(cfg.Org, cfg.Bucket), cfg.Bucket)
	s.close = client.Close
	return s, nil
}

// NewSinkWithWriter wraps an existing writer.
func NewSinkWithWriter(w PointWriter, bucket string) *Sink {
	return &Sink{writer: w, bucket: bucket, now: time.Now}
}

func (s *Sink) Name() string {
	return "influx:" + s.bucket
}

// Write converts t to points and writes them in one blocking call.
func (s *Sink) Write(ctx context.Context, t *grid.Table) error {
	points := Points(t, s.now())
	if len(points) == 0 {
		return nil
	}
	return errors.Wrap(s.writer.WritePoint(ctx, points...), "failed to write points")
}

func (s *Sink) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
}

// Points builds the points for t. Readings without a parseable date are
// stamped with fallback.
func Points(t *grid.Table, fallback time.Time) []*write.Point {
	points := make([]*write.Point, 0, t.Len())
	for _, r := range t.Readings() {
		ts := r.Date
		if ts.IsZero() {
			ts = fallback
		}

		tags := map[string]string{
			"feeder_id": r.FeederID,
			"state":     r.State,
		}
		if r.RiskLabel != "" {
			tags["risk_label"] = string(r.RiskLabel)
		}

		points = append(points, write.NewPoint(
			Measurement,
			tags,
			map[string]interface{}{
				"units_injected_kwh": r.UnitsInjected,
				"units_billed_kwh":   r.UnitsBilled,
				"loss_percentage":    r.LossPercentage,
				"anomaly_score":      r.AnomalyScore,
				"is_suspicious":      r.IsSuspicious,
				"failure_risk_score": r.FailureRiskScore,
			},
			ts,
		))
	}
	return points
}
