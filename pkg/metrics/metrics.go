// Package metrics exports pipeline and API metrics to Prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/samyak-umathe/L-THackthon/pkg/grid"
	"github.com/samyak-umathe/L-THackthon/pkg/pipeline"
)

const namespace = "gridsense"

// Run outcomes.
const (
	RunOK       = "ok"
	RunDegraded = "degraded"
	RunFailed   = "error"
)

// Metrics holds every collector. Create one per registry.
type Metrics struct {
	Runs            *prometheus.CounterVec
	RowsScored      prometheus.Counter
	Suspicious      prometheus.Counter
	RiskLabels      *prometheus.CounterVec
	StageDuration   *prometheus.HistogramVec
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	CacheLookups    *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Runs: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pipeline_runs_total",
				Help:      "Pipeline runs by outcome",
			},
			[]string{"outcome"},
		),
		RowsScored: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_scored_total",
			Help:      "Feeder readings scored",
		}),
		Suspicious: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suspicious_rows_total",
			Help:      "Readings flagged as suspicious by the anomaly stage",
		}),
		RiskLabels: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "risk_labels_total",
				Help:      "Readings by assigned risk label",
			},
			[]string{"label"},
		),
		StageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Time spent in each pipeline stage",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"stage"},
		),
		Requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"route", "method"},
		),
		CacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Result cache lookups by result",
			},
			[]string{"result"},
		),
	}
}

// ObserveRun records a finished pipeline run. When err is set only the
// failure is counted.
func (m *Metrics) ObserveRun(rep pipeline.Report, err error) {
	switch {
	case err != nil:
		m.Runs.WithLabelValues(RunFailed).Inc()
		return
	case rep.Degraded():
		m.Runs.WithLabelValues(RunDegraded).Inc()
	default:
		m.Runs.WithLabelValues(RunOK).Inc()
	}

	m.RowsScored.Add(float64(rep.Rows))
	m.Suspicious.Add(float64(rep.Suspicious))
	for _, l := range []grid.RiskLabel{grid.RiskHigh, grid.RiskMedium, grid.RiskLow} {
		m.RiskLabels.WithLabelValues(string(l)).Add(float64(rep.RiskCounts[l]))
	}
	m.StageDuration.WithLabelValues("anomaly").Observe(rep.Anomaly.Duration.Seconds())
	m.StageDuration.WithLabelValues("risk").Observe(rep.Risk.Duration.Seconds())
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, d time.Duration) {
	m.Requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

// ObserveCache records a cache lookup.
func (m *Metrics) ObserveCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}
