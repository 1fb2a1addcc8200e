// Package pipeline scores a batch of feeder readings for suspicious
// consumption and asset failure risk.
//
// Every call refits both models from the batch it is given and keeps no state
// between calls, so scoring is a pure function of the input table and the
// configuration. Separate calls may run concurrently on separate tables.
package pipeline

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/samyak-umathe/L-THackthon/pkg/grid"
)

// StageReport describes one scoring stage.
type StageReport struct {
	Rows int `json:"rows"`
	// Positive counts suspicious rows for the anomaly stage and HIGH rows
	// for the risk stage.
	Positive        int           `json:"positive"`
	TrainRows       int           `json:"train_rows,omitempty"`
	HoldoutAccuracy float64       `json:"holdout_accuracy,omitempty"`
	Degraded        bool          `json:"degraded"`
	Reason          string        `json:"reason,omitempty"`
	Duration        time.Duration `json:"duration_ns"`

	err error
}

// Err returns the *grid.InsufficientDataError behind a degraded stage.
func (r StageReport) Err() error {
	return r.err
}

func (r *StageReport) degrade(err *grid.InsufficientDataError) {
	r.Degraded = true
	r.Reason = err.Reason
	r.err = err
}

// Report summarizes one pipeline run.
type Report struct {
	RunID      string                 `json:"run_id"`
	Rows       int                    `json:"rows"`
	Suspicious int                    `json:"suspicious"`
	RiskCounts map[grid.RiskLabel]int `json:"risk_counts"`
	Anomaly    StageReport            `json:"anomaly"`
	Risk       StageReport            `json:"risk"`
	Duration   time.Duration          `json:"duration_ns"`
}

// Degraded reports whether either stage fell back.
func (r Report) Degraded() bool {
	return r.Anomaly.Degraded || r.Risk.Degraded
}

// Pipeline runs the anomaly scorer and then the risk classifier.
type Pipeline struct {
	cfg     Config
	anomaly *AnomalyScorer
	risk    *RiskClassifier
	logger  *slog.Logger
}

// New creates a Pipeline.
func New(cfg Config, opts ...Option) *Pipeline {
	o := applyOptions(opts)
	return &Pipeline{
		cfg:     cfg,
		anomaly: NewAnomalyScorer(cfg, opts...),
		risk:    NewRiskClassifier(cfg, opts...),
		logger:  o.logger,
	}
}

// Config returns the configuration the pipeline was built with.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Run validates t against both stages' schemas, then returns a copy of t
// with the five derived columns appended. A schema violation is returned
// before any model is fitted and no table is produced.
func (p *Pipeline) Run(t *grid.Table) (*grid.Table, Report, error) {
	start := time.Now()

	if _, err := t.Matrix(requiredColumns()); err != nil {
		return nil, Report{}, err
	}
	if t.Len() == 0 {
		return nil, Report{}, &grid.InsufficientDataError{Component: "pipeline", Reason: "empty batch"}
	}

	rep := Report{
		RunID: uuid.NewString(),
		Rows:  t.Len(),
	}
	log := p.logger.With("run_id", rep.RunID)
	log.Debug("pipeline started", "rows", rep.Rows)

	out := t.Clone()

	var err error
	if rep.Anomaly, err = p.anomaly.score(out); err != nil {
		return nil, Report{}, err
	}
	if rep.Risk, err = p.risk.score(out); err != nil {
		return nil, Report{}, err
	}

	rep.Suspicious = rep.Anomaly.Positive
	rep.RiskCounts = CountLabels(out)
	rep.Duration = time.Since(start)

	log.Debug("pipeline finished",
		"suspicious", rep.Suspicious,
		"high", rep.RiskCounts[grid.RiskHigh],
		"degraded", rep.Degraded(),
		"duration", rep.Duration)
	return out, rep, nil
}

// CountLabels tallies risk_label values. All three tiers are always present.
func CountLabels(t *grid.Table) map[grid.RiskLabel]int {
	counts := map[grid.RiskLabel]int{
		grid.RiskHigh:   0,
		grid.RiskMedium: 0,
		grid.RiskLow:    0,
	}
	labels, ok := t.Text(grid.ColRiskLabel)
	if !ok {
		return counts
	}
	for _, l := range labels {
		counts[grid.RiskLabel(l)]++
	}
	return counts
}

func requiredColumns() []string {
	seen := make(map[string]bool)
	var cols []string
	for _, c := range append(append([]string{}, AnomalyFeatures...), RiskFeatures...) {
		if !seen[c] {
			seen[c] = true
			cols = append(cols, c)
		}
	}
	return cols
}
