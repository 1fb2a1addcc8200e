package pipeline

import (
	"log/slog"
	"time"

	"github.com/samyak-umathe/L-THackthon/pkg/detectors"
	"github.com/samyak-umathe/L-THackthon/pkg/detectors/iforest"
	"github.com/samyak-umathe/L-THackthon/pkg/grid"
	"github.com/samyak-umathe/L-THackthon/pkg/preprocessing"
)

// AnomalyScorer flags readings whose consumption profile is an outlier
// within their batch. Flags are batch-relative: the same reading may be
// flagged in one batch and not in another.
type AnomalyScorer struct {
	cfg     detectors.Config
	minRows int
	logger  *slog.Logger
}

// NewAnomalyScorer creates a scorer from the pipeline configuration.
func NewAnomalyScorer(cfg Config, opts ...Option) *AnomalyScorer {
	o := applyOptions(opts)
	minRows := cfg.MinAnomalyRows
	if minRows < 1 {
		minRows = 1
	}
	return &AnomalyScorer{
		cfg:     cfg.Anomaly,
		minRows: minRows,
		logger:  o.logger,
	}
}

// ScoreAnomalies returns a copy of t with anomaly_score and is_suspicious
// appended. The input table is never modified.
func (s *AnomalyScorer) ScoreAnomalies(t *grid.Table) (*grid.Table, StageReport, error) {
	if _, err := t.Matrix(AnomalyFeatures); err != nil {
		return nil, StageReport{}, err
	}
	if t.Len() == 0 {
		return nil, StageReport{}, &grid.InsufficientDataError{Component: "anomaly", Reason: "empty batch"}
	}

	out := t.Clone()
	rep, err := s.score(out)
	if err != nil {
		return nil, StageReport{}, err
	}
	return out, rep, nil
}

// score appends the anomaly columns to t in place.
func (s *AnomalyScorer) score(t *grid.Table) (StageReport, error) {
	start := time.Now()
	n := t.Len()
	rep := StageReport{Rows: n}

	features, err := t.Matrix(AnomalyFeatures)
	if err != nil {
		return rep, err
	}

	scores := make([]float64, n)
	flags := make([]bool, n)

	if n < s.minRows {
		rep.degrade(&grid.InsufficientDataError{
			Component: "anomaly",
			Rows:      n,
			Reason:    "batch below detector minimum; all rows reported normal",
		})
		s.logger.Warn("anomaly scoring skipped", "rows", n, "min_rows", s.minRows)
	} else {
		scaled, err := preprocessing.NewStandardScaler().FitTransform(features)
		if err != nil {
			return rep, err
		}

		results, err := iforest.New(iforest.WithConfig(s.cfg)).FitScore(scaled)
		if err != nil {
			return rep, err
		}

		for i, r := range results {
			scores[i] = r.Decision
			flags[i] = r.IsAnomaly
			if r.IsAnomaly {
				rep.Positive++
			}
		}
	}

	if err := t.SetFloat(grid.ColAnomalyScore, scores); err != nil {
		return rep, err
	}
	if err := t.SetBool(grid.ColIsSuspicious, flags); err != nil {
		return rep, err
	}

	rep.Duration = time.Since(start)
	s.logger.Debug("anomaly scoring complete",
		"rows", n,
		"suspicious", rep.Positive,
		"contamination", s.cfg.Contamination,
		"duration", rep.Duration)
	return rep, nil
}
