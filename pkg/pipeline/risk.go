package pipeline

import (
	"log/slog"
	"time"

	"github.com/samyak-umathe/L-THackthon/pkg/classifiers"
	"github.com/samyak-umathe/L-THackthon/pkg/classifiers/forest"
	"github.com/samyak-umathe/L-THackthon/pkg/grid"
	"github.com/samyak-umathe/L-THackthon/pkg/preprocessing"
)

// RiskClassifier estimates asset failure risk. It has no failure history to
// learn from, so it is trained on the weak label from grid.IsWeakPositive and
// generalizes that rule across the other features.
type RiskClassifier struct {
	cfg          classifiers.Config
	includeLabel bool
	logger       *slog.Logger
}

// NewRiskClassifier creates a classifier from the pipeline configuration.
func NewRiskClassifier(cfg Config, opts ...Option) *RiskClassifier {
	o := applyOptions(opts)
	return &RiskClassifier{
		cfg:          cfg.Risk,
		includeLabel: cfg.IncludeWeakLabel,
		logger:       o.logger,
	}
}

// WeakLabels derives the training target for every row of t.
func WeakLabels(t *grid.Table) ([]bool, error) {
	m, err := t.Matrix([]string{grid.ColTransformerAge, grid.ColLossPercentage})
	if err != nil {
		return nil, err
	}

	labels := make([]bool, len(m))
	for i, row := range m {
		labels[i] = grid.IsWeakPositive(row[0], row[1])
	}
	return labels, nil
}

// ScoreRisk returns a copy of t with failure_risk_score and risk_label
// appended, plus high_risk_label when configured. The input table is never
// modified.
func (c *RiskClassifier) ScoreRisk(t *grid.Table) (*grid.Table, StageReport, error) {
	if _, err := t.Matrix(RiskFeatures); err != nil {
		return nil, StageReport{}, err
	}
	if t.Len() == 0 {
		return nil, StageReport{}, &grid.InsufficientDataError{Component: "risk", Reason: "empty batch"}
	}

	out := t.Clone()
	rep, err := c.score(out)
	if err != nil {
		return nil, StageReport{}, err
	}
	return out, rep, nil
}

// score appends the risk columns to t in place.
func (c *RiskClassifier) score(t *grid.Table) (StageReport, error) {
	start := time.Now()
	n := t.Len()
	rep := StageReport{Rows: n}

	features, err := t.Matrix(RiskFeatures)
	if err != nil {
		return rep, err
	}
	weak, err := WeakLabels(t)
	if err != nil {
		return rep, err
	}

	train, test := preprocessing.TrainTestSplit(n, c.cfg.TestFraction, c.cfg.RandomSeed)
	trainX := make([][]float64, len(train))
	trainY := make([]bool, len(train))
	positives := 0
	for i, idx := range train {
		trainX[i] = features[idx]
		trainY[i] = weak[idx]
		if weak[idx] {
			positives++
		}
	}
	rep.TrainRows = len(train)

	var proba []float64
	if positives == 0 || positives == len(train) {
		// A single-class target cannot be learned. Every row scores 0 and
		// lands in LOW; the degraded report tells the caller the tier is
		// not a model output.
		proba = make([]float64, n)
		rep.degrade(&grid.InsufficientDataError{
			Component: "risk",
			Rows:      n,
			Reason:    "training split holds a single weak-label class; scored 0",
		})
		c.logger.Warn("risk model not fitted", "rows", n, "train_rows", len(train), "train_positives", positives)
	} else {
		model := forest.New(forest.WithTrees(c.cfg.Trees), forest.WithSeed(c.cfg.RandomSeed))
		if err := model.Fit(trainX, trainY); err != nil {
			return rep, err
		}
		if proba, err = model.PredictProba(features); err != nil {
			return rep, err
		}
		rep.HoldoutAccuracy = holdoutAccuracy(proba, weak, test)
	}

	labels := make([]string, n)
	for i, p := range proba {
		l := grid.LabelFor(p)
		labels[i] = string(l)
		if l == grid.RiskHigh {
			rep.Positive++
		}
	}

	if err := t.SetFloat(grid.ColFailureRiskScore, proba); err != nil {
		return rep, err
	}
	if err := t.SetText(grid.ColRiskLabel, labels); err != nil {
		return rep, err
	}
	if c.includeLabel {
		if err := t.SetBool(grid.ColHighRiskLabel, weak); err != nil {
			return rep, err
		}
	}

	rep.Duration = time.Since(start)
	c.logger.Debug("risk scoring complete",
		"rows", n,
		"train_rows", len(train),
		"train_positives", positives,
		"high", rep.Positive,
		"holdout_accuracy", rep.HoldoutAccuracy,
		"duration", rep.Duration)
	return rep, nil
}

// holdoutAccuracy is the agreement between thresholded predictions and the
// weak label on the held-out rows. It is 0 when nothing was held out.
func holdoutAccuracy(proba []float64, weak []bool, test []int) float64 {
	if len(test) == 0 {
		return 0
	}
	hits := 0
	for _, idx := range test {
		if (proba[idx] > 0.5) == weak[idx] {
			hits++
		}
	}
	return float64(hits) / float64(len(test))
}
