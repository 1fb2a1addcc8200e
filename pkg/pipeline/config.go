package pipeline

import (
	"log/slog"

	"github.com/samyak-umathe/L-THackthon/pkg/classifiers"
	"github.com/samyak-umathe/L-THackthon/pkg/detectors"
	"github.com/samyak-umathe/L-THackthon/pkg/grid"
)

// AnomalyFeatures are the columns the suspicious-consumption detector scores.
var AnomalyFeatures = []string{
	grid.ColUnitsInjected,
	grid.ColUnitsBilled,
	grid.ColLossPercentage,
	grid.ColLoadFactor,
	grid.ColTemperature,
	grid.ColVoltageFluctuation,
}

// RiskFeatures are the columns the failure-risk classifier is trained on.
var RiskFeatures = []string{
	grid.ColTransformerAge,
	grid.ColLoadFactor,
	grid.ColTemperature,
	grid.ColLossPercentage,
	grid.ColVoltageFluctuation,
	grid.ColOutageHours,
}

// Config holds the pipeline hyperparameters.
type Config struct {
	Anomaly detectors.Config   `yaml:"anomaly"`
	Risk    classifiers.Config `yaml:"risk"`

	// MinAnomalyRows is the smallest batch the detector is fitted on.
	// Smaller batches are reported all-normal.
	MinAnomalyRows int `yaml:"min_anomaly_rows" validate:"gte=1"`

	// IncludeWeakLabel keeps the high_risk_label training target in the output.
	IncludeWeakLabel bool `yaml:"include_weak_label"`
}

// DefaultConfig returns contamination 0.12, 100-tree ensembles, an 80/20
// split and seed 42 everywhere.
func DefaultConfig() Config {
	return Config{
		Anomaly:          detectors.DefaultConfig(),
		Risk:             classifiers.DefaultConfig(),
		MinAnomalyRows:   2,
		IncludeWeakLabel: true,
	}
}

// Option configures the scorers.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for stage diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func applyOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
