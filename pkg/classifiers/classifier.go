// Package classifiers provides supervised binary classifiers.
package classifiers

// Classifier is the common interface for binary classifiers.
type Classifier interface {
	// Fit trains on a feature matrix and its binary targets.
	Fit(data [][]float64, labels []bool) error

	// PredictProba returns, per sample, the estimated probability of the
	// positive class.
	PredictProba(data [][]float64) ([]float64, error)
}

// Config holds common configuration for classifiers.
type Config struct {
	// Trees is the ensemble size.
	Trees int `yaml:"trees" validate:"gt=0"`
	// TestFraction is the share of the batch held out from training.
	TestFraction float64 `yaml:"test_fraction" validate:"gte=0,lt=1"`
	// RandomSeed for reproducibility of both the split and the fit.
	RandomSeed int64 `yaml:"seed"`
}

// DefaultConfig returns the failure-risk model defaults.
func DefaultConfig() Config {
	return Config{
		Trees:        100,
		TestFraction: 0.2,
		RandomSeed:   42,
	}
}
