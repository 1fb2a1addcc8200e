// Package detectors provides unsupervised anomaly detection algorithms.
package detectors

// Detector is the common interface for all anomaly detection algorithms.
type Detector interface {
	// Fit trains the detector on a batch.
	// data is a 2D slice where each row is a sample and each column is a feature.
	Fit(data [][]float64) error

	// ScoreSamples returns raw anomaly scores in [0, 1] where higher values
	// indicate anomalies.
	ScoreSamples(data [][]float64) ([]float64, error)

	// DecisionFunction returns threshold-relative scores: negative values
	// are outliers, non-negative values are inliers.
	DecisionFunction(data [][]float64) ([]float64, error)

	// Labels reports, per sample, whether it is an outlier.
	Labels(data [][]float64) ([]bool, error)
}

// Score represents an anomaly detection result for one sample.
type Score struct {
	// Value is the raw anomaly score in [0, 1].
	Value float64
	// Decision is Threshold - Value; negative for outliers.
	Decision float64
	// IsAnomaly indicates the sample lies in the contamination fraction.
	IsAnomaly bool
}

// Config holds common configuration for detectors.
type Config struct {
	// Contamination is the expected proportion of anomalies in the batch.
	Contamination float64 `yaml:"contamination" validate:"gte=0,lt=0.5"`
	// Trees is the ensemble size.
	Trees int `yaml:"trees" validate:"gt=0"`
	// SampleSize caps the per-tree subsample.
	SampleSize int `yaml:"sample_size" validate:"gt=1"`
	// RandomSeed for reproducibility.
	RandomSeed int64 `yaml:"seed"`
}

// DefaultConfig returns the feeder-theft detection defaults.
func DefaultConfig() Config {
	return Config{
		Contamination: 0.12,
		Trees:         100,
		SampleSize:    256,
		RandomSeed:    42,
	}
}
