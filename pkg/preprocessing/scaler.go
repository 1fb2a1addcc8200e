// Package preprocessing provides feature scaling and dataset splitting.
package preprocessing

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"
)

// StandardScaler centers each feature to zero mean and scales it to unit
// variance. Statistics come from the data passed to Fit only.
type StandardScaler struct {
	mean  []float64
	scale []float64
}

// NewStandardScaler creates an unfitted scaler.
func NewStandardScaler() *StandardScaler {
	return &StandardScaler{}
}

// Fit computes per-feature mean and population standard deviation. A
// zero-variance feature gets scale 1, so it transforms to all zeros.
func (s *StandardScaler) Fit(data [][]float64) error {
	if len(data) == 0 {
		return errors.New("empty data")
	}

	nFeatures := len(data[0])
	for _, row := range data {
		if len(row) != nFeatures {
			return errors.New("ragged feature matrix")
		}
	}

	mean := make([]float64, nFeatures)
	scale := make([]float64, nFeatures)
	col := make([]float64, len(data))
	for j := range mean {
		for i, row := range data {
			col[i] = row[j]
		}
		mean[j], scale[j] = stat.PopMeanStdDev(col, nil)
		if scale[j] == 0 || math.IsNaN(scale[j]) {
			scale[j] = 1
		}
	}

	s.mean = mean
	s.scale = scale
	return nil
}

// Transform returns a standardized copy of data.
func (s *StandardScaler) Transform(data [][]float64) ([][]float64, error) {
	if s.mean == nil {
		return nil, errors.New("scaler not fitted")
	}

	out := make([][]float64, len(data))
	for i, row := range data {
		if len(row) != len(s.mean) {
			return nil, errors.New("feature count mismatch")
		}
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = (v - s.mean[j]) / s.scale[j]
		}
		out[i] = scaled
	}
	return out, nil
}

// FitTransform fits on data and returns its standardized copy.
func (s *StandardScaler) FitTransform(data [][]float64) ([][]float64, error) {
	if err := s.Fit(data); err != nil {
		return nil, err
	}
	return s.Transform(data)
}

// Mean returns the fitted feature means.
func (s *StandardScaler) Mean() []float64 {
	return append([]float64(nil), s.mean...)
}

// Scale returns the fitted feature scales.
func (s *StandardScaler) Scale() []float64 {
	return append([]float64(nil), s.scale...)
}
