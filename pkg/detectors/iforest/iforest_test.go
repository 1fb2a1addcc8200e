package iforest

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samyak-umathe/L-THackthon/pkg/detectors"
)

func TestNewIsolationForest(t *testing.T) {
	tests := []struct {
		name       string
		opts       []Option
		wantNTrees int
		wantSeed   int64
	}{
		{
			name:       "default configuration",
			opts:       nil,
			wantNTrees: 100,
			wantSeed:   42,
		},
		{
			name:       "custom trees",
			opts:       []Option{WithTrees(50)},
			wantNTrees: 50,
			wantSeed:   42,
		},
		{
			name:       "multiple options",
			opts:       []Option{WithTrees(200), WithContamination(0.05), WithSeed(123)},
			wantNTrees: 200,
			wantSeed:   123,
		},
		{
			name:       "shared config",
			opts:       []Option{WithConfig(detectors.DefaultConfig())},
			wantNTrees: 100,
			wantSeed:   42,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(tt.opts...)
			assert.Equal(t, tt.wantNTrees, f.nTrees)
			assert.Equal(t, tt.wantSeed, f.seed)
		})
	}
}

func TestFit(t *testing.T) {
	tests := []struct {
		name    string
		data    [][]float64
		wantErr bool
	}{
		{
			name:    "empty data",
			data:    [][]float64{},
			wantErr: true,
		},
		{
			name:    "ragged data",
			data:    [][]float64{{1, 2}, {1}},
			wantErr: true,
		},
		{
			name:    "single sample",
			data:    [][]float64{{1.0, 2.0, 3.0}},
			wantErr: false,
		},
		{
			name:    "normal data",
			data:    generateTestData(100, 5),
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(WithTrees(10), WithSeed(42))
			err := f.Fit(tt.data)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.True(t, f.trained)
				assert.Len(t, f.trees, f.nTrees)
			}
		})
	}
}

func TestScoreSamples(t *testing.T) {
	trainData := generateTestData(500, 5)
	f := New(WithTrees(50), WithSampleSize(100), WithSeed(42))
	require.NoError(t, f.Fit(trainData))

	t.Run("scores on normal data", func(t *testing.T) {
		testData := generateTestData(100, 5)
		scores, err := f.ScoreSamples(testData)

		require.NoError(t, err)
		assert.Len(t, scores, len(testData))

		// All scores should be in [0, 1]
		for _, score := range scores {
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)
		}
	})

	t.Run("scores on anomalies", func(t *testing.T) {
		anomalies := [][]float64{
			{1000, 1000, 1000, 1000, 1000},
			{-500, -500, -500, -500, -500},
		}
		scores, err := f.ScoreSamples(anomalies)

		require.NoError(t, err)
		for _, score := range scores {
			assert.Greater(t, score, 0.4, "anomalies should have high scores")
		}
	})

	t.Run("feature count mismatch", func(t *testing.T) {
		_, err := f.ScoreSamples([][]float64{{1, 2}})
		assert.Error(t, err)
	})

	t.Run("score before fit", func(t *testing.T) {
		untrained := New()
		_, err := untrained.ScoreSamples(trainData)
		assert.Error(t, err)
		_, err = untrained.DecisionFunction(trainData)
		assert.Error(t, err)
	})
}

func TestScoreOne(t *testing.T) {
	trainData := generateTestData(200, 3)
	f := New(WithTrees(20), WithSeed(42))
	require.NoError(t, f.Fit(trainData))

	score, err := f.ScoreOne([]float64{0.5, 0.5, 0.5})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)
}

func TestFitIsDeterministic(t *testing.T) {
	data := generateTestData(300, 4)

	a := New(WithContamination(0.12), WithSeed(7))
	b := New(WithContamination(0.12), WithSeed(7))

	ra, err := a.FitScore(data)
	require.NoError(t, err)
	rb, err := b.FitScore(data)
	require.NoError(t, err)
	assert.Equal(t, ra, rb)

	// refitting the same instance reproduces the model
	rc, err := a.FitScore(data)
	require.NoError(t, err)
	assert.Equal(t, ra, rc)
}

func TestContaminationBound(t *testing.T) {
	tests := []struct {
		name          string
		n             int
		contamination float64
		want          int
	}{
		{"twelve percent of 100", 100, 0.12, 12},
		{"twelve percent of 500", 500, 0.12, 60},
		{"five percent of 200", 200, 0.05, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := generateTestData(tt.n, 6)
			f := New(WithContamination(tt.contamination), WithSeed(42))
			results, err := f.FitScore(data)
			require.NoError(t, err)

			outliers := 0
			for _, r := range results {
				if r.IsAnomaly {
					outliers++
					assert.Less(t, r.Decision, 0.0)
				} else {
					assert.GreaterOrEqual(t, r.Decision, 0.0)
				}
			}
			assert.InDelta(t, tt.want, outliers, 1)
		})
	}
}

func TestLabelsMatchDecisionFunction(t *testing.T) {
	data := generateTestData(150, 3)
	f := New(WithContamination(0.1), WithSeed(42))
	require.NoError(t, f.Fit(data))

	decisions, err := f.DecisionFunction(data)
	require.NoError(t, err)
	labels, err := f.Labels(data)
	require.NoError(t, err)

	for i := range labels {
		assert.Equal(t, decisions[i] < 0, labels[i])
	}
}

func TestIdenticalSamples(t *testing.T) {
	data := [][]float64{{0, 0}, {0, 0}, {0, 0}}
	f := New(WithContamination(0.12), WithSeed(42))

	results, err := f.FitScore(data)
	require.NoError(t, err)
	for _, r := range results {
		assert.InDelta(t, 0.5, r.Value, 1e-9)
		assert.Equal(t, 0.0, r.Decision)
		assert.False(t, r.IsAnomaly)
	}
}

func TestThreshold(t *testing.T) {
	f := New()
	f.trained = true

	// Test getter
	assert.Equal(t, 0.5, f.Threshold())

	// Test setter
	f.SetThreshold(0.7)
	assert.Equal(t, 0.7, f.Threshold())
}

func TestAveragePathLength(t *testing.T) {
	assert.Equal(t, 0.0, averagePathLength(0))
	assert.Equal(t, 0.0, averagePathLength(1))
	assert.Equal(t, 1.0, averagePathLength(2))
	assert.InDelta(t, 10.24, averagePathLength(256), 0.01)
}

func TestPercentile(t *testing.T) {
	data := []float64{4, 1, 3, 2, 5}
	assert.Equal(t, 1.0, percentile(data, 0))
	assert.Equal(t, 3.0, percentile(data, 50))
	assert.Equal(t, 5.0, percentile(data, 100))
	assert.InDelta(t, 4.52, percentile(data, 88), 1e-9)
	assert.Equal(t, 0.0, percentile(nil, 50))
}

func BenchmarkFit(b *testing.B) {
	data := generateTestData(10000, 10)
	f := New(WithTrees(100), WithSampleSize(256))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		f.Fit(data)
	}
}

func BenchmarkScoreSamples(b *testing.B) {
	trainData := generateTestData(5000, 10)
	testData := generateTestData(1000, 10)

	f := New(WithTrees(100), WithSampleSize(256))
	f.Fit(trainData)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		f.ScoreSamples(testData)
	}
}

func generateTestData(n, features int) [][]float64 {
	rng := rand.New(rand.NewSource(int64(n*31 + features)))
	data := make([][]float64, n)
	for i := 0; i < n; i++ {
		data[i] = make([]float64, features)
		for j := 0; j < features; j++ {
			data[i][j] = rng.NormFloat64()
		}
	}
	return data
}
