// Package iforest implements the Isolation Forest algorithm for anomaly detection.
package iforest

import (
	"errors"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/samyak-umathe/L-THackthon/pkg/detectors"
)

// eulerGamma is the Euler-Mascheroni constant.
const eulerGamma = 0.5772156649015329

var (
	errEmptyData  = errors.New("empty training data")
	errNotTrained = errors.New("model not trained")
)

var _ detectors.Detector = (*IsolationForest)(nil)

// IsolationForest implements unsupervised anomaly detection using isolation trees.
type IsolationForest struct {
	mu sync.RWMutex

	// Configuration
	nTrees        int
	sampleSize    int
	contamination float64
	threshold     float64
	seed          int64

	// Trained model
	trees     []*iTree
	nFeatures int
	maxDepth  int
	trained   bool

	// Statistics from training
	avgPathLength float64
}

// iTree represents a single isolation tree.
type iTree struct {
	root *node
}

// node is a node in the isolation tree.
type node struct {
	// Split parameters (for internal nodes)
	splitFeature int
	splitValue   float64

	// Children
	left  *node
	right *node

	// Leaf information
	size int // number of samples that reached this leaf
}

// Option configures an IsolationForest.
type Option func(*IsolationForest)

// WithTrees sets the number of isolation trees.
func WithTrees(n int) Option {
	return func(f *IsolationForest) {
		f.nTrees = n
	}
}

// WithSampleSize sets the maximum subsample size for each tree.
func WithSampleSize(n int) Option {
	return func(f *IsolationForest) {
		f.sampleSize = n
	}
}

// WithContamination sets the expected proportion of anomalies.
func WithContamination(c float64) Option {
	return func(f *IsolationForest) {
		f.contamination = c
	}
}

// WithSeed sets the random seed for reproducibility.
func WithSeed(seed int64) Option {
	return func(f *IsolationForest) {
		f.seed = seed
	}
}

// WithConfig applies a shared detector configuration.
func WithConfig(c detectors.Config) Option {
	return func(f *IsolationForest) {
		f.nTrees = c.Trees
		f.sampleSize = c.SampleSize
		f.contamination = c.Contamination
		f.seed = c.RandomSeed
	}
}

// New creates a new IsolationForest with the given options.
func New(opts ...Option) *IsolationForest {
	f := &IsolationForest{
		nTrees:        100,
		sampleSize:    256,
		contamination: 0.1,
		threshold:     0.5,
		seed:          42,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fit trains the Isolation Forest on the provided data. Each call reseeds the
// random source, so fitting the same data twice yields the same model.
func (f *IsolationForest) Fit(data [][]float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, err := f.fit(data)
	return err
}

// FitScore trains on data and returns the per-sample result for the same
// batch in one pass.
func (f *IsolationForest) FitScore(data [][]float64) ([]detectors.Score, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	scores, err := f.fit(data)
	if err != nil {
		return nil, err
	}

	out := make([]detectors.Score, len(scores))
	for i, s := range scores {
		d := f.threshold - s
		out[i] = detectors.Score{Value: s, Decision: d, IsAnomaly: d < 0}
	}
	return out, nil
}

func (f *IsolationForest) fit(data [][]float64) ([]float64, error) {
	if len(data) == 0 {
		return nil, errEmptyData
	}
	if f.nTrees <= 0 {
		return nil, errors.New("tree count must be positive")
	}

	nSamples := len(data)
	nFeatures := len(data[0])
	for _, row := range data {
		if len(row) != nFeatures {
			return nil, errors.New("ragged feature matrix")
		}
	}

	// Adjust sample size if needed
	sampleSize := f.sampleSize
	if sampleSize > nSamples || sampleSize <= 0 {
		sampleSize = nSamples
	}

	// Max depth based on sample size
	f.maxDepth = int(math.Ceil(math.Log2(math.Max(float64(sampleSize), 2))))
	f.nFeatures = nFeatures

	rng := rand.New(rand.NewSource(f.seed))

	// Build trees
	f.trees = make([]*iTree, f.nTrees)
	for i := 0; i < f.nTrees; i++ {
		// Sample without replacement
		indices := rng.Perm(nSamples)[:sampleSize]
		sample := make([][]float64, sampleSize)
		for j, idx := range indices {
			sample[j] = data[idx]
		}

		f.trees[i] = &iTree{root: f.buildNode(rng, sample, 0)}
	}

	// Calculate average path length for normalization
	f.avgPathLength = averagePathLength(float64(sampleSize))
	f.trained = true

	scores, err := f.scoreSamples(data)
	if err != nil {
		return nil, err
	}

	// Set threshold based on contamination
	if f.contamination > 0 {
		f.threshold = percentile(scores, 100*(1-f.contamination))
	}

	return scores, nil
}

func (f *IsolationForest) buildNode(rng *rand.Rand, data [][]float64, depth int) *node {
	n := len(data)

	// Terminal conditions
	if depth >= f.maxDepth || n <= 1 {
		return &node{size: n}
	}

	// Random feature among those that still vary at this node
	feature, minVal, maxVal, ok := pickFeature(rng, data, f.nFeatures)
	if !ok {
		return &node{size: n}
	}

	// Random split value
	splitValue := minVal + rng.Float64()*(maxVal-minVal)

	// Partition data
	var leftData, rightData [][]float64
	for _, row := range data {
		if row[feature] < splitValue {
			leftData = append(leftData, row)
		} else {
			rightData = append(rightData, row)
		}
	}

	return &node{
		splitFeature: feature,
		splitValue:   splitValue,
		left:         f.buildNode(rng, leftData, depth+1),
		right:        f.buildNode(rng, rightData, depth+1),
	}
}

// pickFeature visits features in random order and returns the first one with
// a non-zero range over data.
func pickFeature(rng *rand.Rand, data [][]float64, nFeatures int) (int, float64, float64, bool) {
	for _, feature := range rng.Perm(nFeatures) {
		minVal, maxVal := data[0][feature], data[0][feature]
		for _, row := range data[1:] {
			if row[feature] < minVal {
				minVal = row[feature]
			}
			if row[feature] > maxVal {
				maxVal = row[feature]
			}
		}
		if minVal < maxVal {
			return feature, minVal, maxVal, true
		}
	}
	return 0, 0, 0, false
}

// ScoreSamples returns anomaly scores for the given samples.
func (f *IsolationForest) ScoreSamples(data [][]float64) ([]float64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if !f.trained {
		return nil, errNotTrained
	}

	return f.scoreSamples(data)
}

// DecisionFunction returns Threshold() minus the anomaly score per sample.
func (f *IsolationForest) DecisionFunction(data [][]float64) ([]float64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if !f.trained {
		return nil, errNotTrained
	}

	scores, err := f.scoreSamples(data)
	if err != nil {
		return nil, err
	}
	for i := range scores {
		scores[i] = f.threshold - scores[i]
	}
	return scores, nil
}

// Labels reports which samples score strictly above the threshold.
func (f *IsolationForest) Labels(data [][]float64) ([]bool, error) {
	decisions, err := f.DecisionFunction(data)
	if err != nil {
		return nil, err
	}

	labels := make([]bool, len(decisions))
	for i, d := range decisions {
		labels[i] = d < 0
	}
	return labels, nil
}

func (f *IsolationForest) scoreSamples(data [][]float64) ([]float64, error) {
	scores := make([]float64, len(data))

	for i, sample := range data {
		score, err := f.scoreOne(sample)
		if err != nil {
			return nil, err
		}
		scores[i] = score
	}

	return scores, nil
}

// ScoreOne returns the anomaly score for a single sample.
func (f *IsolationForest) ScoreOne(sample []float64) (float64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if !f.trained {
		return 0, errNotTrained
	}

	return f.scoreOne(sample)
}

func (f *IsolationForest) scoreOne(sample []float64) (float64, error) {
	if len(sample) != f.nFeatures {
		return 0, errors.New("feature count mismatch")
	}

	// Average path length across all trees
	var totalPath float64
	for _, tree := range f.trees {
		totalPath += pathLength(sample, tree.root, 0)
	}
	avgPath := totalPath / float64(len(f.trees))

	// Single-sample forests have c(1) = 0; every point is equally isolated.
	if f.avgPathLength == 0 {
		return 0.5, nil
	}

	// Anomaly score: 2^(-avgPath / c(n))
	// Higher score = more anomalous
	return math.Pow(2, -avgPath/f.avgPathLength), nil
}

// pathLength calculates the path length for a sample in a tree.
func pathLength(sample []float64, n *node, currentDepth int) float64 {
	if n.left == nil && n.right == nil {
		// Leaf node: add expected path length for remaining isolation
		return float64(currentDepth) + averagePathLength(float64(n.size))
	}

	if sample[n.splitFeature] < n.splitValue {
		return pathLength(sample, n.left, currentDepth+1)
	}
	return pathLength(sample, n.right, currentDepth+1)
}

// averagePathLength returns the average path length of unsuccessful search in BST.
func averagePathLength(n float64) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	// c(n) = 2*H(n-1) - 2*(n-1)/n, with H(i) ~ ln(i) + gamma
	return 2*(math.Log(n-1)+eulerGamma) - 2*(n-1)/n
}

// Threshold returns the current anomaly threshold.
func (f *IsolationForest) Threshold() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.threshold
}

// SetThreshold updates the anomaly threshold.
func (f *IsolationForest) SetThreshold(t float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threshold = t
}

// percentile returns the p-th percentile of data using linear interpolation
// between closest ranks.
func percentile(data []float64, p float64) float64 {
	if len(data) == 0 {
		return 0
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	pos := float64(len(sorted)-1) * p / 100
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
