// Package forest implements a random forest of CART trees for binary
// classification.
package forest

import (
	"errors"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/samyak-umathe/L-THackthon/pkg/classifiers"
)

var (
	errEmptyData  = errors.New("empty training data")
	errNotTrained = errors.New("model not trained")
)

var _ classifiers.Classifier = (*RandomForest)(nil)

// RandomForest averages the positive-class leaf fractions of bootstrapped
// Gini trees.
type RandomForest struct {
	mu sync.RWMutex

	// Configuration
	nTrees          int
	maxFeatures     int // 0 means sqrt(nFeatures)
	maxDepth        int // 0 means unlimited
	minSamplesSplit int
	bootstrap       bool
	seed            int64

	// Trained model
	trees     []*node
	nFeatures int
	trained   bool
}

type node struct {
	feature   int
	threshold float64
	left      *node
	right     *node

	// value is the fraction of positive samples reaching this node.
	value float64
}

func (n *node) leaf() bool {
	return n.left == nil
}

// Option configures a RandomForest.
type Option func(*RandomForest)

// WithTrees sets the number of trees.
func WithTrees(n int) Option {
	return func(f *RandomForest) {
		f.nTrees = n
	}
}

// WithMaxFeatures sets how many features each split considers.
func WithMaxFeatures(n int) Option {
	return func(f *RandomForest) {
		f.maxFeatures = n
	}
}

// WithMaxDepth limits tree depth. Zero disables the limit.
func WithMaxDepth(d int) Option {
	return func(f *RandomForest) {
		f.maxDepth = d
	}
}

// WithMinSamplesSplit sets the smallest node that may be split.
func WithMinSamplesSplit(n int) Option {
	return func(f *RandomForest) {
		f.minSamplesSplit = n
	}
}

// WithBootstrap toggles sampling with replacement per tree.
func WithBootstrap(b bool) Option {
	return func(f *RandomForest) {
		f.bootstrap = b
	}
}

// WithSeed sets the random seed for reproducibility.
func WithSeed(seed int64) Option {
	return func(f *RandomForest) {
		f.seed = seed
	}
}

// New creates a RandomForest with the given options.
func New(opts ...Option) *RandomForest {
	f := &RandomForest{
		nTrees:          100,
		minSamplesSplit: 2,
		bootstrap:       true,
		seed:            42,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fit grows the forest. Each call reseeds the random source.
func (f *RandomForest) Fit(data [][]float64, labels []bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(data) == 0 {
		return errEmptyData
	}
	if len(data) != len(labels) {
		return errors.New("data and labels differ in length")
	}
	if f.nTrees <= 0 {
		return errors.New("tree count must be positive")
	}

	nFeatures := len(data[0])
	for _, row := range data {
		if len(row) != nFeatures {
			return errors.New("ragged feature matrix")
		}
	}

	mtry := f.maxFeatures
	if mtry <= 0 {
		mtry = int(math.Sqrt(float64(nFeatures)))
	}
	if mtry < 1 {
		mtry = 1
	}
	if mtry > nFeatures {
		mtry = nFeatures
	}

	rng := rand.New(rand.NewSource(f.seed))
	b := &builder{
		data:            data,
		labels:          labels,
		nFeatures:       nFeatures,
		mtry:            mtry,
		maxDepth:        f.maxDepth,
		minSamplesSplit: f.minSamplesSplit,
		rng:             rng,
	}

	n := len(data)
	f.trees = make([]*node, f.nTrees)
	for t := range f.trees {
		idx := make([]int, n)
		for i := range idx {
			if f.bootstrap {
				idx[i] = rng.Intn(n)
			} else {
				idx[i] = i
			}
		}
		f.trees[t] = b.grow(idx, 0)
	}

	f.nFeatures = nFeatures
	f.trained = true
	return nil
}

// PredictProba returns the mean positive-class probability across trees.
func (f *RandomForest) PredictProba(data [][]float64) ([]float64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if !f.trained {
		return nil, errNotTrained
	}

	out := make([]float64, len(data))
	for i, sample := range data {
		if len(sample) != f.nFeatures {
			return nil, errors.New("feature count mismatch")
		}
		var sum float64
		for _, root := range f.trees {
			sum += descend(root, sample).value
		}
		out[i] = sum / float64(len(f.trees))
	}
	return out, nil
}

// Predict returns true where the positive-class probability exceeds 0.5.
func (f *RandomForest) Predict(data [][]float64) ([]bool, error) {
	proba, err := f.PredictProba(data)
	if err != nil {
		return nil, err
	}

	out := make([]bool, len(proba))
	for i, p := range proba {
		out[i] = p > 0.5
	}
	return out, nil
}

func descend(n *node, sample []float64) *node {
	for !n.leaf() {
		if sample[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n
}

// builder holds the state shared while growing one forest.
type builder struct {
	data            [][]float64
	labels          []bool
	nFeatures       int
	mtry            int
	maxDepth        int
	minSamplesSplit int
	rng             *rand.Rand
}

func (b *builder) grow(idx []int, depth int) *node {
	n := len(idx)
	pos := 0
	for _, i := range idx {
		if b.labels[i] {
			pos++
		}
	}
	nd := &node{value: float64(pos) / float64(n)}

	if pos == 0 || pos == n || n < b.minSamplesSplit || (b.maxDepth > 0 && depth >= b.maxDepth) {
		return nd
	}

	s, ok := b.bestSplit(idx, pos)
	if !ok {
		return nd
	}

	var left, right []int
	for _, i := range idx {
		if b.data[i][s.feature] <= s.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	nd.feature = s.feature
	nd.threshold = s.threshold
	nd.left = b.grow(left, depth+1)
	nd.right = b.grow(right, depth+1)
	return nd
}

type split struct {
	feature   int
	threshold float64
	impurity  float64
}

// bestSplit evaluates features in random order until mtry non-constant ones
// have been tried, keeping the split with the lowest weighted Gini impurity.
// It keeps searching past mtry while no valid split has been found.
func (b *builder) bestSplit(idx []int, pos int) (split, bool) {
	best := split{impurity: math.Inf(1)}
	found := false
	visited := 0

	order := make([]int, len(idx))
	for _, feature := range b.rng.Perm(b.nFeatures) {
		if visited >= b.mtry && found {
			break
		}

		copy(order, idx)
		sort.SliceStable(order, func(x, y int) bool {
			return b.data[order[x]][feature] < b.data[order[y]][feature]
		})
		if b.data[order[0]][feature] == b.data[order[len(order)-1]][feature] {
			continue
		}
		visited++

		s, ok := b.scanFeature(order, feature, pos)
		if ok && s.impurity < best.impurity {
			best = s
			found = true
		}
	}

	return best, found
}

// scanFeature sweeps the sorted samples once, scoring every boundary between
// distinct values.
func (b *builder) scanFeature(order []int, feature, pos int) (split, bool) {
	n := len(order)
	best := split{feature: feature, impurity: math.Inf(1)}
	found := false

	leftPos := 0
	for k := 1; k < n; k++ {
		if b.labels[order[k-1]] {
			leftPos++
		}
		lo := b.data[order[k-1]][feature]
		hi := b.data[order[k]][feature]
		if lo == hi {
			continue
		}

		nl, nr := k, n-k
		imp := (float64(nl)*gini(leftPos, nl) + float64(nr)*gini(pos-leftPos, nr)) / float64(n)
		if imp < best.impurity {
			threshold := lo + (hi-lo)/2
			if threshold >= hi {
				threshold = lo
			}
			best.threshold = threshold
			best.impurity = imp
			found = true
		}
	}

	return best, found
}

func gini(pos, n int) float64 {
	if n == 0 {
		return 0
	}
	p := float64(pos) / float64(n)
	return 2 * p * (1 - p)
}
