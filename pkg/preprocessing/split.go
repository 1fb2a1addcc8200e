package preprocessing

import (
	"math"
	"math/rand"
)

// TrainTestSplit shuffles the indices 0..n-1 with the given seed and returns
// ceil(testFraction*n) of them as the test set and the rest as the training
// set. The same n, fraction and seed always produce the same split.
func TrainTestSplit(n int, testFraction float64, seed int64) (train, test []int) {
	if n <= 0 {
		return nil, nil
	}

	nTest := int(math.Ceil(testFraction * float64(n)))
	if nTest < 0 {
		nTest = 0
	}
	if nTest > n {
		nTest = n
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return perm[nTest:], perm[:nTest]
}
