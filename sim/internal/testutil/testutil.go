// Package testutil provides shared test infrastructure for the knapsim
// packages. It has no dependency on sim/ so sim's own tests can import it.
package testutil

import (
	"math"
	"math/rand"
	"testing"
)

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// BruteForceKnapsack enumerates every subset of the items and returns the
// best total value whose total weight is at most capacity. Only usable for
// small n.
func BruteForceKnapsack(capacity int, weights []int, values []float64) float64 {
	n := len(weights)
	best := 0.0
	for mask := 0; mask < 1<<n; mask++ {
		w, v := 0, 0.0
		for i := 0; i < n; i++ {
			if mask&(1<<i) != 0 {
				w += weights[i]
				v += values[i]
			}
		}
		if w <= capacity && v > best {
			best = v
		}
	}
	return best
}

// RandomIntInstance draws n integer weights in [1, maxWeight] and integer
// values in [0, maxValue].
func RandomIntInstance(rng *rand.Rand, n, maxWeight, maxValue int) ([]int, []float64) {
	weights := make([]int, n)
	values := make([]float64, n)
	for i := 0; i < n; i++ {
		weights[i] = 1 + rng.Intn(maxWeight)
		values[i] = float64(rng.Intn(maxValue + 1))
	}
	return weights, values
}

// RandomItems draws n (value, weight) pairs with weights in
// [minWeight, maxWeight) and densities in [lo, hi).
func RandomItems(rng *rand.Rand, n int, minWeight, maxWeight, lo, hi float64) (values, weights []float64) {
	values = make([]float64, n)
	weights = make([]float64, n)
	for i := 0; i < n; i++ {
		w := minWeight + (maxWeight-minWeight)*rng.Float64()
		d := lo + (hi-lo)*rng.Float64()
		weights[i] = w
		values[i] = w * d
	}
	return values, weights
}
