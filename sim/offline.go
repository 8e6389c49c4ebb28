package sim

import (
	"fmt"
	"math"
	"slices"
)

// OfflineSolution is the exact optimum of a 0/1 knapsack instance.
type OfflineSolution struct {
	Value  float64 `json:"value"`
	Weight int     `json:"weight"` // total weight of Packed
	Packed []int   `json:"packed"` // ascending item indices
}

// Offline optimum: bounded-capacity 0/1 knapsack.
//
// Algorithm Outline (full table):
//  1. Let n = len(weights). Allocate an (n+1)x(W+1) table D, D[0][*] = 0.
//  2. For i = 1..n, for w = 0..W:
//     D[i][w] = D[i-1][w]
//     if weights[i-1] <= w: D[i][w] = max(D[i][w], D[i-1][w-weights[i-1]] + values[i-1])
//  3. value = D[n][W].
//  4. Backtrack from (n, W): item i-1 is packed iff D[i][w] != D[i-1][w];
//     then w -= weights[i-1].
//
// OptimalValue keeps a single row updated from W down to 1 so each item
// is used at most once. It returns the same value in O(W) memory but no
// packing.
//
// Complexity:
//
//	Time   = O(n·W)
//	Memory = O(n·W) (SolveOffline) or O(W) (OptimalValue)

func validateOffline(capacity int, weights []int, values []float64) error {
	if capacity < 0 {
		return fmt.Errorf("%w: capacity must be non-negative, got %d", ErrDomain, capacity)
	}
	if len(weights) != len(values) {
		return fmt.Errorf("%w: %d weights but %d values", ErrDomain, len(weights), len(values))
	}
	for i, w := range weights {
		if w <= 0 {
			return fmt.Errorf("%w: item %d weight must be positive, got %d", ErrDomain, i, w)
		}
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: item %d value must be non-negative and finite, got %v", ErrDomain, i, v)
		}
	}
	return nil
}

// nothingFits reports the fast path where no single item fits.
func nothingFits(capacity int, weights []int) bool {
	return len(weights) == 0 || slices.Min(weights) > capacity
}

// SolveOffline returns the optimal value and a consistent optimal packing.
func SolveOffline(capacity int, weights []int, values []float64) (*OfflineSolution, error) {
	if err := validateOffline(capacity, weights, values); err != nil {
		return nil, err
	}
	if nothingFits(capacity, weights) {
		return &OfflineSolution{Packed: []int{}}, nil
	}

	n, cols := len(weights), capacity+1
	dp := make([]float64, (n+1)*cols)
	row := func(i int) []float64 { return dp[i*cols : (i+1)*cols] }

	for i := 1; i <= n; i++ {
		prev, curr := row(i-1), row(i)
		wt, val := weights[i-1], values[i-1]
		for w := 0; w <= capacity; w++ {
			curr[w] = prev[w]
			if wt <= w {
				if take := prev[w-wt] + val; take > curr[w] {
					curr[w] = take
				}
			}
		}
	}

	sol := &OfflineSolution{Value: row(n)[capacity], Packed: []int{}}
	w := capacity
	for i := n; i >= 1; i-- {
		if row(i)[w] != row(i-1)[w] {
			sol.Packed = append(sol.Packed, i-1)
			sol.Weight += weights[i-1]
			w -= weights[i-1]
		}
	}
	slices.Reverse(sol.Packed)
	return sol, nil
}

// OptimalValue returns only the optimal value using a single DP row.
func OptimalValue(capacity int, weights []int, values []float64) (float64, error) {
	if err := validateOffline(capacity, weights, values); err != nil {
		return 0, err
	}
	if nothingFits(capacity, weights) {
		return 0, nil
	}
	dp := make([]float64, capacity+1)
	for i, wt := range weights {
		for w := capacity; w >= wt; w-- {
			dp[w] = math.Max(dp[w], dp[w-wt]+values[i])
		}
	}
	return dp[capacity], nil
}

// ScaleWeights converts real weights to the integer grid the DP runs on by
// truncating w·scale. Truncation never enlarges an item, so any set that
// fits in the real knapsack still fits after scaling.
func ScaleWeights(weights []float64, scale float64) ([]int, error) {
	if !(scale > 0) || math.IsInf(scale, 0) {
		return nil, fmt.Errorf("%w: weight scale must be positive and finite, got %v", ErrDomain, scale)
	}
	out := make([]int, len(weights))
	for i, w := range weights {
		s := math.Trunc(w * scale)
		if !(s >= 1) || s > math.MaxInt32 {
			return nil, fmt.Errorf("%w: item %d weight %v scales to %v, outside [1, MaxInt32]", ErrDomain, i, w, s)
		}
		out[i] = int(s)
	}
	return out, nil
}

// ScaleCapacity truncates capacity·scale to an integer DP capacity.
func ScaleCapacity(capacity, scale float64) (int, error) {
	if !(scale > 0) || math.IsInf(scale, 0) {
		return 0, fmt.Errorf("%w: weight scale must be positive and finite, got %v", ErrDomain, scale)
	}
	s := math.Trunc(capacity * scale)
	if !(s >= 0) || s > math.MaxInt32 {
		return 0, fmt.Errorf("%w: capacity %v scales to %v, outside [0, MaxInt32]", ErrDomain, capacity, s)
	}
	return int(s), nil
}

// SolveTrace scales a real-weighted trace onto the integer grid and solves it.
func SolveTrace(items Trace, capacity, scale float64) (*OfflineSolution, error) {
	if err := items.Validate(); err != nil {
		return nil, err
	}
	weights, err := ScaleWeights(items.Weights(), scale)
	if err != nil {
		return nil, err
	}
	w, err := ScaleCapacity(capacity, scale)
	if err != nil {
		return nil, err
	}
	return SolveOffline(w, weights, items.Values())
}
