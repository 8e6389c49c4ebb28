package experiment

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairknap/knapsim/sim"
	"github.com/fairknap/knapsim/sim/workload"
)

func synthTrace(t *testing.T, seed int64, n int) workload.NamedTrace {
	t.Helper()
	ds, err := workload.Synthesize(workload.SyntheticSpec{
		Traces: 1, ItemsPerTrace: n,
		MinWeight: 0.02, MaxWeight: 0.2,
		MinDensity: 1, MaxDensity: 50,
	}, rand.New(rand.NewSource(seed)))
	require.NoError(t, err)
	return ds.Traces[0]
}

func TestOptimumCache_ShuffledCopiesShareEntry(t *testing.T) {
	// GIVEN a trace and three shuffled copies
	tr := synthTrace(t, 1, 40)
	copies := workload.Shuffle(tr, 3, rand.New(rand.NewSource(2)))
	cache, err := NewOptimumCache(16, 1, 100)
	require.NoError(t, err)

	// WHEN the original and each copy are solved
	first, err := cache.Solve(tr.Items)
	require.NoError(t, err)
	for _, c := range copies {
		sol, err := cache.Solve(c.Items)
		require.NoError(t, err)

		// THEN the value is shared and packings index the copy's own order
		assert.Equal(t, first.Value, sol.Value)
		assert.InDelta(t, sol.Value, sim.PackedValue(c.Items, sol.Packed), 1e-9)
	}

	// AND only the first lookup reached the solver
	assert.Equal(t, CacheStats{Hits: 3, Misses: 1}, cache.Stats())
}

func TestOptimumCache_MatchesDirectSolve(t *testing.T) {
	cache, err := NewOptimumCache(4, 1, 100)
	require.NoError(t, err)
	for seed := int64(0); seed < 10; seed++ {
		tr := synthTrace(t, seed, 30)
		want, err := sim.SolveTrace(tr.Items, 1, 100)
		require.NoError(t, err)
		got, err := cache.Solve(tr.Items)
		require.NoError(t, err)
		assert.InDelta(t, want.Value, got.Value, 1e-9, "seed %d", seed)
	}
}

func TestOptimumCache_DuplicateItemsRemapToDistinctPositions(t *testing.T) {
	items := sim.Trace{{Value: 1, Weight: 0.3}, {Value: 1, Weight: 0.3}, {Value: 1, Weight: 0.3}, {Value: 0.1, Weight: 0.05}}
	cache, err := NewOptimumCache(4, 1, 100)
	require.NoError(t, err)

	sol, err := cache.Solve(items)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, sol.Packed)
	assert.InDelta(t, 3.1, sol.Value, 1e-12)
}

func TestOptimumCache_ConcurrentMissesSolveOnce(t *testing.T) {
	tr := synthTrace(t, 3, 120)
	cache, err := NewOptimumCache(4, 1, 100)
	require.NoError(t, err)

	var wg sync.WaitGroup
	values := make([]float64, 16)
	for i := range values {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			sol, err := cache.Solve(tr.Items)
			if err == nil {
				values[i] = sol.Value
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), cache.Stats().Misses)
	for _, v := range values {
		assert.Equal(t, values[0], v)
	}
}

func TestOptimumCache_PropagatesSolverErrors(t *testing.T) {
	cache, err := NewOptimumCache(4, 1, 100)
	require.NoError(t, err)
	// weight 0.001 truncates to 0 on the integer grid
	_, err = cache.Solve(sim.Trace{{Value: 1, Weight: 0.001}})
	assert.ErrorIs(t, err, sim.ErrDomain)
}

func TestNewOptimumCache_RejectsZeroSize(t *testing.T) {
	_, err := NewOptimumCache(0, 1, 100)
	assert.Error(t, err)
}
