package workload

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoisyPrediction_ZeroSigmaIsExact(t *testing.T) {
	got, err := NoisyPrediction(12.5, 0, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, 12.5, got)
}

func TestNoisyPrediction_MatchesFormula(t *testing.T) {
	// GIVEN a seeded stream
	want := 4 * math.Abs(1+rand.New(rand.NewSource(3)).NormFloat64()*0.5)

	// WHEN the same stream drives the prediction
	got, err := NoisyPrediction(4, 0.5, rand.New(rand.NewSource(3)))
	require.NoError(t, err)

	// THEN it is d·|1+N(0,sigma)|
	assert.Equal(t, want, got)
}

func TestNoisyPrediction_NonNegative(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 500; i++ {
		got, err := NoisyPrediction(3, 2, rng)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got, 0.0)
	}
}

func TestNoisyPrediction_RejectsNegativeSigma(t *testing.T) {
	_, err := NoisyPrediction(1, -0.1, rand.New(rand.NewSource(1)))
	assert.Error(t, err)
	_, err = NoisyPrediction(1, math.NaN(), rand.New(rand.NewSource(1)))
	assert.Error(t, err)
}
