package sim

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func draws(r *rand.Rand, n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = r.Int63()
	}
	return out
}

func TestPartitionedRNG_ShuffleStreamIsTheMasterSeed(t *testing.T) {
	// GIVEN seed 42
	p := NewPartitionedRNG(NewSimulationKey(42))

	// WHEN the shuffle stream is drawn
	got := draws(p.ForSubsystem(SubsystemShuffle), 5)

	// THEN it replays a plain source seeded with 42
	assert.Equal(t, draws(rand.New(rand.NewSource(42)), 5), got)
}

func TestPartitionedRNG_DerivedStreamsXORTheNameHash(t *testing.T) {
	names := []string{
		SubsystemSynthesis,
		SubsystemPrediction,
		SubsystemPredictionFor(3),
		SubsystemPolicy("zcl-randomized", 7),
	}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			// GIVEN seed 42
			p := NewPartitionedRNG(NewSimulationKey(42))

			// WHEN a derived stream is drawn
			got := draws(p.Fresh(name), 5)

			// THEN it is seeded by 42 XOR fnv1a64(name), not by 42
			assert.Equal(t, draws(rand.New(rand.NewSource(42^fnv1a64(name))), 5), got)
			assert.NotEqual(t, draws(rand.New(rand.NewSource(42)), 5), got)
		})
	}
}

func TestPartitionedRNG_SynthesisAndShuffleDiverge(t *testing.T) {
	// GIVEN one seed used both to generate and to shuffle a dataset
	p := NewPartitionedRNG(NewSimulationKey(7))

	// WHEN both streams are drawn
	synth := draws(p.Fresh(SubsystemSynthesis), 8)
	shuffle := draws(p.Fresh(SubsystemShuffle), 8)

	// THEN they share no prefix
	assert.NotEqual(t, synth[0], shuffle[0])
	assert.NotEqual(t, synth, shuffle)
}

func TestPartitionedRNG_FreshRestartsAndDoesNotCache(t *testing.T) {
	// GIVEN a cached prediction stream that has already been advanced
	p := NewPartitionedRNG(NewSimulationKey(11))
	cached := p.ForSubsystem(SubsystemPrediction)
	head := draws(cached, 3)

	// WHEN Fresh is asked for the same stream
	fresh := p.Fresh(SubsystemPrediction)

	// THEN it starts over from the head instead of continuing the cached one
	assert.Equal(t, head, draws(fresh, 3))
	assert.NotSame(t, cached, fresh)
	assert.Same(t, cached, p.ForSubsystem(SubsystemPrediction))
}

func TestSubsystemNames_UniquePerVariantAndTrace(t *testing.T) {
	// GIVEN every (variant, trace) pair of a small experiment
	variants := []string{"zcl-randomized", "la-ect[0.5]", "la-ect[1]"}
	seen := map[string]bool{}

	// WHEN names are derived
	for _, v := range variants {
		for idx := 0; idx < 12; idx++ {
			name := SubsystemPolicy(v, idx)
			// THEN none collide with each other or with a prediction stream
			require.False(t, seen[name], name)
			seen[name] = true
		}
	}
	for idx := 0; idx < 12; idx++ {
		name := SubsystemPredictionFor(idx)
		require.False(t, seen[name], name)
		seen[name] = true
	}
	assert.Len(t, seen, 48)
}

func TestPartitionedRNG_PerTraceStreamsAreIsolated(t *testing.T) {
	// GIVEN two traces evaluated by the same randomized variant
	p := NewPartitionedRNG(NewSimulationKey(42))
	a := p.Fresh(SubsystemPolicy("zcl-randomized", 0))
	b := p.Fresh(SubsystemPolicy("zcl-randomized", 1))

	// WHEN trace 0's stream is drained first
	draws(a, 100)

	// THEN trace 1 sees the same values as if it had run alone
	alone := NewPartitionedRNG(NewSimulationKey(42)).Fresh(SubsystemPolicy("zcl-randomized", 1))
	assert.Equal(t, draws(alone, 5), draws(b, 5))
}

func TestPartitionedRNG_Key(t *testing.T) {
	assert.Equal(t, SimulationKey(-3), NewPartitionedRNG(NewSimulationKey(-3)).Key())
}
