package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible experiment.
// Two experiments with the same SimulationKey and identical configuration
// MUST produce bit-for-bit identical results.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// === Subsystem Constants ===

const (
	// SubsystemShuffle is the RNG subsystem for arrival-order shuffling.
	// Uses master seed directly so --seed alone reproduces the dataset.
	SubsystemShuffle = "shuffle"

	// SubsystemPrediction is the RNG subsystem for prediction noise.
	SubsystemPrediction = "prediction"

	// SubsystemSynthesis is the RNG subsystem for synthetic dataset
	// generation. It is derived from the master seed, so a generated
	// dataset never replays the shuffle stream of the same seed.
	SubsystemSynthesis = "synthesis"
)

// SubsystemPolicy returns the subsystem name for a randomized policy
// evaluated on one trace. Each (variant, trace) pair gets its own stream so
// results do not depend on worker scheduling.
func SubsystemPolicy(variant string, traceIdx int) string {
	return fmt.Sprintf("policy_%s_%d", variant, traceIdx)
}

// SubsystemPredictionFor returns the prediction-noise subsystem for one trace.
func SubsystemPredictionFor(traceIdx int) string {
	return fmt.Sprintf("%s_%d", SubsystemPrediction, traceIdx)
}

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem.
//
// Derivation formula:
//   - For SubsystemShuffle: uses masterSeed directly
//   - For all other subsystems: masterSeed XOR fnv1a64(subsystemName)
//
// Thread-safety: ForSubsystem is NOT thread-safe and must be called from a
// single goroutine. Fresh only reads the key and is safe from any goroutine.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named subsystem.
// The same subsystem name always returns the same *rand.Rand instance (cached).
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	rng := p.Fresh(name)
	p.subsystems[name] = rng
	return rng
}

// Fresh returns a new, uncached RNG positioned at the start of the named
// subsystem's stream.
func (p *PartitionedRNG) Fresh(name string) *rand.Rand {
	return rand.New(rand.NewSource(p.seedFor(name)))
}

func (p *PartitionedRNG) seedFor(name string) int64 {
	if name == SubsystemShuffle {
		return int64(p.key)
	}
	return int64(p.key) ^ fnv1a64(name)
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
