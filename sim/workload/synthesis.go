package workload

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/fairknap/knapsim/sim"
)

// SyntheticSpec parameterizes a generated dataset. Weights are uniform in
// [MinWeight, MaxWeight); densities are log-uniform in
// [MinDensity, MaxDensity), so U/L spans the configured ratio.
type SyntheticSpec struct {
	Name          string  `yaml:"name"`
	Traces        int     `yaml:"traces"`
	ItemsPerTrace int     `yaml:"items_per_trace"`
	MinWeight     float64 `yaml:"min_weight"`
	MaxWeight     float64 `yaml:"max_weight"`
	MinDensity    float64 `yaml:"min_density"`
	MaxDensity    float64 `yaml:"max_density"`
}

// Validate checks that all counts and ranges are usable.
func (s SyntheticSpec) Validate() error {
	if s.Traces <= 0 {
		return fmt.Errorf("traces must be positive, got %d", s.Traces)
	}
	if s.ItemsPerTrace <= 0 {
		return fmt.Errorf("items_per_trace must be positive, got %d", s.ItemsPerTrace)
	}
	if !(s.MinWeight > 0) || s.MaxWeight < s.MinWeight {
		return fmt.Errorf("weight range must satisfy 0 < min <= max, got [%v, %v]", s.MinWeight, s.MaxWeight)
	}
	if !(s.MinDensity > 0) || s.MaxDensity < s.MinDensity {
		return fmt.Errorf("density range must satisfy 0 < min <= max, got [%v, %v]", s.MinDensity, s.MaxDensity)
	}
	return nil
}

// Synthesize generates a dataset from spec using rng.
func Synthesize(spec SyntheticSpec, rng *rand.Rand) (*Dataset, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	logLo, logHi := math.Log(spec.MinDensity), math.Log(spec.MaxDensity)
	ds := &Dataset{Name: spec.Name, Traces: make([]NamedTrace, spec.Traces)}
	for t := range ds.Traces {
		items := make(sim.Trace, spec.ItemsPerTrace)
		for i := range items {
			w := spec.MinWeight + (spec.MaxWeight-spec.MinWeight)*rng.Float64()
			d := math.Exp(logLo + (logHi-logLo)*rng.Float64())
			items[i] = sim.Item{Value: w * d, Weight: w}
		}
		id := fmt.Sprintf("trace_%d", t)
		ds.Traces[t] = NamedTrace{ID: id, Items: items, Origin: id}
	}
	return ds, nil
}
