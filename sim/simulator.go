// sim/simulator.go
package sim

import (
	"fmt"
	"math"

	"github.com/fairknap/knapsim/sim/trace"
)

// SimulationResult is the durable output of one online pass.
// ProfitSeries[i] and UtilizationSeries[i] are the accumulated profit and
// consumed capacity after item i was decided. Packed lists accepted item
// indices in arrival order.
type SimulationResult struct {
	ProfitSeries      []float64 `json:"profit"`
	UtilizationSeries []float64 `json:"utilization"`
	Packed            []int     `json:"packed"`
}

// Profit returns the final accumulated profit (0 for an empty trace).
func (r *SimulationResult) Profit() float64 {
	if len(r.ProfitSeries) == 0 {
		return 0
	}
	return r.ProfitSeries[len(r.ProfitSeries)-1]
}

// Utilization returns the final consumed capacity (0 for an empty trace).
func (r *SimulationResult) Utilization() float64 {
	if len(r.UtilizationSeries) == 0 {
		return 0
	}
	return r.UtilizationSeries[len(r.UtilizationSeries)-1]
}

// knapsackState is the mutable state of a single pass.
type knapsackState struct {
	capacity  float64
	remaining float64
	profit    float64
}

// utilization returns z, the fraction of capacity already consumed.
func (s *knapsackState) utilization() float64 {
	return (s.capacity - s.remaining) / s.capacity
}

// fits requires strictly positive leftover capacity after packing weight,
// so an item that would exactly exhaust the knapsack is rejected.
func (s *knapsackState) fits(weight float64) bool {
	return s.remaining-weight > 0
}

// Simulate runs one irrevocable forward pass of policy over items with the
// given capacity. rec may be nil; when it is enabled every decision is
// appended to it.
func Simulate(items Trace, capacity float64, policy ThresholdPolicy, rec *trace.SimulationTrace) (*SimulationResult, error) {
	if !(capacity > 0) || math.IsInf(capacity, 0) {
		return nil, fmt.Errorf("%w: capacity must be positive and finite, got %v", ErrDomain, capacity)
	}
	if policy == nil {
		return nil, fmt.Errorf("simulate: nil policy")
	}
	if err := items.Validate(); err != nil {
		return nil, err
	}

	state := &knapsackState{capacity: capacity, remaining: capacity}
	result := &SimulationResult{
		ProfitSeries:      make([]float64, 0, len(items)),
		UtilizationSeries: make([]float64, 0, len(items)),
		Packed:            make([]int, 0),
	}

	for i, it := range items {
		z := state.utilization()
		threshold, err := policy.Threshold(z)
		if err != nil {
			return nil, fmt.Errorf("%s threshold at item %d (z=%g): %w", policy.Name(), i, z, err)
		}

		density := it.Density()
		reason := trace.ReasonAccepted
		switch {
		case density < threshold:
			reason = trace.ReasonBelowThreshold
		case !state.fits(it.Weight):
			reason = trace.ReasonCapacity
		default:
			result.Packed = append(result.Packed, i)
			state.profit += it.Value
			state.remaining -= it.Weight
		}
		rec.RecordDecision(trace.DecisionRecord{
			Index:       i,
			Utilization: z,
			Threshold:   threshold,
			Density:     density,
			Accepted:    reason == trace.ReasonAccepted,
			Reason:      reason,
		})

		result.ProfitSeries = append(result.ProfitSeries, state.profit)
		result.UtilizationSeries = append(result.UtilizationSeries, capacity-state.remaining)
	}
	return result, nil
}

// PackedValue returns the sum of values at the given indices.
func PackedValue(items Trace, packed []int) float64 {
	total := 0.0
	for _, i := range packed {
		total += items[i].Value
	}
	return total
}

// CompetitiveRatio returns optimal/achieved. A run that achieved nothing
// against a positive optimum is unbounded (+Inf); two zeros compare as 1.
func CompetitiveRatio(optimal, achieved float64) float64 {
	switch {
	case achieved > 0:
		return optimal / achieved
	case optimal > 0:
		return math.Inf(1)
	default:
		return 1
	}
}
