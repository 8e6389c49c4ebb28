package sim

import (
	"fmt"
	"math"
)

// Item is a single arriving request for knapsack capacity.
type Item struct {
	Value  float64 `json:"value" yaml:"value"`
	Weight float64 `json:"weight" yaml:"weight"`
}

// Density returns the value/weight ratio of the item.
func (it Item) Density() float64 {
	return it.Value / it.Weight
}

// Validate rejects items whose density is undefined, negative or infinite.
func (it Item) Validate() error {
	if math.IsNaN(it.Weight) || math.IsInf(it.Weight, 0) || it.Weight <= 0 {
		return fmt.Errorf("%w: weight must be positive and finite, got %v", ErrDomain, it.Weight)
	}
	if math.IsNaN(it.Value) || math.IsInf(it.Value, 0) || it.Value < 0 {
		return fmt.Errorf("%w: value must be non-negative and finite, got %v", ErrDomain, it.Value)
	}
	return nil
}

// Trace is an ordered sequence of items in arrival order.
type Trace []Item

// Validate checks every item in the trace.
func (tr Trace) Validate() error {
	for i, it := range tr {
		if err := it.Validate(); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}

// Values returns the item values in arrival order.
func (tr Trace) Values() []float64 {
	out := make([]float64, len(tr))
	for i, it := range tr {
		out[i] = it.Value
	}
	return out
}

// Weights returns the item weights in arrival order.
func (tr Trace) Weights() []float64 {
	out := make([]float64, len(tr))
	for i, it := range tr {
		out[i] = it.Weight
	}
	return out
}

// Bounds holds the dataset-wide lower and upper bounds on item density.
// Computed once per dataset and passed by value into every policy.
type Bounds struct {
	L float64 `json:"L" yaml:"L"`
	U float64 `json:"U" yaml:"U"`
}

// NewBounds validates and returns a Bounds value.
func NewBounds(l, u float64) (Bounds, error) {
	b := Bounds{L: l, U: u}
	return b, b.Validate()
}

// Validate requires 0 < L <= U with both finite.
func (b Bounds) Validate() error {
	if !(b.L > 0) || math.IsInf(b.L, 0) {
		return fmt.Errorf("%w: L must be positive and finite, got %v", ErrDomain, b.L)
	}
	if !(b.U > 0) || math.IsInf(b.U, 0) {
		return fmt.Errorf("%w: U must be positive and finite, got %v", ErrDomain, b.U)
	}
	if b.L > b.U {
		return fmt.Errorf("%w: L (%v) must not exceed U (%v)", ErrDomain, b.L, b.U)
	}
	return nil
}

// requireSpread rejects degenerate bounds for curves that divide by ln(U/L).
func (b Bounds) requireSpread() error {
	if err := b.Validate(); err != nil {
		return err
	}
	if b.L >= b.U {
		return fmt.Errorf("%w: L (%v) must be strictly less than U (%v)", ErrDomain, b.L, b.U)
	}
	return nil
}

// BoundsOf returns the min and max item density over all traces.
func BoundsOf(traces ...Trace) (Bounds, error) {
	l, u := math.Inf(1), math.Inf(-1)
	for ti, tr := range traces {
		for i, it := range tr {
			if err := it.Validate(); err != nil {
				return Bounds{}, fmt.Errorf("trace %d item %d: %w", ti, i, err)
			}
			d := it.Density()
			l = math.Min(l, d)
			u = math.Max(u, d)
		}
	}
	if math.IsInf(l, 1) {
		return Bounds{}, fmt.Errorf("%w: no items to derive bounds from", ErrDomain)
	}
	return NewBounds(l, u)
}
