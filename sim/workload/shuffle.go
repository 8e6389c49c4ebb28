package workload

import (
	"fmt"
	"math/rand"

	"github.com/fairknap/knapsim/sim"
)

// Shuffle returns `copies` random arrival orders of tr. The offline
// optimum does not depend on order, so every copy keeps tr's Origin.
func Shuffle(tr NamedTrace, copies int, rng *rand.Rand) []NamedTrace {
	out := make([]NamedTrace, 0, copies)
	origin := tr.Source()
	for k := 0; k < copies; k++ {
		items := make(sim.Trace, len(tr.Items))
		copy(items, tr.Items)
		rng.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
		out = append(out, NamedTrace{
			ID:     fmt.Sprintf("%s#%d", tr.ID, k),
			Items:  items,
			Origin: origin,
		})
	}
	return out
}

// Expand returns a dataset in which every trace is replaced by `copies`
// shuffled permutations. copies == 0 returns the traces unchanged.
func Expand(ds *Dataset, copies int, rng *rand.Rand) (*Dataset, error) {
	if copies < 0 {
		return nil, fmt.Errorf("shuffle copies must be non-negative, got %d", copies)
	}
	out := &Dataset{Name: ds.Name}
	if copies == 0 {
		out.Traces = append(out.Traces, ds.Traces...)
		return out, nil
	}
	out.Traces = make([]NamedTrace, 0, len(ds.Traces)*copies)
	for _, tr := range ds.Traces {
		out.Traces = append(out.Traces, Shuffle(tr, copies, rng)...)
	}
	return out, nil
}
