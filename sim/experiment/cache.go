package experiment

import (
	"cmp"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"math"
	"slices"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/fairknap/knapsim/sim"
)

// OptimumCache memoises offline optima by trace content. The optimum does
// not depend on arrival order, so every shuffled copy of a trace shares one
// entry; concurrent misses on the same key run the solver once.
type OptimumCache struct {
	cache    *lru.Cache[string, *canonicalOptimum]
	group    singleflight.Group
	capacity float64
	scale    float64

	hits   atomic.Int64
	misses atomic.Int64
}

// CacheStats reports lookup counts.
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// canonicalOptimum is a solution over the trace sorted into canonical order.
type canonicalOptimum struct {
	items sim.Trace
	sol   *sim.OfflineSolution
}

// NewOptimumCache creates a cache holding up to size optima for one
// capacity and weight scale.
func NewOptimumCache(size int, capacity, scale float64) (*OptimumCache, error) {
	c, err := lru.New[string, *canonicalOptimum](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create optimum cache: %w", err)
	}
	return &OptimumCache{cache: c, capacity: capacity, scale: scale}, nil
}

// Solve returns the offline optimum of items with Packed indices referring
// to items in the caller's order.
func (c *OptimumCache) Solve(items sim.Trace) (*sim.OfflineSolution, error) {
	canonical := canonicalize(items)
	key := fingerprint(canonical)

	if entry, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		return remap(entry, items), nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if entry, ok := c.cache.Get(key); ok {
			return entry, nil
		}
		c.misses.Add(1)
		sol, err := sim.SolveTrace(canonical, c.capacity, c.scale)
		if err != nil {
			return nil, err
		}
		entry := &canonicalOptimum{items: canonical, sol: sol}
		c.cache.Add(key, entry)
		return entry, nil
	})
	if err != nil {
		return nil, err
	}
	return remap(v.(*canonicalOptimum), items), nil
}

// Stats returns a snapshot of the hit and miss counters.
// Callers sharing an in-flight solve count as neither.
func (c *OptimumCache) Stats() CacheStats {
	return CacheStats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

func canonicalize(items sim.Trace) sim.Trace {
	out := slices.Clone(items)
	slices.SortFunc(out, func(a, b sim.Item) int {
		if c := cmp.Compare(a.Weight, b.Weight); c != 0 {
			return c
		}
		return cmp.Compare(a.Value, b.Value)
	})
	return out
}

// fingerprint hashes a canonical trace. The item count is part of the key.
func fingerprint(canonical sim.Trace) string {
	h := fnv.New128a()
	var buf [16]byte
	for _, it := range canonical {
		binary.LittleEndian.PutUint64(buf[:8], math.Float64bits(it.Weight))
		binary.LittleEndian.PutUint64(buf[8:], math.Float64bits(it.Value))
		h.Write(buf[:])
	}
	return fmt.Sprintf("%d:%s", len(canonical), hex.EncodeToString(h.Sum(nil)))
}

// remap translates packed canonical positions to positions in items.
// Equal items are matched in order of appearance.
func remap(entry *canonicalOptimum, items sim.Trace) *sim.OfflineSolution {
	positions := make(map[sim.Item][]int, len(items))
	for i, it := range items {
		positions[it] = append(positions[it], i)
	}
	packed := make([]int, 0, len(entry.sol.Packed))
	for _, ci := range entry.sol.Packed {
		it := entry.items[ci]
		idx := positions[it]
		packed = append(packed, idx[0])
		positions[it] = idx[1:]
	}
	slices.Sort(packed)
	return &sim.OfflineSolution{Value: entry.sol.Value, Weight: entry.sol.Weight, Packed: packed}
}
