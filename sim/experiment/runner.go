package experiment

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/fairknap/knapsim/sim"
	"github.com/fairknap/knapsim/sim/workload"
)

// Runner evaluates every plan variant against every trace of a dataset.
type Runner struct {
	plan  *Plan
	cache *OptimumCache
}

// NewRunner validates plan and prepares the shared optimum cache.
func NewRunner(plan *Plan) (*Runner, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	cache, err := NewOptimumCache(plan.CacheSize, plan.Capacity, plan.WeightScale)
	if err != nil {
		return nil, err
	}
	return &Runner{plan: plan, cache: cache}, nil
}

// calibration is the d* of one source trace, shared by all its copies.
type calibration struct {
	density float64
	err     error
}

// traceOutcome is everything one worker produces for one trace.
type traceOutcome struct {
	prediction float64   // NaN when no variant needed one
	ratios     []float64 // per variant
	errs       []error   // per variant
}

// Run calibrates d* once per source trace in its recorded order, expands ds
// by the plan's shuffle count, then evaluates each trace on a bounded worker
// pool. A failing evaluation is recorded and the batch goes on; only context
// cancellation aborts the run. Results do not depend on the worker count:
// every trace draws from its own seeded streams and writes to its own slot.
func (r *Runner) Run(ctx context.Context, ds *workload.Dataset) (*Report, error) {
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(r.plan.Seed))

	bounds, err := r.bounds(ds)
	if err != nil {
		return nil, err
	}
	expanded, err := workload.Expand(ds, r.plan.Shuffles, rng.ForSubsystem(sim.SubsystemShuffle))
	if err != nil {
		return nil, err
	}

	workers := r.plan.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	logrus.Infof("evaluating %d variants over %d traces (L=%g, U=%g, workers=%d)",
		len(r.plan.Variants), len(expanded.Traces), bounds.L, bounds.U, workers)
	start := time.Now()

	calibrated := make(map[string]calibration, len(ds.Traces))
	if r.plan.NeedsCalibration() {
		results := make([]calibration, len(ds.Traces))
		err := forEach(ctx, workers, len(ds.Traces), func(j int) {
			d, err := r.calibrate(ds.Traces[j], bounds)
			results[j] = calibration{density: d, err: err}
		})
		if err != nil {
			return nil, err
		}
		for j, src := range ds.Traces {
			calibrated[src.Source()] = results[j]
		}
	}

	outcomes := make([]traceOutcome, len(expanded.Traces))
	err = forEach(ctx, workers, len(expanded.Traces), func(i int) {
		tr := expanded.Traces[i]
		outcomes[i] = r.evaluateTrace(rng, i, tr, calibrated[tr.Source()], bounds)
	})
	if err != nil {
		return nil, err
	}

	report := &Report{
		Bounds:      bounds,
		Traces:      len(expanded.Traces),
		TraceIDs:    make([]string, len(expanded.Traces)),
		Predictions: make([]float64, len(expanded.Traces)),
		Cache:       r.cache.Stats(),
	}
	for i, o := range outcomes {
		report.TraceIDs[i] = expanded.Traces[i].ID
		report.Predictions[i] = o.prediction
	}
	for v, variant := range r.plan.Variants {
		res := EvaluationResult{Variant: variant.Name, Ratios: make([]float64, len(outcomes))}
		for i, o := range outcomes {
			res.Ratios[i] = o.ratios[v]
			if o.errs[v] != nil {
				res.Failures = append(res.Failures, Failure{TraceID: expanded.Traces[i].ID, Err: o.errs[v]})
			} else if math.IsInf(o.ratios[v], 1) {
				res.Unbounded++
			}
		}
		res.Summary = Summarize(res.Ratios)
		report.Results = append(report.Results, res)
	}
	logrus.Infof("experiment finished in %v (optimum cache: %d hits, %d misses)",
		time.Since(start), report.Cache.Hits, report.Cache.Misses)
	return report, nil
}

// forEach runs fn(0..n-1) on at most workers goroutines. It stops
// scheduling once ctx is done and reports the context error.
func forEach(ctx context.Context, workers, n int, fn func(i int)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn(i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (r *Runner) bounds(ds *workload.Dataset) (sim.Bounds, error) {
	if r.plan.Bounds != nil {
		return *r.plan.Bounds, nil
	}
	b, err := ds.Bounds()
	if err != nil {
		return sim.Bounds{}, fmt.Errorf("deriving bounds: %w", err)
	}
	return b, nil
}

// calibrate sweeps for d* on a source trace in its recorded order.
func (r *Runner) calibrate(src workload.NamedTrace, bounds sim.Bounds) (float64, error) {
	opt, err := r.cache.Solve(src.Items)
	if err != nil {
		return 0, fmt.Errorf("offline optimum: %w", err)
	}
	cal, err := workload.CalibrateDensity(src.Items, opt, workload.CalibrationConfig{
		Capacity: r.plan.Capacity,
		Delta:    r.plan.CalibrationDelta,
		Bounds:   bounds,
	})
	if err != nil {
		return 0, fmt.Errorf("calibration: %w", err)
	}
	logrus.Debugf("source %s: d*=%.4f", src.ID, cal.Density)
	return cal.Density, nil
}

// evaluateTrace runs every variant on one trace. Errors in the shared
// preparation (offline optimum, prediction) fail every variant that
// depends on them.
func (r *Runner) evaluateTrace(rng *sim.PartitionedRNG, idx int, tr workload.NamedTrace, cal calibration, bounds sim.Bounds) traceOutcome {
	n := len(r.plan.Variants)
	out := traceOutcome{prediction: math.NaN(), ratios: make([]float64, n), errs: make([]error, n)}
	for v := range out.ratios {
		out.ratios[v] = math.NaN()
	}

	opt, err := r.cache.Solve(tr.Items)
	if err != nil {
		r.failAll(&out, tr.ID, fmt.Errorf("offline optimum: %w", err), nil)
		return out
	}

	if r.plan.NeedsCalibration() {
		prediction, err := r.predict(rng, idx, cal, bounds)
		if err != nil {
			r.failAll(&out, tr.ID, err, Variant.NeedsPrediction)
		} else {
			out.prediction = prediction
		}
	}

	for v, variant := range r.plan.Variants {
		if out.errs[v] != nil {
			continue
		}
		cfg := variant.PolicyConfig
		if variant.NeedsPrediction() {
			cfg.PredictedDensity = out.prediction
		}
		achieved, err := r.simulate(rng, idx, variant.Name, cfg, tr.Items, bounds)
		if err != nil {
			out.errs[v] = err
			logrus.Warnf("trace %s, variant %s: %v", tr.ID, variant.Name, err)
			continue
		}
		out.ratios[v] = sim.CompetitiveRatio(opt.Value, achieved)
	}
	logrus.Debugf("trace %s: opt=%.4f", tr.ID, opt.Value)
	return out
}

// failAll records err for every variant matching filter (all when nil).
func (r *Runner) failAll(out *traceOutcome, traceID string, err error, filter func(Variant) bool) {
	logrus.Warnf("trace %s: %v", traceID, err)
	for v, variant := range r.plan.Variants {
		if filter == nil || filter(variant) {
			out.errs[v] = err
		}
	}
}

// predict perturbs the source's d* with this trace's own noise stream.
func (r *Runner) predict(rng *sim.PartitionedRNG, idx int, cal calibration, bounds sim.Bounds) (float64, error) {
	if cal.err != nil {
		return 0, cal.err
	}
	d, err := workload.NoisyPrediction(cal.density, r.plan.PredictionError, rng.Fresh(sim.SubsystemPredictionFor(idx)))
	if err != nil {
		return 0, err
	}
	if !(d > 0) {
		// a zero draw falls back to the lower bound
		d = bounds.L
	}
	return d, nil
}

func (r *Runner) simulate(rng *sim.PartitionedRNG, idx int, name string, cfg sim.PolicyConfig, items sim.Trace, bounds sim.Bounds) (float64, error) {
	policy, err := sim.NewPolicy(cfg, bounds, rng.Fresh(sim.SubsystemPolicy(name, idx)))
	if err != nil {
		return 0, err
	}
	res, err := sim.Simulate(items, r.plan.Capacity, policy, nil)
	if err != nil {
		return 0, err
	}
	return res.Profit(), nil
}
