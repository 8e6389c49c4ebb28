package experiment

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairknap/knapsim/sim"
	"github.com/fairknap/knapsim/sim/workload"
)

func synthDataset(t *testing.T, traces, items int) *workload.Dataset {
	t.Helper()
	ds, err := workload.Synthesize(workload.SyntheticSpec{
		Name: "test", Traces: traces, ItemsPerTrace: items,
		MinWeight: 0.02, MaxWeight: 0.2,
		MinDensity: 1, MaxDensity: 50,
	}, rand.New(rand.NewSource(99)))
	require.NoError(t, err)
	return ds
}

func runPlan(t *testing.T, plan *Plan, ds *workload.Dataset) *Report {
	t.Helper()
	runner, err := NewRunner(plan)
	require.NoError(t, err)
	report, err := runner.Run(context.Background(), ds)
	require.NoError(t, err)
	return report
}

func TestRunner_AllVariantsProduceRatiosAtLeastOne(t *testing.T) {
	// GIVEN the default lineup over a small synthetic dataset
	ds := synthDataset(t, 5, 60)
	plan := DefaultPlan()
	plan.Shuffles = 2
	plan.PredictionError = 0.3
	plan.CalibrationDelta = 0.5

	// WHEN the experiment runs
	report := runPlan(t, plan, ds)

	// THEN every variant has one ratio per expanded trace, all >= 1
	assert.Equal(t, 10, report.Traces)
	require.Len(t, report.Results, len(plan.Variants))
	for _, res := range report.Results {
		assert.Empty(t, res.Failures, res.Variant)
		require.Len(t, res.Ratios, 10)
		for _, r := range res.Ratios {
			assert.GreaterOrEqual(t, r, 1.0-1e-9, res.Variant)
		}
		assert.Equal(t, 10, res.Summary.Count+res.Unbounded, res.Variant)
	}

	// AND shuffled copies hit the optimum cache
	assert.Equal(t, int64(5), report.Cache.Misses)
}

func TestRunner_ResultsIndependentOfWorkerCount(t *testing.T) {
	ds := synthDataset(t, 8, 50)

	serial := DefaultPlan()
	serial.Workers = 1
	serial.Shuffles = 3
	serial.PredictionError = 0.5
	serial.CalibrationDelta = 0.5

	parallel := *serial
	parallel.Workers = 6

	a := runPlan(t, serial, ds)
	b := runPlan(t, &parallel, ds)

	if diff := cmp.Diff(a.Results, b.Results); diff != "" {
		t.Errorf("results depend on worker count (-serial +parallel):\n%s", diff)
	}
	assert.Equal(t, a.Predictions, b.Predictions)
}

func TestRunner_FailingVariantDoesNotStopOthers(t *testing.T) {
	// GIVEN a dataset whose items all share one density, so L == U and the
	// baseline breakpoint is undefined
	ds := &workload.Dataset{Traces: []workload.NamedTrace{
		{ID: "a", Items: sim.Trace{{Value: 0.2, Weight: 0.1}, {Value: 0.6, Weight: 0.3}}},
		{ID: "b", Items: sim.Trace{{Value: 0.4, Weight: 0.2}}},
	}}
	plan := DefaultPlan()
	plan.Variants = []Variant{
		{Name: "zcl", PolicyConfig: sim.PolicyConfig{Policy: sim.PolicyZCL}},
		{Name: "baseline", PolicyConfig: sim.PolicyConfig{Policy: sim.PolicyBaseline, Alpha: 0.5}},
		{Name: "ect", PolicyConfig: sim.PolicyConfig{Policy: sim.PolicyECT, Alpha: 0.5}},
	}

	// WHEN run
	report := runPlan(t, plan, ds)

	// THEN baseline fails on every trace and the others complete
	base, ok := report.Result("baseline")
	require.True(t, ok)
	require.Len(t, base.Failures, 2)
	assert.ErrorIs(t, base.Failures[0].Err, sim.ErrDomain)
	assert.Equal(t, "a", base.Failures[0].TraceID)
	assert.True(t, math.IsNaN(base.Ratios[0]))
	assert.Equal(t, 0, base.Summary.Count)

	for _, name := range []string{"zcl", "ect"} {
		res, ok := report.Result(name)
		require.True(t, ok)
		assert.Empty(t, res.Failures, name)
		assert.Equal(t, 2, res.Summary.Count, name)
	}
}

func TestRunner_UnboundedRatioIsCounted(t *testing.T) {
	// GIVEN a single item that fills the knapsack exactly: the optimum packs
	// it, the online rule never can
	ds := &workload.Dataset{Traces: []workload.NamedTrace{{ID: "full", Items: sim.Trace{{Value: 2, Weight: 1}}}}}
	plan := DefaultPlan()
	plan.Variants = []Variant{{Name: "zcl", PolicyConfig: sim.PolicyConfig{Policy: sim.PolicyZCL}}}
	plan.Bounds = &sim.Bounds{L: 1, U: 4}

	// WHEN run
	report := runPlan(t, plan, ds)

	// THEN the ratio is +Inf, counted as unbounded and left out of the summary
	res := report.Results[0]
	assert.True(t, math.IsInf(res.Ratios[0], 1))
	assert.Equal(t, 1, res.Unbounded)
	assert.Equal(t, 0, res.Summary.Count)
	assert.Equal(t, sim.Bounds{L: 1, U: 4}, report.Bounds)
}

func TestRunner_PerfectPredictionMatchesCalibration(t *testing.T) {
	// GIVEN la-ect fully trusting an error-free calibrated prediction
	ds := synthDataset(t, 3, 40)
	plan := DefaultPlan()
	plan.CalibrationDelta = 0.25
	plan.Variants = []Variant{{Name: "la-ect[1]", PolicyConfig: sim.PolicyConfig{Policy: sim.PolicyLAECT, Gamma: 1}}}

	// WHEN run
	report := runPlan(t, plan, ds)

	// THEN each ratio is the one the calibration sweep settled on
	b, err := ds.Bounds()
	require.NoError(t, err)
	for i, tr := range ds.Traces {
		opt, err := sim.SolveTrace(tr.Items, plan.Capacity, plan.WeightScale)
		require.NoError(t, err)
		cal, err := workload.CalibrateDensity(tr.Items, opt, workload.CalibrationConfig{Capacity: plan.Capacity, Delta: plan.CalibrationDelta, Bounds: b})
		require.NoError(t, err)
		if cal.Ratio == 1e6 {
			continue
		}
		assert.InDelta(t, cal.Ratio, report.Results[0].Ratios[i], 1e-9, tr.ID)
	}
}

func TestRunner_ShuffledCopiesShareSourceCalibration(t *testing.T) {
	// GIVEN one source trace expanded into six shuffled copies and no noise
	ds := synthDataset(t, 1, 60)
	plan := DefaultPlan()
	plan.Shuffles = 6
	plan.PredictionError = 0
	plan.CalibrationDelta = 0.5
	plan.Variants = []Variant{{Name: "la-ect[0.5]", PolicyConfig: sim.PolicyConfig{Policy: sim.PolicyLAECT, Gamma: 0.5}}}

	// WHEN the experiment runs
	report := runPlan(t, plan, ds)

	// THEN every copy received the d* swept on the source in its recorded order
	src := ds.Traces[0]
	b, err := ds.Bounds()
	require.NoError(t, err)
	opt, err := sim.SolveTrace(src.Items, plan.Capacity, plan.WeightScale)
	require.NoError(t, err)
	cal, err := workload.CalibrateDensity(src.Items, opt, workload.CalibrationConfig{Capacity: plan.Capacity, Delta: plan.CalibrationDelta, Bounds: b})
	require.NoError(t, err)

	require.Len(t, report.Predictions, 6)
	require.Len(t, report.TraceIDs, 6)
	for i, d := range report.Predictions {
		assert.InDelta(t, cal.Density, d, 1e-12, report.TraceIDs[i])
	}
	assert.Empty(t, report.Results[0].Failures)
}

func TestRunner_PredictionsAreNaNWithoutPredictiveVariants(t *testing.T) {
	// GIVEN only prediction-free variants
	ds := synthDataset(t, 2, 20)
	plan := DefaultPlan()
	plan.Variants = []Variant{{Name: "zcl", PolicyConfig: sim.PolicyConfig{Policy: sim.PolicyZCL}}}

	// WHEN run
	report := runPlan(t, plan, ds)

	// THEN no prediction is recorded for any trace
	require.Len(t, report.Predictions, 2)
	for _, d := range report.Predictions {
		assert.True(t, math.IsNaN(d))
	}
}

func TestRunner_CanceledContext(t *testing.T) {
	runner, err := NewRunner(DefaultPlan())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = runner.Run(ctx, synthDataset(t, 4, 10))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRunner_RejectsInvalidPlan(t *testing.T) {
	plan := DefaultPlan()
	plan.Capacity = -1
	_, err := NewRunner(plan)
	assert.Error(t, err)
}
