package experiment

import (
	"encoding/json"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/fairknap/knapsim/sim"
)

// Failure records one (trace, variant) evaluation that returned an error.
type Failure struct {
	TraceID string `json:"trace_id"`
	Err     error  `json:"-"`
}

// MarshalJSON renders the error as its message.
func (f Failure) MarshalJSON() ([]byte, error) {
	msg := ""
	if f.Err != nil {
		msg = f.Err.Error()
	}
	return json.Marshal(struct {
		TraceID string `json:"trace_id"`
		Error   string `json:"error"`
	}{f.TraceID, msg})
}

// RatioSummary aggregates the finite competitive ratios of one variant.
type RatioSummary struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	P50   float64 `json:"p50"`
	P90   float64 `json:"p90"`
	P99   float64 `json:"p99"`
	Max   float64 `json:"max"`
}

// EvaluationResult bundles the outputs of one variant over the dataset.
// Ratios is index-aligned with the evaluated traces; failed evaluations hold
// NaN and unbounded ones (nothing packed while the optimum is positive) +Inf.
// Summary covers only the finite ratios.
type EvaluationResult struct {
	Variant   string       `json:"variant"`
	Ratios    []float64    `json:"-"`
	Failures  []Failure    `json:"failures,omitempty"`
	Unbounded int          `json:"unbounded"`
	Summary   RatioSummary `json:"summary"`
}

// ECDFPoint is one step of an empirical CDF: the fraction of ratios <= Ratio.
type ECDFPoint struct {
	Ratio    float64 `json:"ratio"`
	Fraction float64 `json:"fraction"`
}

// Report is the full output of an experiment run.
// TraceIDs and Predictions are index-aligned with every EvaluationResult's
// Ratios; a prediction is NaN when no variant consumed one or it failed.
type Report struct {
	Bounds      sim.Bounds         `json:"bounds"`
	Traces      int                `json:"traces"`
	TraceIDs    []string           `json:"-"`
	Predictions []float64          `json:"-"`
	Results     []EvaluationResult `json:"results"`
	Cache       CacheStats         `json:"cache"`
}

// Result returns the evaluation of the named variant.
func (r *Report) Result(variant string) (*EvaluationResult, bool) {
	for i := range r.Results {
		if r.Results[i].Variant == variant {
			return &r.Results[i], true
		}
	}
	return nil, false
}

// finiteSorted returns the finite ratios in ascending order.
func finiteSorted(ratios []float64) []float64 {
	out := make([]float64, 0, len(ratios))
	for _, r := range ratios {
		if !math.IsNaN(r) && !math.IsInf(r, 0) {
			out = append(out, r)
		}
	}
	slices.Sort(out)
	return out
}

// Summarize computes the mean and empirical quantiles of the finite ratios.
// An input with no finite ratios yields a zero summary.
func Summarize(ratios []float64) RatioSummary {
	x := finiteSorted(ratios)
	if len(x) == 0 {
		return RatioSummary{}
	}
	return RatioSummary{
		Count: len(x),
		Mean:  stat.Mean(x, nil),
		Min:   x[0],
		P50:   stat.Quantile(0.5, stat.Empirical, x, nil),
		P90:   stat.Quantile(0.9, stat.Empirical, x, nil),
		P99:   stat.Quantile(0.99, stat.Empirical, x, nil),
		Max:   x[len(x)-1],
	}
}

// ECDF returns one point per distinct finite ratio, in ascending order.
func ECDF(ratios []float64) []ECDFPoint {
	x := finiteSorted(ratios)
	points := make([]ECDFPoint, 0, len(x))
	for i, v := range x {
		if i+1 < len(x) && x[i+1] == v {
			continue
		}
		points = append(points, ECDFPoint{Ratio: v, Fraction: stat.CDF(v, stat.Empirical, x, nil)})
	}
	return points
}
