package experiment

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fairknap/knapsim/sim"
)

// Variant is one policy configuration evaluated over the whole dataset.
// Name labels the variant in reports and seeds its randomized streams;
// it defaults to the policy name.
type Variant struct {
	Name             string `yaml:"name,omitempty" json:"name"`
	sim.PolicyConfig `yaml:",inline"`
}

// NeedsPrediction reports whether the variant takes its predicted density
// from per-trace calibration.
func (v Variant) NeedsPrediction() bool {
	return v.Policy == sim.PolicyLAECT && v.PredictedDensity == 0
}

// Plan is the experiment plan file.
// Fields omitted from the file keep the values from DefaultPlan.
type Plan struct {
	Capacity         float64     `yaml:"capacity"`
	WeightScale      float64     `yaml:"weight_scale"`
	Seed             int64       `yaml:"seed"`
	Workers          int         `yaml:"workers"`  // 0 = runtime.NumCPU()
	Shuffles         int         `yaml:"shuffles"` // shuffled copies per trace; 0 keeps the recorded order
	PredictionError  float64     `yaml:"prediction_error"`
	CalibrationDelta float64     `yaml:"calibration_delta"`
	CacheSize        int         `yaml:"cache_size"`
	Bounds           *sim.Bounds `yaml:"bounds,omitempty"` // nil = derive from the dataset
	Variants         []Variant   `yaml:"variants"`
}

// DefaultPlan returns the plan used when no file is given: the policy
// lineup of the fairness and learning-augmented comparisons on a unit
// knapsack.
func DefaultPlan() *Plan {
	return &Plan{
		Capacity:         1,
		WeightScale:      100,
		Seed:             42,
		CalibrationDelta: 1,
		CacheSize:        4096,
		Variants: []Variant{
			{Name: "zcl", PolicyConfig: sim.PolicyConfig{Policy: sim.PolicyZCL}},
			{Name: "zcl-randomized", PolicyConfig: sim.PolicyConfig{Policy: sim.PolicyZCLRandomized}},
			{Name: "baseline[0.5]", PolicyConfig: sim.PolicyConfig{Policy: sim.PolicyBaseline, Alpha: 0.5}},
			{Name: "ect[0.25]", PolicyConfig: sim.PolicyConfig{Policy: sim.PolicyECT, Alpha: 0.25}},
			{Name: "ect[0.5]", PolicyConfig: sim.PolicyConfig{Policy: sim.PolicyECT, Alpha: 0.5}},
			{Name: "ect[0.75]", PolicyConfig: sim.PolicyConfig{Policy: sim.PolicyECT, Alpha: 0.75}},
			{Name: "la-ect[0.33]", PolicyConfig: sim.PolicyConfig{Policy: sim.PolicyLAECT, Gamma: 0.33}},
			{Name: "la-ect[0.66]", PolicyConfig: sim.PolicyConfig{Policy: sim.PolicyLAECT, Gamma: 0.66}},
			{Name: "la-ect[1]", PolicyConfig: sim.PolicyConfig{Policy: sim.PolicyLAECT, Gamma: 1}},
		},
	}
}

// LoadPlan reads a plan file over DefaultPlan. Unknown keys are rejected.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan: %w", err)
	}
	return ParsePlan(data)
}

// ParsePlan decodes a plan document over DefaultPlan and validates it.
// A document that lists variants replaces the default lineup entirely.
func ParsePlan(data []byte) (*Plan, error) {
	plan := DefaultPlan()
	plan.Variants = nil
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(plan); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing plan: %w", err)
	}
	if plan.Variants == nil {
		plan.Variants = DefaultPlan().Variants
	}
	plan.normalize()
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return plan, nil
}

func (p *Plan) normalize() {
	for i := range p.Variants {
		if p.Variants[i].Name == "" {
			p.Variants[i].Name = p.Variants[i].Policy
		}
	}
}

// NeedsCalibration reports whether any variant consumes per-trace predictions.
func (p *Plan) NeedsCalibration() bool {
	for _, v := range p.Variants {
		if v.NeedsPrediction() {
			return true
		}
	}
	return false
}

// Validate checks the plan before any trace is touched.
func (p *Plan) Validate() error {
	if !(p.Capacity > 0) || math.IsInf(p.Capacity, 0) {
		return fmt.Errorf("capacity must be positive and finite, got %v", p.Capacity)
	}
	if !(p.WeightScale > 0) || math.IsInf(p.WeightScale, 0) {
		return fmt.Errorf("weight_scale must be positive and finite, got %v", p.WeightScale)
	}
	if p.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", p.Workers)
	}
	if p.Shuffles < 0 {
		return fmt.Errorf("shuffles must be non-negative, got %d", p.Shuffles)
	}
	if p.PredictionError < 0 || math.IsNaN(p.PredictionError) {
		return fmt.Errorf("prediction_error must be non-negative, got %v", p.PredictionError)
	}
	if p.CacheSize <= 0 {
		return fmt.Errorf("cache_size must be positive, got %d", p.CacheSize)
	}
	if p.Bounds != nil {
		if err := p.Bounds.Validate(); err != nil {
			return fmt.Errorf("bounds: %w", err)
		}
	}
	if len(p.Variants) == 0 {
		return fmt.Errorf("plan has no variants")
	}
	seen := make(map[string]bool, len(p.Variants))
	for i, v := range p.Variants {
		if seen[v.Name] {
			return fmt.Errorf("variants[%d]: duplicate name %q", i, v.Name)
		}
		seen[v.Name] = true
		if err := v.PolicyConfig.Validate(); err != nil {
			return fmt.Errorf("variant %q: %w", v.Name, err)
		}
	}
	if p.NeedsCalibration() && !(p.CalibrationDelta > 0) {
		return fmt.Errorf("calibration_delta must be positive when a la-ect variant has no predicted_density, got %v", p.CalibrationDelta)
	}
	return nil
}
