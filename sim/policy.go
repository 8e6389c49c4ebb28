package sim

import (
	"fmt"
	"math/rand"

	"github.com/fairknap/knapsim/sim/numeric"
)

// ThresholdPolicy maps the current utilization z in [0,1] to the minimum
// density an arriving item must have to be accepted.
// Implementations hold no per-item state; one instance serves one run.
type ThresholdPolicy interface {
	Name() string
	Threshold(z float64) (float64, error)
}

// Policy names accepted by NewPolicy.
const (
	PolicyZCL           = "zcl"
	PolicyZCLRandomized = "zcl-randomized"
	PolicyBaseline      = "baseline"
	PolicyECT           = "ect"
	PolicyLAECT         = "la-ect"
)

// ValidPolicies is the set of recognized policy names.
// Shared by PolicyConfig.Validate() and NewPolicy() to avoid duplication.
var ValidPolicies = map[string]bool{
	PolicyZCL:           true,
	PolicyZCLRandomized: true,
	PolicyBaseline:      true,
	PolicyECT:           true,
	PolicyLAECT:         true,
}

// IsValidPolicy returns true if name is a recognized policy.
func IsValidPolicy(name string) bool {
	return ValidPolicies[name]
}

// PolicyConfig selects a policy and carries its parameters.
// Alpha is read by baseline and ect; PredictedDensity and Gamma by la-ect.
type PolicyConfig struct {
	Policy           string  `yaml:"policy" json:"policy"`
	Alpha            float64 `yaml:"alpha,omitempty" json:"alpha,omitempty"`
	Gamma            float64 `yaml:"gamma,omitempty" json:"gamma,omitempty"`
	PredictedDensity float64 `yaml:"predicted_density,omitempty" json:"predicted_density,omitempty"`
}

// Validate checks the policy name and the parameter ranges it reads.
// A zero PredictedDensity is allowed for la-ect because drivers fill it in
// per trace from a calibrated prediction.
func (c PolicyConfig) Validate() error {
	if !IsValidPolicy(c.Policy) {
		return fmt.Errorf("unknown policy %q", c.Policy)
	}
	switch c.Policy {
	case PolicyBaseline, PolicyECT:
		return validateAlpha(c.Alpha)
	case PolicyLAECT:
		if c.PredictedDensity != 0 {
			if err := validatePrediction(c.PredictedDensity); err != nil {
				return err
			}
		}
		return validateGamma(c.Gamma)
	}
	return nil
}

// NewPolicy creates a threshold policy by name.
// rng is only read by zcl-randomized and may be nil otherwise.
// Panics on unrecognized names; returns domain errors for bad parameters.
func NewPolicy(cfg PolicyConfig, b Bounds, rng *rand.Rand) (ThresholdPolicy, error) {
	if !IsValidPolicy(cfg.Policy) {
		panic(fmt.Sprintf("unknown policy %q", cfg.Policy))
	}
	switch cfg.Policy {
	case PolicyZCL:
		return NewZCL(b)
	case PolicyZCLRandomized:
		if rng == nil {
			return nil, fmt.Errorf("%s requires a random source", PolicyZCLRandomized)
		}
		return NewRandomizedZCL(b, rng)
	case PolicyBaseline:
		return NewBaseline(b, cfg.Alpha)
	case PolicyECT:
		return NewECT(b, cfg.Alpha, nil)
	case PolicyLAECT:
		return NewLAECT(b, cfg.PredictedDensity, cfg.Gamma)
	default:
		panic(fmt.Sprintf("unhandled policy %q", cfg.Policy))
	}
}

// ZCL follows ZCLThreshold at the current utilization.
type ZCL struct {
	bounds Bounds
}

// NewZCL validates the bounds and returns a ZCL policy.
func NewZCL(b Bounds) (*ZCL, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &ZCL{bounds: b}, nil
}

func (p *ZCL) Name() string { return PolicyZCL }

func (p *ZCL) Threshold(z float64) (float64, error) {
	return expInterp(z, p.bounds)
}

// RandomizedZCL evaluates the ZCL curve at a single phase drawn uniformly
// from [0,1) when the policy is built. Utilization is ignored, so every item
// in the run faces the same threshold.
type RandomizedZCL struct {
	bounds Bounds
	phase  float64
}

// NewRandomizedZCL draws the phase from rng once.
func NewRandomizedZCL(b Bounds, rng *rand.Rand) (*RandomizedZCL, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &RandomizedZCL{bounds: b, phase: rng.Float64()}, nil
}

func (p *RandomizedZCL) Name() string { return PolicyZCLRandomized }

// Phase returns the fixed utilization the curve is evaluated at.
func (p *RandomizedZCL) Phase() float64 { return p.phase }

func (p *RandomizedZCL) Threshold(_ float64) (float64, error) {
	return expInterp(p.phase, p.bounds)
}

// Baseline follows BaselineThreshold with a precomputed breakpoint.
type Baseline struct {
	bounds Bounds
	alpha  float64
	ell    float64
}

// NewBaseline requires L < U and alpha in (0,1).
func NewBaseline(b Bounds, alpha float64) (*Baseline, error) {
	ell, err := BaselineBreakpoint(b, alpha)
	if err != nil {
		return nil, err
	}
	return &Baseline{bounds: b, alpha: alpha, ell: ell}, nil
}

func (p *Baseline) Name() string { return PolicyBaseline }

func (p *Baseline) Threshold(z float64) (float64, error) {
	return baselineAt(z, p.bounds, p.alpha, p.ell)
}

// ECT follows FairThreshold; beta is solved once at construction.
type ECT struct {
	bounds Bounds
	alpha  float64
	beta   float64
}

// NewECT builds an ECT policy. lw selects the Lambert W implementation;
// nil means numeric.Halley.
func NewECT(b Bounds, alpha float64, lw numeric.LambertW) (*ECT, error) {
	beta, err := FairBeta(b, alpha, lw)
	if err != nil {
		return nil, err
	}
	return &ECT{bounds: b, alpha: alpha, beta: beta}, nil
}

func (p *ECT) Name() string { return PolicyECT }

// Beta returns the curve's decay rate.
func (p *ECT) Beta() float64 { return p.beta }

func (p *ECT) Threshold(z float64) (float64, error) {
	return fairAt(z, p.bounds, p.alpha, p.beta)
}

// LAECT follows PredictionAwareThreshold for a fixed prediction.
type LAECT struct {
	bounds Bounds
	hatD   float64
	gamma  float64
}

// NewLAECT requires hatD > 0 and gamma in [0,1].
func NewLAECT(b Bounds, hatD, gamma float64) (*LAECT, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if err := validatePrediction(hatD); err != nil {
		return nil, err
	}
	if err := validateGamma(gamma); err != nil {
		return nil, err
	}
	return &LAECT{bounds: b, hatD: hatD, gamma: gamma}, nil
}

func (p *LAECT) Name() string { return PolicyLAECT }

func (p *LAECT) Threshold(z float64) (float64, error) {
	return predictionAwareAt(z, p.bounds, p.hatD, p.gamma)
}
