package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/fairknap/knapsim/sim/numeric"
)

// maxLogFloat is the largest x for which e^x is finite.
var maxLogFloat = math.Log(math.MaxFloat64)

// expInterp evaluates ((U·e/L)^x)·(L/e), the exponential curve shared by the
// ZCL family. The exponent is range-checked in log space first so extreme
// bound ratios fail with ErrNumericRange instead of returning +Inf.
func expInterp(x float64, b Bounds) (float64, error) {
	if math.IsNaN(x) {
		return 0, fmt.Errorf("%w: NaN exponent", ErrNumericRange)
	}
	logRatio := math.Log(b.U) + 1 - math.Log(b.L)
	logVal := x*logRatio + math.Log(b.L) - 1
	if math.IsNaN(logVal) || logVal > maxLogFloat {
		return 0, fmt.Errorf("%w: (U·e/L)^%g overflows for L=%g U=%g", ErrNumericRange, x, b.L, b.U)
	}
	v := math.Pow(b.U*math.E/b.L, x) * (b.L / math.E)
	if math.IsInf(v, 0) || math.IsNaN(v) {
		v = math.Exp(logVal)
	}
	return v, nil
}

func validateAlpha(alpha float64) error {
	if !(alpha > 0 && alpha < 1) {
		return fmt.Errorf("%w: alpha must be in (0,1), got %v", ErrDomain, alpha)
	}
	return nil
}

func validateGamma(gamma float64) error {
	if !(gamma >= 0 && gamma <= 1) {
		return fmt.Errorf("%w: gamma must be in [0,1], got %v", ErrDomain, gamma)
	}
	return nil
}

func validatePrediction(hatD float64) error {
	if !(hatD > 0) || math.IsInf(hatD, 0) {
		return fmt.Errorf("%w: predicted density must be positive and finite, got %v", ErrDomain, hatD)
	}
	return nil
}

// ZCLThreshold is the Zhou-Chakrabarty-Lukose curve ((U·e/L)^z)·(L/e).
// It rises from L/e at z=0 to U at z=1.
func ZCLThreshold(z float64, b Bounds) (float64, error) {
	if err := b.Validate(); err != nil {
		return 0, err
	}
	return expInterp(z, b)
}

// BaselineBreakpoint returns ell = (alpha·ln(U/L) + alpha - 1) / ln(U/L),
// the point at which the baseline curve would reach L/e if extended left.
func BaselineBreakpoint(b Bounds, alpha float64) (float64, error) {
	if err := b.requireSpread(); err != nil {
		return 0, err
	}
	if err := validateAlpha(alpha); err != nil {
		return 0, err
	}
	lr := math.Log(b.U / b.L)
	return (alpha*lr + alpha - 1) / lr, nil
}

// BaselineThreshold holds the threshold at L until utilization reaches
// alpha, then follows the ZCL curve rescaled onto [ell, 1].
func BaselineThreshold(z float64, b Bounds, alpha float64) (float64, error) {
	ell, err := BaselineBreakpoint(b, alpha)
	if err != nil {
		return 0, err
	}
	return baselineAt(z, b, alpha, ell)
}

func baselineAt(z float64, b Bounds, alpha, ell float64) (float64, error) {
	if z < alpha {
		return b.L, nil
	}
	return expInterp((z-ell)/(1-ell), b)
}

// FairBeta returns W0((U - U·alpha)/(L·alpha)) / (1 - alpha), the decay
// rate of the ECT curve. lw may be nil to use numeric.Halley.
func FairBeta(b Bounds, alpha float64, lw numeric.LambertW) (float64, error) {
	if err := b.Validate(); err != nil {
		return 0, err
	}
	if err := validateAlpha(alpha); err != nil {
		return 0, err
	}
	if lw == nil {
		lw = numeric.Halley{}
	}
	arg := (b.U - b.U*alpha) / (b.L * alpha)
	w, err := lw.W0(arg)
	if err != nil {
		return 0, fmt.Errorf("%w: lambert W at %g: %v", ErrDomain, arg, err)
	}
	return w / (1 - alpha), nil
}

// FairThreshold is the ECT curve: L below alpha, U·e^(beta·(z-1)) above.
func FairThreshold(z float64, b Bounds, alpha float64) (float64, error) {
	beta, err := FairBeta(b, alpha, nil)
	if err != nil {
		return 0, err
	}
	return fairAt(z, b, alpha, beta)
}

func fairAt(z float64, b Bounds, alpha, beta float64) (float64, error) {
	if z < alpha {
		return b.L, nil
	}
	exponent := beta * (z - 1)
	if math.IsNaN(exponent) || exponent+math.Log(b.U) > maxLogFloat {
		return 0, fmt.Errorf("%w: U·e^(%g) overflows", ErrNumericRange, exponent)
	}
	return b.U * math.Exp(exponent), nil
}

// PredictionAwareThreshold blends a predicted density hatD with the ZCL
// curve compressed by gamma. gamma == 1 trusts the prediction outright.
// Otherwise the early curve exp1 is used while it sits below hatD; once it
// reaches hatD the late curve exp2 takes over when it is at least hatD, and
// the threshold holds at hatD in between.
func PredictionAwareThreshold(z float64, b Bounds, hatD, gamma float64) (float64, error) {
	if err := b.Validate(); err != nil {
		return 0, err
	}
	if err := validatePrediction(hatD); err != nil {
		return 0, err
	}
	if err := validateGamma(gamma); err != nil {
		return 0, err
	}
	return predictionAwareAt(z, b, hatD, gamma)
}

func predictionAwareAt(z float64, b Bounds, hatD, gamma float64) (float64, error) {
	if gamma == 1 {
		return hatD, nil
	}
	// An exp1 too large to represent is still >= hatD; only the comparison
	// matters, so fall through to the late curve.
	exp1, err := expInterp(z/(1-gamma), b)
	if err != nil && (math.IsNaN(z) || !errors.Is(err, ErrNumericRange)) {
		return 0, err
	}
	if err == nil && exp1 < hatD {
		return exp1, nil
	}
	exp2, err := expInterp((z-gamma)/(1-gamma), b)
	if err != nil {
		return 0, err
	}
	if exp2 >= hatD {
		return exp2, nil
	}
	return hatD, nil
}
