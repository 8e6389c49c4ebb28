// Package numeric holds the special functions used by threshold curves.
// Callers depend on the small interfaces here so an alternate numeric
// library can be dropped in without touching threshold logic.
package numeric

import (
	"errors"
	"fmt"
	"math"
)

// BranchPoint is -1/e, the lower edge of the real domain of W0.
var BranchPoint = -1 / math.E

// ErrOutOfDomain is returned when an argument lies outside the real domain
// of the requested branch.
var ErrOutOfDomain = errors.New("numeric: argument outside real domain")

// ErrNotConverged is returned when an iteration leaves the finite range
// before reaching tolerance.
var ErrNotConverged = errors.New("numeric: iteration did not converge")

// LambertW evaluates the principal branch of the Lambert W function,
// the inverse of f(w) = w·e^w.
type LambertW interface {
	W0(x float64) (float64, error)
}

// Halley is the default LambertW implementation. It seeds Halley's method
// with a branch-point series near -1/e, log1p in the middle range, and the
// asymptotic ln(x) - ln(ln(x)) for large arguments.
type Halley struct {
	// MaxIter bounds the refinement loop; zero means 64.
	MaxIter int
}

const halleyTol = 1e-15

// logSpaceFrom is where w·e^w can overflow on an overshooting iterate;
// above it W0 solves w + ln(w) = ln(x) instead.
const logSpaceFrom = 1e100

// W0 returns W0(x) for x >= -1/e.
func (h Halley) W0(x float64) (float64, error) {
	switch {
	case math.IsNaN(x):
		return 0, fmt.Errorf("%w: W0(NaN)", ErrOutOfDomain)
	case math.IsInf(x, 1):
		return math.Inf(1), nil
	case x < BranchPoint:
		// Allow for rounding in callers that compute exactly -1/e.
		if BranchPoint-x > 1e-16 {
			return 0, fmt.Errorf("%w: W0(%g) requires x >= -1/e", ErrOutOfDomain, x)
		}
		return -1, nil
	case x == BranchPoint:
		return -1, nil
	case x == 0:
		return 0, nil
	}

	maxIter := h.MaxIter
	if maxIter <= 0 {
		maxIter = 64
	}
	if x >= logSpaceFrom {
		return logSpaceW0(x, maxIter)
	}

	w := initialGuess(x)
	for i := 0; i < maxIter; i++ {
		ew := math.Exp(w)
		f := w*ew - x
		wp1 := w + 1
		denom := ew*wp1 - (w+2)*f/(2*wp1)
		if denom == 0 || math.IsNaN(denom) || math.IsInf(denom, 0) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("%w: W0(%g) at w=%g", ErrNotConverged, x, w)
		}
		next := w - f/denom
		if math.Abs(next-w) <= halleyTol*(1+math.Abs(next)) {
			return next, nil
		}
		w = next
	}
	return w, nil
}

// logSpaceW0 runs Newton on g(w) = w + ln(w) - ln(x), which stays finite
// for every finite x > e.
func logSpaceW0(x float64, maxIter int) (float64, error) {
	lx := math.Log(x)
	w := lx - math.Log(lx)
	for i := 0; i < maxIter; i++ {
		next := w * (1 + lx - math.Log(w)) / (1 + w)
		if !(next > 0) || math.IsInf(next, 0) {
			return 0, fmt.Errorf("%w: W0(%g) at w=%g", ErrNotConverged, x, w)
		}
		if math.Abs(next-w) <= halleyTol*(1+next) {
			return next, nil
		}
		w = next
	}
	return w, nil
}

func initialGuess(x float64) float64 {
	switch {
	case x < -0.25:
		p := math.Sqrt(2 * (math.E*x + 1))
		return -1 + p - p*p/3 + 11.0/72.0*p*p*p
	case x < 3:
		return math.Log1p(x)
	default:
		l := math.Log(x)
		return l - math.Log(l)
	}
}
