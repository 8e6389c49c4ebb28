package sim

import "errors"

var (
	// ErrDomain marks inputs outside a function's mathematical domain:
	// invalid bounds, alpha outside (0,1), gamma outside [0,1], a
	// non-positive prediction or capacity, negative values, non-positive
	// weights, or a Lambert-W argument below -1/e.
	ErrDomain = errors.New("sim: domain error")

	// ErrNumericRange marks a threshold whose exponential interpolation
	// would overflow float64.
	ErrNumericRange = errors.New("sim: numeric range error")
)
