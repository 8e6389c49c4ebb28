package workload

import (
	"fmt"
	"math"
	"math/rand"
)

// NoisyPrediction perturbs a calibrated density multiplicatively:
// d·|1 + N(0, sigma)|. One normal draw is consumed even when sigma is zero
// so streams stay aligned across error levels.
func NoisyPrediction(d, sigma float64, rng *rand.Rand) (float64, error) {
	if sigma < 0 || math.IsNaN(sigma) {
		return 0, fmt.Errorf("prediction error must be non-negative, got %v", sigma)
	}
	return d * math.Abs(1+rng.NormFloat64()*sigma), nil
}
