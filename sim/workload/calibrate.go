package workload

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/fairknap/knapsim/sim"
)

// zeroProfitPenalty is the ratio charged to a candidate density that packs
// nothing, so it is never chosen over one that packs something.
const zeroProfitPenalty = 1e6

// maxSweepSteps caps the number of candidate densities tried per trace.
const maxSweepSteps = 1_000_000

// CalibrationConfig holds the parameters of the best-density sweep.
type CalibrationConfig struct {
	Capacity float64    // online knapsack capacity used for each candidate run
	Delta    float64    // spacing between candidate densities
	Bounds   sim.Bounds // dataset bounds; Bounds.L is the fallback prediction
}

// CalibrationResult reports the chosen density and the ratio it achieved.
type CalibrationResult struct {
	Density    float64
	Ratio      float64
	Candidates int
}

// CalibrateDensity finds d*, the constant threshold density that minimises
// optimal/achieved on this trace. Candidates run from the smallest to the
// largest density in the offline-optimal packing in steps of cfg.Delta; each
// is evaluated with la-ect at gamma = 1, which accepts exactly the items whose
// density clears the candidate. An empty optimal packing yields Bounds.L.
func CalibrateDensity(items sim.Trace, opt *sim.OfflineSolution, cfg CalibrationConfig) (*CalibrationResult, error) {
	if !(cfg.Delta > 0) {
		return nil, fmt.Errorf("calibration delta must be positive, got %v", cfg.Delta)
	}
	if err := cfg.Bounds.Validate(); err != nil {
		return nil, err
	}
	if opt == nil || len(opt.Packed) == 0 {
		return &CalibrationResult{Density: cfg.Bounds.L, Ratio: 1}, nil
	}

	minD, maxD := math.Inf(1), math.Inf(-1)
	for _, i := range opt.Packed {
		d := items[i].Density()
		minD = math.Min(minD, d)
		maxD = math.Max(maxD, d)
	}
	steps := int((maxD-minD)/cfg.Delta) + 1
	if steps > maxSweepSteps {
		return nil, fmt.Errorf("calibration sweep of %d candidates exceeds %d; raise delta", steps, maxSweepSteps)
	}

	best := &CalibrationResult{Ratio: math.Inf(1), Candidates: steps}
	for i := 0; i < steps; i++ {
		density := minD + cfg.Delta*float64(i)
		policy, err := sim.NewLAECT(cfg.Bounds, density, 1)
		if err != nil {
			return nil, err
		}
		res, err := sim.Simulate(items, cfg.Capacity, policy, nil)
		if err != nil {
			return nil, err
		}
		ratio := zeroProfitPenalty
		if achieved := res.Profit(); achieved != 0 {
			ratio = opt.Value / achieved
		}
		if ratio < best.Ratio {
			best.Ratio = ratio
			best.Density = density
		}
	}
	logrus.Debugf("calibrated d*=%.4f (ratio %.4f over %d candidates)", best.Density, best.Ratio, steps)
	return best, nil
}
