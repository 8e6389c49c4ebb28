// Package sim provides the online knapsack core: threshold curves, the
// online simulation pass, and the exact offline solver.
//
// # Reading Guide
//
// Start with these files:
//   - item.go: Item, Trace, and the dataset-wide density Bounds
//   - threshold.go: the ZCL, baseline, ECT, and prediction-aware curves
//   - policy.go: ThresholdPolicy and the five named variants
//   - simulator.go: the single forward pass and SimulationResult
//   - offline.go: the 0/1 knapsack DP with table backtracking
//
// # Architecture
//
// Everything in this package is a pure function of its inputs apart from
// the one explicit random draw made when a zcl-randomized policy is built.
// Sub-packages build on it:
//   - sim/numeric/: special functions (Lambert W) behind small interfaces
//   - sim/trace/: per-item decision recording
//   - sim/workload/: dataset loading, shuffling, prediction calibration
//   - sim/experiment/: parallel batch evaluation and competitive ratios
//
// # Key Interfaces
//
//   - ThresholdPolicy: utilization -> minimum accepted density
//   - numeric.LambertW: principal-branch Lambert W used by ECT
package sim
