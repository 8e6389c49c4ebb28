// Package trace provides per-item decision recording for online knapsack runs.
// This package has no dependencies on sim/: it stores pure data types.
package trace

// Decision reasons.
const (
	ReasonAccepted       = "accepted"
	ReasonBelowThreshold = "below-threshold"
	ReasonCapacity       = "capacity"
)

// DecisionRecord captures a single accept/reject decision.
type DecisionRecord struct {
	Index       int     `json:"index"`
	Utilization float64 `json:"utilization"` // z at decision time
	Threshold   float64 `json:"threshold"`
	Density     float64 `json:"density"`
	Accepted    bool    `json:"accepted"`
	Reason      string  `json:"reason"`
}
