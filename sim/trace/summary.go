package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalDecisions         int     `json:"total_decisions"`
	AcceptedCount          int     `json:"accepted"`
	RejectedBelowThreshold int     `json:"rejected_below_threshold"`
	RejectedCapacity       int     `json:"rejected_capacity"`
	MeanThreshold          float64 `json:"mean_threshold"`
	MaxThreshold           float64 `json:"max_threshold"`
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{}
	if st == nil || len(st.Decisions) == 0 {
		return summary
	}

	total := 0.0
	for _, d := range st.Decisions {
		switch {
		case d.Accepted:
			summary.AcceptedCount++
		case d.Reason == ReasonCapacity:
			summary.RejectedCapacity++
		default:
			summary.RejectedBelowThreshold++
		}
		total += d.Threshold
		if d.Threshold > summary.MaxThreshold {
			summary.MaxThreshold = d.Threshold
		}
	}
	summary.TotalDecisions = len(st.Decisions)
	summary.MeanThreshold = total / float64(len(st.Decisions))

	return summary
}
