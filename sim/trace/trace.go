package trace

// TraceLevel controls the verbosity of decision tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelDecisions captures every accept/reject decision.
	TraceLevelDecisions TraceLevel = "decisions"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelDecisions: true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// SimulationTrace collects decision records during one simulation pass.
type SimulationTrace struct {
	Level     TraceLevel
	Decisions []DecisionRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(level TraceLevel) *SimulationTrace {
	return &SimulationTrace{
		Level:     level,
		Decisions: make([]DecisionRecord, 0),
	}
}

// Enabled reports whether records should be appended. Safe on nil.
func (st *SimulationTrace) Enabled() bool {
	return st != nil && st.Level == TraceLevelDecisions
}

// RecordDecision appends a decision record when tracing is enabled.
func (st *SimulationTrace) RecordDecision(record DecisionRecord) {
	if !st.Enabled() {
		return
	}
	st.Decisions = append(st.Decisions, record)
}
