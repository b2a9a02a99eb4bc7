package trace

// TraceLevel controls the verbosity of decision tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelDecisions captures every stop-policy decision.
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

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// SweepTrace collects decision records during one sweep.
type SweepTrace struct {
	Config    TraceConfig
	Decisions []DecisionRecord
}

// NewSweepTrace creates a SweepTrace ready for recording.
func NewSweepTrace(config TraceConfig) *SweepTrace {
	return &SweepTrace{
		Config:    config,
		Decisions: make([]DecisionRecord, 0),
	}
}

// Enabled reports whether records are kept.
func (st *SweepTrace) Enabled() bool {
	return st != nil && st.Config.Level == TraceLevelDecisions
}

// RecordDecision appends a decision record. No-op unless decisions are traced.
func (st *SweepTrace) RecordDecision(record DecisionRecord) {
	if !st.Enabled() {
		return
	}
	st.Decisions = append(st.Decisions, record)
}

// Last returns the most recent decision, if any.
func (st *SweepTrace) Last() (DecisionRecord, bool) {
	if st == nil || len(st.Decisions) == 0 {
		return DecisionRecord{}, false
	}
	return st.Decisions[len(st.Decisions)-1], true
}
