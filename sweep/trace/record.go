// Package trace provides stop-decision recording for sweep analysis.
// This package has no dependencies on sweep/; it stores pure data types.
package trace

// DecisionRecord captures the stop-policy verdict after one simulator run.
type DecisionRecord struct {
	Iteration int
	Rate      float64
	Latency   float64
	Stop      bool
	Outcome   string // empty while the sweep continues
	Reason    string
}
