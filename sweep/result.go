package sweep

import (
	"fmt"
	"math"

	"github.com/garnet-sweep/garnet-sweep/sweep/trace"
)

// Mode selects whether a sweep invokes the simulator or only reads back
// outputs of an earlier pass.
type Mode string

const (
	ModeDrive   Mode = "drive"
	ModeCollect Mode = "collect"
)

// Outcome records why a sweep ended.
type Outcome string

const (
	OutcomeSaturated          Outcome = "saturated"
	OutcomeDegenerateBaseline Outcome = "degenerate-baseline"
	OutcomeCeilingReached     Outcome = "ceiling-reached"
	OutcomeLoadCapReached     Outcome = "load-cap-reached"
	OutcomeNoData             Outcome = "no-data"
	OutcomeExhausted          Outcome = "exhausted"
	OutcomeFailed             Outcome = "failed"
)

// SweepKey identifies one sweep inside a campaign.
type SweepKey struct {
	Pattern  string
	VCs      int
	Nodes    int
	ConfFile string
}

func (k SweepKey) String() string {
	return fmt.Sprintf("%s/vc-%d/nodes-%d/%s", k.Pattern, k.VCs, k.Nodes, k.ConfFile)
}

// Less orders keys by nodes, pattern, VC count and connectivity file.
func (k SweepKey) Less(o SweepKey) bool {
	if k.Nodes != o.Nodes {
		return k.Nodes < o.Nodes
	}
	if k.Pattern != o.Pattern {
		return k.Pattern < o.Pattern
	}
	if k.VCs != o.VCs {
		return k.VCs < o.VCs
	}
	return k.ConfFile < o.ConfFile
}

// Sample is one point of a latency-vs-load curve.
type Sample struct {
	Rate     float64
	Latency  float64 // +Inf marks a collection-mode "no data" point
	Location string
}

// NoData reports whether the sample is the missing-output sentinel.
func (s Sample) NoData() bool {
	return math.IsInf(s.Latency, 1)
}

// Result is the outcome of one sweep.
type Result struct {
	Key     SweepKey
	Policy  string
	Mode    Mode
	Outcome Outcome

	// Throughput is the recorded injection rate; meaningful only when Found.
	// A degenerate baseline also records a throughput, distinguished by Outcome.
	Throughput float64
	Found      bool

	Baseline float64
	Curve    []Sample
	Trace    *trace.SweepTrace
	Err      error
}

// Saturated reports whether the sweep found a genuine saturation point.
func (r *Result) Saturated() bool {
	return r.Found && r.Outcome == OutcomeSaturated
}

// Iterations is the number of simulator runs the sweep consumed.
func (r *Result) Iterations() int {
	n := 0
	for _, s := range r.Curve {
		if !s.NoData() {
			n++
		}
	}
	return n
}

// Rates returns the injection rates visited, in order.
func (r *Result) Rates() []float64 {
	rates := make([]float64, len(r.Curve))
	for i, s := range r.Curve {
		rates[i] = s.Rate
	}
	return rates
}

// ThroughputString renders the recorded throughput or "-" when none was found.
func (r *Result) ThroughputString() string {
	if !r.Found {
		return "-"
	}
	return FormatRate(r.Throughput)
}
