package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/garnet-sweep/garnet-sweep/sweep"
)

// PrintResults writes the final per-sweep table, grouped the way the
// saturation study reports it: nodes, then pattern, then VCs.
func PrintResults(w io.Writer, cr *sweep.CampaignResult) {
	fmt.Fprintf(w, "=== Campaign %s (%s) ===\n", cr.ID, cr.Mode)
	fmt.Fprintf(w, "%-6s %-16s %-4s %-20s %-11s %-8s %s\n",
		"cores", "pattern", "vc", "outcome", "throughput", "runs", "baseline")
	for _, key := range cr.Keys() {
		r := cr.Results[key]
		fmt.Fprintf(w, "%-6d %-16s %-4d %-20s %-11s %-8d %.4f\n",
			key.Nodes, strings.ToUpper(key.Pattern), key.VCs, r.Outcome,
			r.ThroughputString(), r.Iterations(), r.Baseline)
	}
	if n := len(cr.Errors); n > 0 {
		fmt.Fprintf(w, "%d sweep(s) failed\n", n)
	}
}
