// Package report renders sweep results: live console progress, per-sample
// CSV curves, a YAML campaign summary and a final results table.
package report

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/garnet-sweep/garnet-sweep/sweep"
)

// Console prints one line per sample and per finished sweep. Safe for
// concurrent sweeps; lines from different sweeps may interleave.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsole returns a Console writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) OnSample(key sweep.SweepKey, cfg sweep.RunConfig, s sweep.Sample) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.NoData() {
		fmt.Fprintf(c.w, "cores: %d b: %s vc-%d injection_rate=%s \t no output at %s\n",
			key.Nodes, strings.ToUpper(key.Pattern), key.VCs, sweep.FormatRate(s.Rate), s.Location)
		return
	}
	fmt.Fprintf(c.w, "cores: %d b: %s vc-%d injection_rate=%s \t Packet Latency: %f\n",
		key.Nodes, strings.ToUpper(key.Pattern), key.VCs, sweep.FormatRate(s.Rate), s.Latency)
}

func (c *Console) OnResult(r *sweep.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "cores: %d b: %s vc-%d %s after %d runs",
		r.Key.Nodes, strings.ToUpper(r.Key.Pattern), r.Key.VCs, r.Outcome, r.Iterations())
	if r.Found {
		fmt.Fprintf(c.w, ", throughput %s", r.ThroughputString())
	}
	if r.Err != nil {
		fmt.Fprintf(c.w, ": %v", r.Err)
	}
	fmt.Fprintln(c.w)
}
