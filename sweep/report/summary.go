package report

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/garnet-sweep/garnet-sweep/sweep"
	"github.com/garnet-sweep/garnet-sweep/sweep/trace"
)

// Summary is the YAML document written at the end of a campaign.
type Summary struct {
	Campaign string              `yaml:"campaign"`
	Mode     string              `yaml:"mode"`
	Sweeps   []SweepSummary      `yaml:"sweeps"`
	Failed   int                 `yaml:"failed"`
	Trace    *trace.TraceSummary `yaml:"trace,omitempty"`
}

// SweepSummary is one sweep's line in the summary.
type SweepSummary struct {
	Nodes      int       `yaml:"nodes"`
	Pattern    string    `yaml:"pattern"`
	VCs        int       `yaml:"vcs"`
	ConfFile   string    `yaml:"conf_file"`
	Policy     string    `yaml:"policy"`
	Outcome    string    `yaml:"outcome"`
	Saturated  bool      `yaml:"saturated"`
	Throughput *float64  `yaml:"throughput,omitempty"` // absent when not found
	Baseline   float64   `yaml:"baseline"`
	Runs       int       `yaml:"runs"`
	Rates      []float64 `yaml:"rates,flow"`
	StopReason string    `yaml:"stop_reason,omitempty"`
	Error      string    `yaml:"error,omitempty"`
}

// Summarize builds the summary of cr, sweeps in key order.
func Summarize(cr *sweep.CampaignResult) *Summary {
	s := &Summary{Campaign: cr.ID, Mode: string(cr.Mode), Failed: len(cr.Errors)}
	var traces []*trace.SweepTrace
	for _, key := range cr.Keys() {
		res := cr.Results[key]
		ss := SweepSummary{
			Nodes:     key.Nodes,
			Pattern:   key.Pattern,
			VCs:       key.VCs,
			ConfFile:  key.ConfFile,
			Policy:    res.Policy,
			Outcome:   string(res.Outcome),
			Saturated: res.Saturated(),
			Baseline:  res.Baseline,
			Runs:      res.Iterations(),
			Rates:     res.Rates(),
		}
		if last, ok := res.Trace.Last(); ok {
			ss.StopReason = last.Reason
		}
		if res.Found {
			tp := res.Throughput
			ss.Throughput = &tp
		}
		if res.Err != nil {
			ss.Error = res.Err.Error()
		}
		s.Sweeps = append(s.Sweeps, ss)
		if res.Trace.Enabled() {
			traces = append(traces, res.Trace)
		}
	}
	if len(traces) > 0 {
		s.Trace = trace.Summarize(traces...)
	}
	return s
}

// WriteSummary writes the YAML summary of cr to path.
func WriteSummary(path string, cr *sweep.CampaignResult) error {
	data, err := yaml.Marshal(Summarize(cr))
	if err != nil {
		return fmt.Errorf("marshaling summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	return nil
}
