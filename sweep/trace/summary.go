package trace

// TraceSummary aggregates statistics from one or more SweepTraces.
type TraceSummary struct {
	TotalDecisions      int            `yaml:"total_decisions"`
	StopCount           int            `yaml:"stop_count"`
	MeanLatency         float64        `yaml:"mean_latency"`
	MaxLatency          float64        `yaml:"max_latency"`
	OutcomeDistribution map[string]int `yaml:"outcome_distribution"` // outcome → number of sweeps ending with it
}

// Summarize computes aggregate statistics from SweepTraces.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(traces ...*SweepTrace) *TraceSummary {
	summary := &TraceSummary{
		OutcomeDistribution: make(map[string]int),
	}

	totalLatency := 0.0
	finite := 0
	for _, st := range traces {
		if st == nil {
			continue
		}
		for _, d := range st.Decisions {
			summary.TotalDecisions++
			if d.Stop {
				summary.StopCount++
				summary.OutcomeDistribution[d.Outcome]++
			}
			if d.Outcome == "no-data" || d.Outcome == "exhausted" {
				continue // no measured latency
			}
			totalLatency += d.Latency
			finite++
			if d.Latency > summary.MaxLatency {
				summary.MaxLatency = d.Latency
			}
		}
	}

	if finite > 0 {
		summary.MeanLatency = totalLatency / float64(finite)
	}

	return summary
}
