package sweep

import "fmt"

// Grid is the offered-load schedule of a sweep. Rates are derived from the
// iteration count, never accumulated, so the sequence stays on the
// two-decimal grid.
type Grid struct {
	Start   float64 `yaml:"start"`
	Step    float64 `yaml:"step"`
	MaxRate float64 `yaml:"max_rate"`
}

// DefaultGrid probes 0.02, 0.04, ... up to one packet/node/cycle.
func DefaultGrid() Grid {
	return Grid{Start: 0.02, Step: 0.02, MaxRate: 1.0}
}

// Rate returns the injection rate of the 1-based iteration i.
func (g Grid) Rate(i int) float64 {
	return roundRate(g.Start + float64(i-1)*g.Step)
}

// Exhausted reports whether rate lies beyond the grid's offered-load ceiling.
func (g Grid) Exhausted(rate float64) bool {
	return rate > g.MaxRate+rateEpsilon
}

// Validate checks that every grid value is a two-decimal rate in (0, 1] and
// that the ceiling is reachable.
func (g Grid) Validate() error {
	if err := validateRate("grid start", g.Start); err != nil {
		return err
	}
	if err := validateRate("grid step", g.Step); err != nil {
		return err
	}
	if err := validateRate("grid max_rate", g.MaxRate); err != nil {
		return err
	}
	if g.MaxRate < g.Start-rateEpsilon {
		return fmt.Errorf("grid max_rate %.2f is below start %.2f", g.MaxRate, g.Start)
	}
	return nil
}

// State is the per-sweep mutable state handed to a StopPolicy. The
// low-load baseline is captured on the first observation and never
// recomputed.
type State struct {
	Grid      Grid
	Iteration int     // 1-based index of the most recent run
	Rate      float64 // injection rate of the most recent run

	baseline    float64
	hasBaseline bool
}

// NewState returns the state of a sweep that has not run yet.
func NewState(grid Grid) *State {
	return &State{Grid: grid}
}

// Observe records the latency of the run at the given iteration.
func (s *State) Observe(iteration int, rate, latency float64) {
	s.Iteration = iteration
	s.Rate = rate
	if !s.hasBaseline {
		s.baseline = latency
		s.hasBaseline = true
	}
}

// Baseline returns the latency captured at the first iteration.
func (s *State) Baseline() (float64, bool) {
	return s.baseline, s.hasBaseline
}

// IsFirst reports whether the most recent run was the first of the sweep.
func (s *State) IsFirst() bool {
	return s.Iteration == 1
}

// NextRate is the rate the sweep would probe next.
func (s *State) NextRate() float64 {
	return s.Grid.Rate(s.Iteration + 1)
}
