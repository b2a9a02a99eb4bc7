package sweep

import "fmt"

// Default stop-policy parameters, taken from the experiments the driver was
// written for.
const (
	DefaultDriveCeiling       = 70.0
	DefaultCollectCeiling     = 200.0
	DefaultSaturationMultiple = 6.0
	DefaultBaselineCeiling    = 70.0
	DefaultLoadCap            = 0.42
)

// Decision is a StopPolicy verdict for the most recent run.
type Decision struct {
	Stop       bool
	Outcome    Outcome
	Throughput float64 // valid when Found
	Found      bool
	Reason     string
}

func continueSweep() Decision {
	return Decision{Reason: "continue"}
}

// StopPolicy decides, after every run, whether a sweep is finished and what it
// records. Policies hold configuration only; all per-sweep state lives in
// State, so one policy may serve many sweeps concurrently.
type StopPolicy interface {
	Name() string
	ShouldStop(state *State, latency float64) Decision
}

// CeilingPolicy stops at the first latency strictly above Ceiling and records
// only the curve.
type CeilingPolicy struct {
	Ceiling float64
}

func (p *CeilingPolicy) Name() string { return "ceiling" }

func (p *CeilingPolicy) ShouldStop(_ *State, latency float64) Decision {
	if latency > p.Ceiling {
		return Decision{
			Stop:    true,
			Outcome: OutcomeCeilingReached,
			Reason:  fmt.Sprintf("latency %.4f > ceiling %.2f", latency, p.Ceiling),
		}
	}
	return continueSweep()
}

// SaturationPolicy records the first rate whose latency exceeds Multiplier
// times the first-iteration baseline. A baseline above BaselineCeiling ends
// the sweep immediately at the current rate with OutcomeDegenerateBaseline.
// A positive Ceiling ends the sweep without a throughput once latency
// exceeds it.
type SaturationPolicy struct {
	Multiplier      float64
	BaselineCeiling float64
	Ceiling         float64 // <= 0 disables
}

func (p *SaturationPolicy) Name() string { return "saturation" }

func (p *SaturationPolicy) ShouldStop(state *State, latency float64) Decision {
	baseline, _ := state.Baseline()
	if !state.IsFirst() && latency > p.Multiplier*baseline {
		return Decision{
			Stop:       true,
			Outcome:    OutcomeSaturated,
			Throughput: state.Rate,
			Found:      true,
			Reason: fmt.Sprintf("latency %.4f > %.1f x baseline %.4f",
				latency, p.Multiplier, baseline),
		}
	}
	if baseline > p.BaselineCeiling {
		return Decision{
			Stop:       true,
			Outcome:    OutcomeDegenerateBaseline,
			Throughput: state.Rate,
			Found:      true,
			Reason: fmt.Sprintf("baseline %.4f > baseline ceiling %.2f",
				baseline, p.BaselineCeiling),
		}
	}
	if p.Ceiling > 0 && latency > p.Ceiling {
		return Decision{
			Stop:    true,
			Outcome: OutcomeCeilingReached,
			Reason:  fmt.Sprintf("latency %.4f > ceiling %.2f before saturation", latency, p.Ceiling),
		}
	}
	return continueSweep()
}

// BoundedLoadPolicy is CeilingPolicy plus a cap on the offered load: the
// sweep ends once the next rate would reach LoadCap.
type BoundedLoadPolicy struct {
	Ceiling float64
	LoadCap float64
}

func (p *BoundedLoadPolicy) Name() string { return "bounded" }

func (p *BoundedLoadPolicy) ShouldStop(state *State, latency float64) Decision {
	if latency > p.Ceiling {
		return Decision{
			Stop:    true,
			Outcome: OutcomeCeilingReached,
			Reason:  fmt.Sprintf("latency %.4f > ceiling %.2f", latency, p.Ceiling),
		}
	}
	if next := state.NextRate(); next >= p.LoadCap-rateEpsilon {
		return Decision{
			Stop:    true,
			Outcome: OutcomeLoadCapReached,
			Reason:  fmt.Sprintf("next rate %s reaches load cap %s", FormatRate(next), FormatRate(p.LoadCap)),
		}
	}
	return continueSweep()
}

// PolicyConfig selects and parameterizes a stop policy. Zero values take the
// defaults of the named policy; a negative Ceiling disables the saturation
// policy's safety ceiling.
type PolicyConfig struct {
	Name            string  `yaml:"name"`
	Ceiling         float64 `yaml:"ceiling,omitempty"`
	Multiplier      float64 `yaml:"multiplier,omitempty"`
	BaselineCeiling float64 `yaml:"baseline_ceiling,omitempty"`
	LoadCap         float64 `yaml:"load_cap,omitempty"`
}

// ValidStopPolicies is the set of recognized stop policy names.
// Shared by PolicyConfig.Validate() and NewStopPolicy().
var ValidStopPolicies = map[string]bool{"ceiling": true, "saturation": true, "bounded": true}

// IsValidStopPolicy reports whether name is a recognized stop policy.
func IsValidStopPolicy(name string) bool {
	return ValidStopPolicies[name]
}

// Validate checks the policy name and that explicit parameters are usable.
func (c PolicyConfig) Validate() error {
	if !IsValidStopPolicy(c.Name) {
		return fmt.Errorf("unknown stop policy %q; valid: ceiling, saturation, bounded", c.Name)
	}
	if c.Multiplier < 0 {
		return fmt.Errorf("multiplier must be non-negative, got %f", c.Multiplier)
	}
	if c.BaselineCeiling < 0 {
		return fmt.Errorf("baseline_ceiling must be non-negative, got %f", c.BaselineCeiling)
	}
	if c.Name != "saturation" && c.Ceiling < 0 {
		return fmt.Errorf("ceiling must be non-negative for policy %q, got %f", c.Name, c.Ceiling)
	}
	if c.LoadCap != 0 {
		if err := validateRate("load_cap", c.LoadCap); err != nil {
			return err
		}
	}
	return nil
}

// NewStopPolicy builds the policy described by cfg, filling in defaults.
func NewStopPolicy(cfg PolicyConfig) (StopPolicy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Name {
	case "ceiling":
		return &CeilingPolicy{Ceiling: orDefault(cfg.Ceiling, DefaultDriveCeiling)}, nil
	case "saturation":
		return &SaturationPolicy{
			Multiplier:      orDefault(cfg.Multiplier, DefaultSaturationMultiple),
			BaselineCeiling: orDefault(cfg.BaselineCeiling, DefaultBaselineCeiling),
			Ceiling:         orDefault(cfg.Ceiling, DefaultCollectCeiling),
		}, nil
	case "bounded":
		return &BoundedLoadPolicy{
			Ceiling: orDefault(cfg.Ceiling, DefaultCollectCeiling),
			LoadCap: orDefault(cfg.LoadCap, DefaultLoadCap),
		}, nil
	default:
		return nil, fmt.Errorf("unhandled stop policy %q", cfg.Name)
	}
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}
