package sweep

import (
	"fmt"
	"math"
	"sort"
	"strconv"
)

// DefaultMetric is the statistic Garnet reports for average flit latency.
const DefaultMetric = "average_flit_latency"

// rateEpsilon absorbs float noise when comparing two-decimal injection rates.
const rateEpsilon = 1e-9

// validPatterns lists the synthetic traffic patterns understood by
// garnet_synth_traffic.py.
var validPatterns = map[string]bool{
	"uniform_random": true,
	"tornado":        true,
	"bit_complement": true,
	"bit_reverse":    true,
	"bit_rotation":   true,
	"neighbor":       true,
	"shuffle":        true,
	"transpose":      true,
}

// IsValidPattern reports whether name is a recognized synthetic traffic pattern.
func IsValidPattern(name string) bool {
	return validPatterns[name]
}

// Patterns returns the recognized traffic pattern names in sorted order.
func Patterns() []string {
	names := make([]string, 0, len(validPatterns))
	for name := range validPatterns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// routingLabels names the routing algorithm selectors the way result
// directories have always been labelled.
var routingLabels = map[int]string{
	0: "ADAPT_RAND_",
	1: "UP_DN_",
	2: "Escape_VC_UP_DN_",
}

// RoutingLabel returns the directory label for a routing algorithm selector.
func RoutingLabel(alg int) string {
	if label, ok := routingLabels[alg]; ok {
		return label
	}
	return "ROUTING_" + strconv.Itoa(alg)
}

// SpinConfig holds the spin-ring deadlock recovery knobs.
type SpinConfig struct {
	Enabled       bool
	Freq          int // cycles between spins
	Mult          int // spins per turn
	UTurnCrossbar bool
	DrainAllVC    bool
}

// Arg is an extra engine argument passed through as --Name=Value.
type Arg struct {
	Name  string
	Value string
}

// SortedArgs converts a map of extra arguments into a name-sorted slice.
func SortedArgs(extra map[string]string) []Arg {
	if len(extra) == 0 {
		return nil
	}
	args := make([]Arg, 0, len(extra))
	for name, value := range extra {
		args = append(args, Arg{Name: name, Value: value})
	}
	sort.Slice(args, func(i, j int) bool { return args[i].Name < args[j].Name })
	return args
}

// RunConfig describes a single simulator invocation. Values are treated as
// immutable; WithRate returns a copy.
type RunConfig struct {
	Pattern           string
	Nodes             int
	MeshRows          int
	Topology          string // engine topology name, e.g. irregularMesh_XY
	ConfFile          string // connectivity matrix file
	SpinFile          string // spin-ring description file
	VCs               int    // virtual channels per virtual network
	InjectionRate     float64
	RoutingAlgorithm  int
	Cycles            int64
	RouterLatency     int
	InjVNet           int
	Spin              SpinConfig
	DeadlockThreshold int
	Extra             []Arg // sorted by Name
}

// WithRate returns a copy of c at the given injection rate.
func (c RunConfig) WithRate(rate float64) RunConfig {
	c.InjectionRate = roundRate(rate)
	if c.Extra != nil {
		c.Extra = append([]Arg(nil), c.Extra...)
	}
	return c
}

// Key returns the sweep key this configuration belongs to.
func (c RunConfig) Key() SweepKey {
	return SweepKey{Pattern: c.Pattern, VCs: c.VCs, Nodes: c.Nodes, ConfFile: c.ConfFile}
}

// String renders the identifying fields for diagnostics.
func (c RunConfig) String() string {
	return fmt.Sprintf("pattern=%s vcs=%d nodes=%d conf=%s rate=%s",
		c.Pattern, c.VCs, c.Nodes, c.ConfFile, FormatRate(c.InjectionRate))
}

// Validate checks that the configuration can be handed to the engine.
func (c RunConfig) Validate() error {
	if !IsValidPattern(c.Pattern) {
		return fmt.Errorf("unknown traffic pattern %q; valid: %v", c.Pattern, Patterns())
	}
	if c.Nodes <= 0 {
		return fmt.Errorf("node count must be positive, got %d", c.Nodes)
	}
	if c.MeshRows < 0 {
		return fmt.Errorf("mesh rows must be non-negative, got %d", c.MeshRows)
	}
	if c.VCs <= 0 {
		return fmt.Errorf("vcs per vnet must be positive, got %d", c.VCs)
	}
	if c.Cycles <= 0 {
		return fmt.Errorf("sim cycles must be positive, got %d", c.Cycles)
	}
	if c.RouterLatency < 1 {
		return fmt.Errorf("router latency must be >= 1, got %d", c.RouterLatency)
	}
	if c.DeadlockThreshold < 0 {
		return fmt.Errorf("deadlock threshold must be non-negative, got %d", c.DeadlockThreshold)
	}
	if err := validateRate("injection rate", c.InjectionRate); err != nil {
		return err
	}
	for i := 1; i < len(c.Extra); i++ {
		if c.Extra[i-1].Name >= c.Extra[i].Name {
			return fmt.Errorf("extra args must have unique sorted names, got %q before %q",
				c.Extra[i-1].Name, c.Extra[i].Name)
		}
	}
	return nil
}

// FormatRate renders an injection rate the way the engine and the output
// directories expect it: two-decimal fixed point.
func FormatRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', 2, 64)
}

func roundRate(rate float64) float64 {
	return math.Round(rate*100) / 100
}

// validateRate requires a finite two-decimal value in (0, 1].
func validateRate(name string, rate float64) error {
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return fmt.Errorf("%s must be a finite number, got %f", name, rate)
	}
	if rate <= 0 || rate > 1+rateEpsilon {
		return fmt.Errorf("%s must be in (0, 1], got %f", name, rate)
	}
	if math.Abs(rate-roundRate(rate)) > rateEpsilon {
		return fmt.Errorf("%s must have at most two decimals, got %v", name, rate)
	}
	return nil
}
