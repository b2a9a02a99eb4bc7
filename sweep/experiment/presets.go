package experiment

import (
	"fmt"
	"math"
	"sort"

	"github.com/garnet-sweep/garnet-sweep/sweep"
)

var standardPatterns = []string{"bit_rotation", "shuffle", "transpose"}

// DefaultConfFile names the fully connected connectivity matrix of an
// n-node network, as shipped in the gem5 tree.
func DefaultConfFile(nodes int) string {
	return fmt.Sprintf("%d_nodes-connectivity_matrix_0-links_removed_0.txt", nodes)
}

// DefaultTopology is the square n-node mesh with its default connectivity
// matrix; rows is the integer square root of nodes.
func DefaultTopology(nodes int) sweep.Topology {
	return sweep.Topology{Nodes: nodes, Rows: int(math.Sqrt(float64(nodes))), ConfFile: DefaultConfFile(nodes)}
}

// presets maps preset names to constructors. Each call returns a fresh copy.
var presets = map[string]func() *Experiment{
	"sat-thrpt":   satThrpt,
	"ae-sc2021":   aeSC2021,
	"drain-table": drainTable,
}

// PresetNames returns the built-in preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preset returns a copy of the named built-in experiment.
func Preset(name string) (*Experiment, error) {
	build, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("unknown preset %q; valid: %v", name, PresetNames())
	}
	return build(), nil
}

// satThrpt finds the saturation throughput of every pattern on 16, 64 and
// 256-node irregular meshes at 1, 2 and 4 VCs.
func satThrpt() *Experiment {
	e := Default()
	e.Name = "sat-thrpt"
	e.Description = "saturation throughput: first rate with latency above 6x the low-load baseline"
	e.Engine.OutputRoot = "results_sat_thrpt"
	e.Policy = sweep.PolicyConfig{Name: "saturation"}
	e.Matrix = MatrixSpec{
		Patterns:   append([]string(nil), standardPatterns...),
		VCs:        []int{1, 2, 4},
		Topologies: []sweep.Topology{DefaultTopology(16), DefaultTopology(64), DefaultTopology(256)},
	}
	return e
}

// aeSC2021 drives 64-node runs up to a latency of 70 cycles, then reads the
// curves back with a 200-cycle ceiling.
func aeSC2021() *Experiment {
	e := Default()
	e.Name = "ae-sc2021"
	e.Description = "latency-vs-load curves: drive to 70 cycles, collect to 200"
	e.Policy = sweep.PolicyConfig{Name: "ceiling", Ceiling: sweep.DefaultDriveCeiling}
	e.CollectPolicy = &sweep.PolicyConfig{Name: "ceiling", Ceiling: sweep.DefaultCollectCeiling}
	e.Matrix = MatrixSpec{
		Patterns:   append([]string(nil), standardPatterns...),
		VCs:        []int{4},
		Topologies: []sweep.Topology{DefaultTopology(64)},
	}
	return e
}

// drainTable runs the table-routed spin-scheme build, bounded to offered
// loads below 0.42.
func drainTable() *Experiment {
	e := Default()
	e.Name = "drain-table"
	e.Description = "table routing with the spin scheme, bounded by latency 200 and load 0.42"
	e.Engine.OutputRoot = "results_drain"
	e.Policy = sweep.PolicyConfig{Name: "bounded", Ceiling: sweep.DefaultCollectCeiling, LoadCap: sweep.DefaultLoadCap}
	e.Matrix = MatrixSpec{
		Patterns:   []string{"uniform_random", "shuffle", "transpose"},
		VCs:        []int{1},
		Topologies: []sweep.Topology{DefaultTopology(64)},
	}
	e.Knobs.Cycles = 100000
	// Spin rings off; the engine keeps its U-turn crossbar default.
	e.Knobs.Spin = SpinSpec{UTurnCrossbar: true}
	e.Knobs.DeadlockThreshold = 0
	e.ExtraArgs = map[string]string{
		"sim-type":                 "1",
		"enable-spin-scheme":       "1",
		"dd-thresh":                "128",
		"routing-algorithm":        "table",
		"max-turn-capacity":        "40",
		"enable-variable-dd":       "0",
		"enable-rotating-priority": "1",
	}
	return e
}
