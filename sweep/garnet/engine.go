// Package garnet adapts the sweep driver to gem5's Garnet standalone build:
// it renders RunConfigs into garnet_synth_traffic.py command lines, runs the
// simulator binary, and reads metrics back from its stats output.
package garnet

import (
	"strconv"

	"github.com/garnet-sweep/garnet-sweep/sweep"
)

// Defaults match a gem5 checkout built with the Garnet_standalone target.
const (
	DefaultBinary = "build/Garnet_standalone/gem5.opt"
	DefaultScript = "configs/example/garnet_synth_traffic.py"
	networkModel  = "garnet2.0"
)

// Engine locates the simulator binary and its synthetic-traffic script.
type Engine struct {
	Binary  string
	Script  string
	WorkDir string // directory the binary runs in; empty means the current one
}

// DefaultEngine returns an Engine using the standard gem5 build paths.
func DefaultEngine() Engine {
	return Engine{Binary: DefaultBinary, Script: DefaultScript}
}

// CommandLine returns the arguments (without the binary) that run cfg with
// outDir as the gem5 output directory. Extra args whose name matches a
// built-in flag replace it in place; the rest are appended in name order.
func (e Engine) CommandLine(cfg sweep.RunConfig, outDir string) []string {
	flags := []sweep.Arg{
		{Name: "topology", Value: cfg.Topology},
		{Name: "num-cpus", Value: strconv.Itoa(cfg.Nodes)},
		{Name: "num-dirs", Value: strconv.Itoa(cfg.Nodes)},
		{Name: "mesh-rows", Value: strconv.Itoa(cfg.MeshRows)},
		{Name: "network", Value: networkModel},
		{Name: "router-latency", Value: strconv.Itoa(cfg.RouterLatency)},
		{Name: "sim-cycles", Value: strconv.FormatInt(cfg.Cycles, 10)},
		{Name: "spin", Value: flagInt(cfg.Spin.Enabled)},
		{Name: "conf-file", Value: cfg.ConfFile},
	}
	if cfg.Spin.Enabled {
		flags = append(flags,
			sweep.Arg{Name: "spin-file", Value: cfg.SpinFile},
			sweep.Arg{Name: "spin-freq", Value: strconv.Itoa(cfg.Spin.Freq)},
			sweep.Arg{Name: "spin-mult", Value: strconv.Itoa(cfg.Spin.Mult)},
		)
	}
	flags = append(flags,
		sweep.Arg{Name: "uTurn-crossbar", Value: flagInt(cfg.Spin.UTurnCrossbar)},
		sweep.Arg{Name: "drain-all-vc", Value: flagInt(cfg.Spin.DrainAllVC)},
		sweep.Arg{Name: "inj-vnet", Value: strconv.Itoa(cfg.InjVNet)},
		sweep.Arg{Name: "vcs-per-vnet", Value: strconv.Itoa(cfg.VCs)},
		sweep.Arg{Name: "injectionrate", Value: sweep.FormatRate(cfg.InjectionRate)},
		sweep.Arg{Name: "synthetic", Value: cfg.Pattern},
		sweep.Arg{Name: "routing-algorithm", Value: strconv.Itoa(cfg.RoutingAlgorithm)},
	)
	if cfg.DeadlockThreshold > 0 {
		flags = append(flags, sweep.Arg{Name: "garnet-deadlock-threshold", Value: strconv.Itoa(cfg.DeadlockThreshold)})
	}

	index := make(map[string]int, len(flags))
	for i, f := range flags {
		index[f.Name] = i
	}
	for _, extra := range cfg.Extra {
		if i, ok := index[extra.Name]; ok {
			flags[i].Value = extra.Value
			continue
		}
		flags = append(flags, extra)
	}

	args := make([]string, 0, len(flags)+3)
	args = append(args, "-d", outDir, e.Script)
	for _, f := range flags {
		args = append(args, "--"+f.Name+"="+f.Value)
	}
	return args
}

func flagInt(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
