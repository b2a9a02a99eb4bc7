package cmd

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/garnet-sweep/garnet-sweep/sweep"
	"github.com/garnet-sweep/garnet-sweep/sweep/experiment"
)

// Environment variables consulted when neither the experiment nor a flag
// names the engine paths.
const (
	envBinary = "GARNET_SWEEP_BINARY"
	envScript = "GARNET_SWEEP_SCRIPT"
	envOut    = "GARNET_SWEEP_OUT"
)

// experimentFlags holds every flag that can override an experiment field,
// plus the output sinks.
type experimentFlags struct {
	experimentPath string // YAML experiment file
	preset         string // Built-in experiment name

	// Matrix
	patterns  []string
	vcs       []int
	nodes     []int
	rows      []int
	confFiles []string
	spinFiles []string

	// Engine
	binary     string
	script     string
	workDir    string
	outputRoot string
	timeout    time.Duration

	// Grid and policy
	start           float64
	step            float64
	maxRate         float64
	policy          string
	ceiling         float64
	multiplier      float64
	baselineCeiling float64
	loadCap         float64
	collectPolicy   string
	collectCeiling  float64

	// Knobs
	topology          string
	routingAlgorithm  int
	cycles            int64
	routerLatency     int
	spin              bool
	spinFreq          int
	spinMult          int
	deadlockThreshold int
	ddThresh          int
	extraArgs         map[string]string

	metric     string
	jobs       int
	traceLevel string

	// Sinks
	campaignID  string
	curvesCSV   string
	summaryPath string
	recordPath  string
	mqttBroker  string
	mqttPrefix  string
	monitorPort int
}

func (f *experimentFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.experimentPath, "experiment", "", "Path to YAML experiment file")
	fl.StringVar(&f.preset, "preset", "", "Built-in experiment (see 'garnet-sweep presets')")

	fl.StringSliceVar(&f.patterns, "patterns", nil, "Comma-separated synthetic traffic patterns")
	fl.IntSliceVar(&f.vcs, "vcs", nil, "Comma-separated VCs-per-vnet values")
	fl.IntSliceVar(&f.nodes, "nodes", nil, "Comma-separated node counts; each becomes a square mesh topology")
	fl.IntSliceVar(&f.rows, "rows", nil, "Mesh rows per --nodes entry (default: square root of nodes)")
	fl.StringSliceVar(&f.confFiles, "conf-file", nil, "Connectivity matrix per --nodes entry")
	fl.StringSliceVar(&f.spinFiles, "spin-file", nil, "Spin-ring file per --nodes entry")

	fl.StringVar(&f.binary, "binary", "", "gem5 binary (env "+envBinary+")")
	fl.StringVar(&f.script, "script", "", "Garnet synthetic traffic script (env "+envScript+")")
	fl.StringVar(&f.workDir, "work-dir", "", "Directory the simulator runs in")
	fl.StringVar(&f.outputRoot, "out", "", "Output root directory (env "+envOut+")")
	fl.DurationVar(&f.timeout, "timeout", 0, "Per-run simulator timeout (0 = unlimited)")

	fl.Float64Var(&f.start, "start", 0, "First injection rate")
	fl.Float64Var(&f.step, "step", 0, "Injection rate increment")
	fl.Float64Var(&f.maxRate, "max-rate", 0, "Highest injection rate a sweep may reach")
	fl.StringVar(&f.policy, "policy", "", "Stop policy: ceiling, saturation, bounded")
	fl.Float64Var(&f.ceiling, "ceiling", 0, "Latency ceiling in cycles (saturation: negative disables)")
	fl.Float64Var(&f.multiplier, "multiplier", 0, "Saturation multiple of the baseline latency")
	fl.Float64Var(&f.baselineCeiling, "baseline-ceiling", 0, "Baseline latency above which a sweep is degenerate")
	fl.Float64Var(&f.loadCap, "load-cap", 0, "Injection rate the bounded policy stops before")
	fl.StringVar(&f.collectPolicy, "collect-policy", "", "Stop policy for the collection pass")
	fl.Float64Var(&f.collectCeiling, "collect-ceiling", 0, "Latency ceiling for the collection pass")

	fl.StringVar(&f.topology, "topology", "", "gem5 topology name")
	fl.IntVar(&f.routingAlgorithm, "routing-algorithm", 0, "Routing algorithm index")
	fl.Int64Var(&f.cycles, "cycles", 0, "Simulated cycles per run")
	fl.IntVar(&f.routerLatency, "router-latency", 0, "Router pipeline latency")
	fl.BoolVar(&f.spin, "spin", true, "Enable spin-ring deadlock recovery")
	fl.IntVar(&f.spinFreq, "spin-freq", 0, "Spin frequency")
	fl.IntVar(&f.spinMult, "spin-mult", 0, "Spin multiplier")
	fl.IntVar(&f.deadlockThreshold, "deadlock-threshold", 0, "Garnet deadlock threshold (0 omits the flag)")
	fl.IntVar(&f.ddThresh, "dd-thresh", 0, "Deadlock-detection threshold passed as --dd-thresh")
	fl.StringToStringVar(&f.extraArgs, "arg", nil, "Extra engine argument name=value (repeatable)")

	fl.StringVar(&f.metric, "metric", "", "Stats line holding the latency metric")
	fl.IntVar(&f.jobs, "jobs", 0, "Sweeps run concurrently")
	fl.StringVar(&f.traceLevel, "trace-level", "", "Decision trace level: none, decisions")

	fl.StringVar(&f.campaignID, "campaign-id", "", "Campaign identifier (default: generated)")
	fl.StringVar(&f.curvesCSV, "curves-csv", "", "Write every sample to this CSV file")
	fl.StringVar(&f.summaryPath, "summary", "", "Write a YAML campaign summary to this file")
	fl.StringVar(&f.recordPath, "record", "", "Record samples and results into this SQLite database")
	fl.StringVar(&f.mqttBroker, "mqtt-broker", "", "Publish samples to this MQTT broker (tcp://host:port)")
	fl.StringVar(&f.mqttPrefix, "mqtt-prefix", "", "MQTT topic prefix")
	fl.IntVar(&f.monitorPort, "monitor-port", -1, "Serve campaign progress over HTTP on this port (0 = any free port, -1 = off)")
}

// load builds the experiment from the preset or file, then applies
// environment defaults and every flag the user set.
func (f *experimentFlags) load(cmd *cobra.Command) (*experiment.Experiment, error) {
	if f.preset != "" && f.experimentPath != "" {
		return nil, fmt.Errorf("--preset and --experiment are mutually exclusive")
	}

	var exp *experiment.Experiment
	var err error
	switch {
	case f.preset != "":
		exp, err = experiment.Preset(f.preset)
	case f.experimentPath != "":
		exp, err = experiment.Load(f.experimentPath)
	default:
		exp = experiment.Default()
	}
	if err != nil {
		return nil, err
	}

	applyEnv(exp)
	if err := f.overlay(cmd, exp); err != nil {
		return nil, err
	}
	if err := exp.Validate(); err != nil {
		return nil, err
	}
	return exp, nil
}

func applyEnv(exp *experiment.Experiment) {
	def := experiment.Default()
	if v := os.Getenv(envBinary); v != "" && exp.Engine.Binary == def.Engine.Binary {
		exp.Engine.Binary = v
	}
	if v := os.Getenv(envScript); v != "" && exp.Engine.Script == def.Engine.Script {
		exp.Engine.Script = v
	}
	if v := os.Getenv(envOut); v != "" && exp.Engine.OutputRoot == def.Engine.OutputRoot {
		exp.Engine.OutputRoot = v
	}
}

func (f *experimentFlags) overlay(cmd *cobra.Command, exp *experiment.Experiment) error {
	changed := cmd.Flags().Changed

	if changed("patterns") {
		exp.Matrix.Patterns = f.patterns
	}
	if changed("vcs") {
		exp.Matrix.VCs = f.vcs
	}
	if changed("nodes") {
		topos, err := f.topologies()
		if err != nil {
			return err
		}
		exp.Matrix.Topologies = topos
	} else if changed("rows") || changed("conf-file") || changed("spin-file") {
		return fmt.Errorf("--rows, --conf-file and --spin-file require --nodes")
	}

	if changed("binary") {
		exp.Engine.Binary = f.binary
	}
	if changed("script") {
		exp.Engine.Script = f.script
	}
	if changed("work-dir") {
		exp.Engine.WorkDir = f.workDir
	}
	if changed("out") {
		exp.Engine.OutputRoot = f.outputRoot
	}
	if changed("timeout") {
		exp.Engine.Timeout = f.timeout
	}

	if changed("start") {
		exp.Grid.Start = f.start
	}
	if changed("step") {
		exp.Grid.Step = f.step
	}
	if changed("max-rate") {
		exp.Grid.MaxRate = f.maxRate
	}
	if changed("policy") && f.policy != exp.Policy.Name {
		// Parameters of a different policy do not carry over.
		exp.Policy = sweep.PolicyConfig{Name: f.policy}
	}
	if changed("ceiling") {
		exp.Policy.Ceiling = f.ceiling
	}
	if changed("multiplier") {
		exp.Policy.Multiplier = f.multiplier
	}
	if changed("baseline-ceiling") {
		exp.Policy.BaselineCeiling = f.baselineCeiling
	}
	if changed("load-cap") {
		exp.Policy.LoadCap = f.loadCap
	}
	if changed("collect-policy") || changed("collect-ceiling") {
		cp := exp.PolicyFor(sweep.ModeCollect)
		if changed("collect-policy") && f.collectPolicy != cp.Name {
			cp = sweep.PolicyConfig{Name: f.collectPolicy}
		}
		if changed("collect-ceiling") {
			cp.Ceiling = f.collectCeiling
		}
		exp.CollectPolicy = &cp
	}

	if changed("topology") {
		exp.Knobs.Topology = f.topology
	}
	if changed("routing-algorithm") {
		exp.Knobs.RoutingAlgorithm = f.routingAlgorithm
	}
	if changed("cycles") {
		exp.Knobs.Cycles = f.cycles
	}
	if changed("router-latency") {
		exp.Knobs.RouterLatency = f.routerLatency
	}
	if changed("spin") {
		exp.Knobs.Spin.Enabled = f.spin
	}
	if changed("spin-freq") {
		exp.Knobs.Spin.Freq = f.spinFreq
	}
	if changed("spin-mult") {
		exp.Knobs.Spin.Mult = f.spinMult
	}
	if changed("deadlock-threshold") {
		exp.Knobs.DeadlockThreshold = f.deadlockThreshold
	}
	if changed("dd-thresh") || changed("arg") {
		merged := make(map[string]string, len(exp.ExtraArgs)+len(f.extraArgs)+1)
		for k, v := range exp.ExtraArgs {
			merged[k] = v
		}
		for k, v := range f.extraArgs {
			merged[k] = v
		}
		if changed("dd-thresh") {
			merged["dd-thresh"] = strconv.Itoa(f.ddThresh)
		}
		exp.ExtraArgs = merged
	}

	if changed("metric") {
		exp.Metric = f.metric
	}
	if changed("jobs") {
		exp.Jobs = f.jobs
	}
	if changed("trace-level") {
		exp.Trace = f.traceLevel
	}
	return nil
}

// topologies zips --nodes with the optional per-node lists.
func (f *experimentFlags) topologies() ([]sweep.Topology, error) {
	n := len(f.nodes)
	lists := []struct {
		name string
		len  int
	}{{"rows", len(f.rows)}, {"conf-file", len(f.confFiles)}, {"spin-file", len(f.spinFiles)}}
	for _, l := range lists {
		if l.len != 0 && l.len != n {
			return nil, fmt.Errorf("--%s has %d entries, --nodes has %d", l.name, l.len, n)
		}
	}
	topos := make([]sweep.Topology, n)
	for i, nodes := range f.nodes {
		topos[i] = experiment.DefaultTopology(nodes)
		if len(f.rows) > 0 {
			topos[i].Rows = f.rows[i]
		}
		if len(f.confFiles) > 0 {
			topos[i].ConfFile = f.confFiles[i]
		}
		if len(f.spinFiles) > 0 {
			topos[i].SpinFile = f.spinFiles[i]
		}
	}
	return topos, nil
}
