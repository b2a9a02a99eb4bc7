// Package experiment loads sweep campaigns from YAML experiment files and
// provides built-in presets for the standard Garnet saturation studies.
package experiment

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/garnet-sweep/garnet-sweep/sweep"
	"github.com/garnet-sweep/garnet-sweep/sweep/garnet"
	"github.com/garnet-sweep/garnet-sweep/sweep/trace"
)

// Experiment is the top-level experiment file. Loaded from YAML via Load.
type Experiment struct {
	Name          string              `yaml:"name"`
	Description   string              `yaml:"description,omitempty"`
	Engine        EngineSpec          `yaml:"engine"`
	Grid          sweep.Grid          `yaml:"grid"`
	Policy        sweep.PolicyConfig  `yaml:"policy"`
	CollectPolicy *sweep.PolicyConfig `yaml:"collect_policy,omitempty"` // nil: collect with Policy
	Matrix        MatrixSpec          `yaml:"matrix"`
	Knobs         Knobs               `yaml:"knobs"`
	ExtraArgs     map[string]string   `yaml:"extra_args,omitempty"`
	Metric        string              `yaml:"metric,omitempty"`
	Jobs          int                 `yaml:"jobs,omitempty"`
	Trace         string              `yaml:"trace,omitempty"`
}

// EngineSpec locates the simulator and the output root.
type EngineSpec struct {
	Binary     string        `yaml:"binary"`
	Script     string        `yaml:"script"`
	WorkDir    string        `yaml:"work_dir,omitempty"`
	OutputRoot string        `yaml:"output_root"`
	Timeout    time.Duration `yaml:"timeout,omitempty"` // per run; 0 = unlimited
}

// MatrixSpec is the cross product of sweeps to run.
type MatrixSpec struct {
	Patterns   []string         `yaml:"patterns"`
	VCs        []int            `yaml:"vcs"`
	Topologies []sweep.Topology `yaml:"topologies"`
}

// Knobs are the engine settings shared by every run of the experiment.
type Knobs struct {
	Topology          string   `yaml:"topology"`
	RoutingAlgorithm  int      `yaml:"routing_algorithm"`
	Cycles            int64    `yaml:"cycles"`
	RouterLatency     int      `yaml:"router_latency"`
	InjVNet           int      `yaml:"inj_vnet"`
	Spin              SpinSpec `yaml:"spin"`
	DeadlockThreshold int      `yaml:"deadlock_threshold"`
}

// SpinSpec configures spin-ring deadlock recovery.
type SpinSpec struct {
	Enabled       bool `yaml:"enabled"`
	Freq          int  `yaml:"freq"`
	Mult          int  `yaml:"mult"`
	UTurnCrossbar bool `yaml:"uturn_crossbar"`
	DrainAllVC    bool `yaml:"drain_all_vc"`
}

// Default returns an experiment with the standard engine paths and knobs and
// an empty matrix.
func Default() *Experiment {
	return &Experiment{
		Name: "default",
		Engine: EngineSpec{
			Binary:     garnet.DefaultBinary,
			Script:     garnet.DefaultScript,
			OutputRoot: "results",
		},
		Grid:   sweep.DefaultGrid(),
		Policy: sweep.PolicyConfig{Name: "saturation"},
		Knobs: Knobs{
			Topology:          "irregularMesh_XY",
			Cycles:            10000,
			RouterLatency:     1,
			Spin:              SpinSpec{Enabled: true, Freq: 1024, Mult: 1, UTurnCrossbar: true},
			DeadlockThreshold: 50000,
		},
		Metric: sweep.DefaultMetric,
		Jobs:   1,
		Trace:  string(trace.TraceLevelDecisions),
	}
}

// Load reads an experiment file. Keys absent from the file keep their
// Default values; unknown keys are rejected.
func Load(path string) (*Experiment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading experiment: %w", err)
	}
	return Parse(data)
}

// Parse decodes an experiment from YAML with strict field checking.
func Parse(data []byte) (*Experiment, error) {
	exp := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(exp); err != nil {
		return nil, fmt.Errorf("parsing experiment: %w", err)
	}
	return exp, nil
}

// Marshal renders the experiment as YAML.
func (e *Experiment) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(e); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Validate checks every field and names the offending path on error.
func (e *Experiment) Validate() error {
	if e.Engine.Binary == "" {
		return fmt.Errorf("engine.binary must be set")
	}
	if e.Engine.Script == "" {
		return fmt.Errorf("engine.script must be set")
	}
	if e.Engine.OutputRoot == "" {
		return fmt.Errorf("engine.output_root must be set")
	}
	if e.Engine.Timeout < 0 {
		return fmt.Errorf("engine.timeout must be non-negative, got %v", e.Engine.Timeout)
	}
	if err := e.Grid.Validate(); err != nil {
		return fmt.Errorf("grid: %w", err)
	}
	if err := e.Policy.Validate(); err != nil {
		return fmt.Errorf("policy: %w", err)
	}
	if e.CollectPolicy != nil {
		if err := e.CollectPolicy.Validate(); err != nil {
			return fmt.Errorf("collect_policy: %w", err)
		}
	}
	if err := e.Matrix.validate(); err != nil {
		return err
	}
	if err := e.Knobs.validate(); err != nil {
		return err
	}
	for name := range e.ExtraArgs {
		if name == "" {
			return fmt.Errorf("extra_args: empty argument name")
		}
	}
	if e.Jobs < 0 {
		return fmt.Errorf("jobs must be non-negative, got %d", e.Jobs)
	}
	if !trace.IsValidTraceLevel(e.Trace) {
		return fmt.Errorf("unknown trace level %q; valid: none, decisions", e.Trace)
	}
	return nil
}

func (m MatrixSpec) validate() error {
	if len(m.Patterns) == 0 {
		return fmt.Errorf("matrix.patterns must not be empty")
	}
	for i, p := range m.Patterns {
		if !sweep.IsValidPattern(p) {
			return fmt.Errorf("matrix.patterns[%d]: unknown traffic pattern %q; valid: %v", i, p, sweep.Patterns())
		}
	}
	if len(m.VCs) == 0 {
		return fmt.Errorf("matrix.vcs must not be empty")
	}
	for i, v := range m.VCs {
		if v <= 0 {
			return fmt.Errorf("matrix.vcs[%d] must be positive, got %d", i, v)
		}
	}
	if len(m.Topologies) == 0 {
		return fmt.Errorf("matrix.topologies must not be empty")
	}
	for i, t := range m.Topologies {
		prefix := fmt.Sprintf("matrix.topologies[%d]", i)
		if t.Nodes <= 0 {
			return fmt.Errorf("%s.nodes must be positive, got %d", prefix, t.Nodes)
		}
		if t.Rows < 0 {
			return fmt.Errorf("%s.rows must be non-negative, got %d", prefix, t.Rows)
		}
		if t.ConfFile == "" {
			return fmt.Errorf("%s.conf_file must be set", prefix)
		}
	}
	return nil
}

func (k Knobs) validate() error {
	if k.Topology == "" {
		return fmt.Errorf("knobs.topology must be set")
	}
	if k.Cycles <= 0 {
		return fmt.Errorf("knobs.cycles must be positive, got %d", k.Cycles)
	}
	if k.RouterLatency < 1 {
		return fmt.Errorf("knobs.router_latency must be >= 1, got %d", k.RouterLatency)
	}
	if k.DeadlockThreshold < 0 {
		return fmt.Errorf("knobs.deadlock_threshold must be non-negative, got %d", k.DeadlockThreshold)
	}
	if k.Spin.Enabled && k.Spin.Freq <= 0 {
		return fmt.Errorf("knobs.spin.freq must be positive when spin is enabled, got %d", k.Spin.Freq)
	}
	if k.Spin.Enabled && k.Spin.Mult <= 0 {
		return fmt.Errorf("knobs.spin.mult must be positive when spin is enabled, got %d", k.Spin.Mult)
	}
	return nil
}

// BaseConfig returns the RunConfig every sweep starts from, before the
// matrix fills in pattern, VCs and topology.
func (e *Experiment) BaseConfig() sweep.RunConfig {
	return sweep.RunConfig{
		Topology:         e.Knobs.Topology,
		InjectionRate:    e.Grid.Start,
		RoutingAlgorithm: e.Knobs.RoutingAlgorithm,
		Cycles:           e.Knobs.Cycles,
		RouterLatency:    e.Knobs.RouterLatency,
		InjVNet:          e.Knobs.InjVNet,
		Spin: sweep.SpinConfig{
			Enabled:       e.Knobs.Spin.Enabled,
			Freq:          e.Knobs.Spin.Freq,
			Mult:          e.Knobs.Spin.Mult,
			UTurnCrossbar: e.Knobs.Spin.UTurnCrossbar,
			DrainAllVC:    e.Knobs.Spin.DrainAllVC,
		},
		DeadlockThreshold: e.Knobs.DeadlockThreshold,
		Extra:             sweep.SortedArgs(e.ExtraArgs),
	}
}

// PolicyFor returns the stop policy configuration used in mode.
func (e *Experiment) PolicyFor(mode sweep.Mode) sweep.PolicyConfig {
	if mode == sweep.ModeCollect && e.CollectPolicy != nil {
		return *e.CollectPolicy
	}
	return e.Policy
}

// Sweeps expands the matrix into one sweep per (topology, pattern, VCs).
func (e *Experiment) Sweeps(mode sweep.Mode) ([]sweep.Sweep, error) {
	policy, err := sweep.NewStopPolicy(e.PolicyFor(mode))
	if err != nil {
		return nil, fmt.Errorf("%s policy: %w", mode, err)
	}
	matrix := sweep.Matrix{Patterns: e.Matrix.Patterns, VCs: e.Matrix.VCs, Topologies: e.Matrix.Topologies}
	return matrix.Sweeps(sweep.Sweep{
		Base:   e.BaseConfig(),
		Grid:   e.Grid,
		Policy: policy,
		Metric: e.Metric,
	}), nil
}

// Campaign validates the experiment and builds the campaign for mode.
func (e *Experiment) Campaign(id string, mode sweep.Mode) (sweep.Campaign, error) {
	if err := e.Validate(); err != nil {
		return sweep.Campaign{}, err
	}
	sweeps, err := e.Sweeps(mode)
	if err != nil {
		return sweep.Campaign{}, err
	}
	c := sweep.Campaign{ID: id, Mode: mode, Sweeps: sweeps, Jobs: e.Jobs}
	if err := c.Validate(); err != nil {
		return sweep.Campaign{}, err
	}
	return c, nil
}

// Layout returns the output layout rooted at engine.output_root.
func (e *Experiment) Layout() sweep.Layout {
	return sweep.Layout{Root: e.Engine.OutputRoot}
}

// GarnetEngine returns the engine described by the experiment.
func (e *Experiment) GarnetEngine() garnet.Engine {
	return garnet.Engine{Binary: e.Engine.Binary, Script: e.Engine.Script, WorkDir: e.Engine.WorkDir}
}

// TraceLevel returns the configured trace level, defaulting to none.
func (e *Experiment) TraceLevel() trace.TraceLevel {
	if e.Trace == "" {
		return trace.TraceLevelNone
	}
	return trace.TraceLevel(e.Trace)
}
