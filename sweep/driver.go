package sweep

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/garnet-sweep/garnet-sweep/sweep/trace"
)

// Simulator runs one configuration to completion and returns the location
// of its output. Run blocks until the external process has exited.
type Simulator interface {
	Run(ctx context.Context, cfg RunConfig) (location string, err error)
}

// LogReader reads results back from simulator output locations.
type LogReader interface {
	Exists(location string) (bool, error)
	// Metric returns the value of the single line naming metric. A missing,
	// duplicated or malformed line is a *MetricParseError.
	Metric(location, metric string) (float64, error)
}

// Sweep is everything needed to probe one (pattern, VCs, topology) tuple at
// increasing load.
type Sweep struct {
	Base   RunConfig // InjectionRate is overwritten per iteration
	Grid   Grid
	Policy StopPolicy
	Metric string
}

// Key returns the campaign key of the sweep.
func (s Sweep) Key() SweepKey {
	return s.Base.Key()
}

// Validate checks the sweep before any simulator run.
func (s Sweep) Validate() error {
	if s.Policy == nil {
		return fmt.Errorf("sweep %s: no stop policy", s.Key())
	}
	if err := s.Grid.Validate(); err != nil {
		return fmt.Errorf("sweep %s: %w", s.Key(), err)
	}
	if err := s.Base.WithRate(s.Grid.Start).Validate(); err != nil {
		return fmt.Errorf("sweep %s: %w", s.Key(), err)
	}
	return nil
}

func (s Sweep) metric() string {
	if s.Metric == "" {
		return DefaultMetric
	}
	return s.Metric
}

// Driver runs sweeps against a Simulator and a LogReader.
type Driver struct {
	sim       Simulator
	reader    LogReader
	layout    Layout
	observers Observers
	traceCfg  trace.TraceConfig
}

// NewDriver creates a Driver. sim may be nil for a collection-only driver;
// layout locates outputs in collection mode.
func NewDriver(sim Simulator, reader LogReader, layout Layout, observers ...Observer) *Driver {
	return &Driver{
		sim:       sim,
		reader:    reader,
		layout:    layout,
		observers: observers,
		traceCfg:  trace.TraceConfig{Level: trace.TraceLevelDecisions},
	}
}

// WithTraceLevel sets how much of each sweep's decision history is kept.
func (d *Driver) WithTraceLevel(level trace.TraceLevel) *Driver {
	d.traceCfg.Level = level
	return d
}

// RunSweep drives the simulator at increasing load until the sweep's policy
// stops it. Every failure aborts the sweep and is returned as a *RunError
// naming the configuration; the partial Result is returned alongside.
func (d *Driver) RunSweep(ctx context.Context, sw Sweep) (*Result, error) {
	if d.sim == nil {
		return nil, errors.New("drive mode requires a simulator")
	}
	return d.run(ctx, sw, ModeDrive, d.drive)
}

// Collect walks the outputs of an earlier drive pass without invoking the
// simulator. A missing output ends the sweep with OutcomeNoData.
func (d *Driver) Collect(ctx context.Context, sw Sweep) (*Result, error) {
	return d.run(ctx, sw, ModeCollect, d.collect)
}

// probeFunc returns the sample for cfg; ok=false marks missing data.
type probeFunc func(ctx context.Context, cfg RunConfig, metric string) (sample Sample, ok bool, err error)

func (d *Driver) drive(ctx context.Context, cfg RunConfig, metric string) (Sample, bool, error) {
	location, err := d.sim.Run(ctx, cfg)
	if err != nil {
		var invErr *InvocationError
		if !errors.As(err, &invErr) {
			err = &InvocationError{ExitCode: -1, Err: err}
		}
		return Sample{}, false, err
	}
	exists, err := d.reader.Exists(location)
	if err != nil {
		return Sample{}, false, err
	}
	if !exists {
		return Sample{}, false, &MissingOutputError{Location: location}
	}
	latency, err := d.reader.Metric(location, metric)
	if err != nil {
		return Sample{}, false, err
	}
	return Sample{Rate: cfg.InjectionRate, Latency: latency, Location: location}, true, nil
}

func (d *Driver) collect(_ context.Context, cfg RunConfig, metric string) (Sample, bool, error) {
	location := d.layout.Dir(cfg)
	exists, err := d.reader.Exists(location)
	if err != nil {
		return Sample{}, false, err
	}
	if !exists {
		return Sample{Rate: cfg.InjectionRate, Latency: math.Inf(1), Location: location}, false, nil
	}
	latency, err := d.reader.Metric(location, metric)
	if err != nil {
		return Sample{}, false, err
	}
	return Sample{Rate: cfg.InjectionRate, Latency: latency, Location: location}, true, nil
}

func (d *Driver) run(ctx context.Context, sw Sweep, mode Mode, probe probeFunc) (*Result, error) {
	key := sw.Key()
	result := &Result{
		Key:   key,
		Mode:  mode,
		Trace: trace.NewSweepTrace(d.traceCfg),
	}
	if sw.Policy != nil {
		result.Policy = sw.Policy.Name()
	}
	if err := sw.Validate(); err != nil {
		return d.fail(result, err)
	}

	state := NewState(sw.Grid)
	logrus.Infof("Starting %s sweep %s with policy %s", mode, key, result.Policy)

	for i := 1; ; i++ {
		rate := sw.Grid.Rate(i)
		if sw.Grid.Exhausted(rate) {
			result.Outcome = OutcomeExhausted
			result.Trace.RecordDecision(trace.DecisionRecord{
				Iteration: i, Rate: rate, Stop: true, Outcome: string(OutcomeExhausted),
				Reason: fmt.Sprintf("rate %s exceeds grid max %s", FormatRate(rate), FormatRate(sw.Grid.MaxRate)),
			})
			break
		}
		if err := ctx.Err(); err != nil {
			return d.fail(result, err)
		}

		cfg := sw.Base.WithRate(rate)
		sample, ok, err := probe(ctx, cfg, sw.metric())
		if err != nil {
			return d.fail(result, &RunError{Config: cfg, Err: err})
		}
		result.Curve = append(result.Curve, sample)
		d.observers.OnSample(key, cfg, sample)

		if !ok {
			result.Outcome = OutcomeNoData
			result.Trace.RecordDecision(trace.DecisionRecord{
				Iteration: i, Rate: rate, Latency: sample.Latency, Stop: true,
				Outcome: string(OutcomeNoData), Reason: "no output at " + sample.Location,
			})
			break
		}

		state.Observe(i, rate, sample.Latency)
		decision := sw.Policy.ShouldStop(state, sample.Latency)
		logrus.Debugf("%s rate=%s latency=%.4f: %s", key, FormatRate(rate), sample.Latency, decision.Reason)
		result.Trace.RecordDecision(trace.DecisionRecord{
			Iteration: i, Rate: rate, Latency: sample.Latency, Stop: decision.Stop,
			Outcome: string(decision.Outcome), Reason: decision.Reason,
		})
		if decision.Stop {
			result.Outcome = decision.Outcome
			result.Throughput = decision.Throughput
			result.Found = decision.Found
			break
		}
	}

	result.Baseline, _ = state.Baseline()
	d.observers.OnResult(result)
	return result, nil
}

func (d *Driver) fail(result *Result, err error) (*Result, error) {
	result.Outcome = OutcomeFailed
	result.Err = err
	d.observers.OnResult(result)
	return result, err
}
