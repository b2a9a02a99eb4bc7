package sweep_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garnet-sweep/garnet-sweep/sweep"
	"github.com/garnet-sweep/garnet-sweep/sweep/internal/testutil"
	"github.com/garnet-sweep/garnet-sweep/sweep/trace"
)

func mustPolicy(t *testing.T, cfg sweep.PolicyConfig) sweep.StopPolicy {
	t.Helper()
	p, err := sweep.NewStopPolicy(cfg)
	require.NoError(t, err)
	return p
}

func newSweep(t *testing.T, policy string) sweep.Sweep {
	t.Helper()
	return sweep.Sweep{
		Base:   testutil.BaseConfig(),
		Grid:   sweep.DefaultGrid(),
		Policy: mustPolicy(t, sweep.PolicyConfig{Name: policy}),
	}
}

func ratesUpTo(n int) []float64 {
	rates := make([]float64, n)
	for i := range rates {
		rates[i] = math.Round(float64(i+1)*2) / 100
	}
	return rates
}

func constant(v float64) testutil.LatencyFunc {
	return func(float64) float64 { return v }
}

// recorder captures observer notifications.
type recorder struct {
	samples []sweep.Sample
	results []*sweep.Result
}

func (r *recorder) OnSample(_ sweep.SweepKey, _ sweep.RunConfig, s sweep.Sample) {
	r.samples = append(r.samples, s)
}

func (r *recorder) OnResult(res *sweep.Result) { r.results = append(r.results, res) }

func TestRunSweep_SaturationOnQuarticCurve(t *testing.T) {
	// GIVEN latency 10 + 1000 r^4 and the 6x-baseline policy
	stub := testutil.NewStub(t.TempDir(), testutil.QuarticLatency)
	d := sweep.NewDriver(stub, stub, stub.Layout)

	// WHEN the sweep runs
	res, err := d.RunSweep(context.Background(), newSweep(t, "saturation"))

	// THEN saturation is recorded at 0.48, the first rate whose latency
	// exceeds 6 x f(0.02)
	require.NoError(t, err)
	assert.Equal(t, sweep.OutcomeSaturated, res.Outcome)
	assert.True(t, res.Saturated())
	assert.Equal(t, 0.48, res.Throughput)
	assert.Equal(t, "0.48", res.ThroughputString())
	testutil.AssertFloat64Equal(t, "baseline", testutil.QuarticLatency(0.02), res.Baseline, 1e-12)
	testutil.AssertRates(t, ratesUpTo(24), stub.Rates())
	assert.Equal(t, 24, res.Iterations())
}

func TestRunSweep_RateSequenceIsExactGrid(t *testing.T) {
	// GIVEN a flat curve that never trips the ceiling policy
	stub := testutil.NewStub(t.TempDir(), constant(10))
	d := sweep.NewDriver(stub, stub, stub.Layout)

	// WHEN the sweep runs to the end of the grid
	res, err := d.RunSweep(context.Background(), newSweep(t, "ceiling"))

	// THEN every rate from 0.02 to 1.00 is visited exactly once, two-decimal
	require.NoError(t, err)
	assert.Equal(t, sweep.OutcomeExhausted, res.Outcome)
	assert.False(t, res.Found)
	testutil.AssertRates(t, ratesUpTo(50), stub.Rates())
	for _, cfg := range stub.Calls() {
		assert.Equal(t, cfg.InjectionRate, math.Round(cfg.InjectionRate*100)/100)
	}
}

func TestRunSweep_BaselineIsFirstIterationOnly(t *testing.T) {
	// GIVEN two curves equal at 0.02 and different at 0.04
	curveA := func(r float64) float64 {
		if r > 0.03 {
			return 20
		}
		return 10
	}
	curveB := func(r float64) float64 {
		if r > 0.03 {
			return 50
		}
		return 10
	}

	for _, f := range []testutil.LatencyFunc{curveA, curveB} {
		stub := testutil.NewStub(t.TempDir(), f)
		sw := newSweep(t, "saturation")
		sw.Grid.MaxRate = 0.10

		res, err := sweep.NewDriver(stub, stub, stub.Layout).RunSweep(context.Background(), sw)

		// THEN the recorded baseline is f(0.02) either way
		require.NoError(t, err)
		assert.Equal(t, 10.0, res.Baseline)
		assert.Equal(t, sweep.OutcomeExhausted, res.Outcome)
	}
}

func TestRunSweep_DegenerateBaselineStopsAtFirstRate(t *testing.T) {
	// GIVEN a network that is already congested at the lowest load
	stub := testutil.NewStub(t.TempDir(), constant(80))
	d := sweep.NewDriver(stub, stub, stub.Layout)

	// WHEN the saturation sweep runs
	res, err := d.RunSweep(context.Background(), newSweep(t, "saturation"))

	// THEN it stops after one run, recording 0.02 with a distinct outcome
	require.NoError(t, err)
	assert.Equal(t, sweep.OutcomeDegenerateBaseline, res.Outcome)
	assert.True(t, res.Found)
	assert.False(t, res.Saturated())
	assert.Equal(t, 0.02, res.Throughput)
	assert.Len(t, stub.Calls(), 1)
}

func TestRunSweep_CeilingStopsOnStrictExcess(t *testing.T) {
	// GIVEN the quartic curve: f(0.48)=63.1, f(0.50)=72.5
	stub := testutil.NewStub(t.TempDir(), testutil.QuarticLatency)
	d := sweep.NewDriver(stub, stub, stub.Layout)

	res, err := d.RunSweep(context.Background(), newSweep(t, "ceiling"))

	require.NoError(t, err)
	assert.Equal(t, sweep.OutcomeCeilingReached, res.Outcome)
	assert.False(t, res.Found)
	assert.Equal(t, "-", res.ThroughputString())
	testutil.AssertRates(t, ratesUpTo(25), stub.Rates())
}

func TestRunSweep_BoundedLastRunIsBelowCap(t *testing.T) {
	stub := testutil.NewStub(t.TempDir(), testutil.QuarticLatency)
	d := sweep.NewDriver(stub, stub, stub.Layout)

	res, err := d.RunSweep(context.Background(), newSweep(t, "bounded"))

	require.NoError(t, err)
	assert.Equal(t, sweep.OutcomeLoadCapReached, res.Outcome)
	testutil.AssertRates(t, ratesUpTo(20), stub.Rates())
}

func TestRunSweep_Idempotent(t *testing.T) {
	// GIVEN a deterministic simulator
	// WHEN the same sweep runs twice
	run := func() *sweep.Result {
		stub := testutil.NewStub(t.TempDir(), testutil.QuarticLatency)
		res, err := sweep.NewDriver(stub, stub, stub.Layout).RunSweep(context.Background(), newSweep(t, "saturation"))
		require.NoError(t, err)
		return res
	}
	a, b := run(), run()

	// THEN outcome, throughput and curve latencies agree
	assert.Equal(t, a.Outcome, b.Outcome)
	assert.Equal(t, a.Throughput, b.Throughput)
	assert.Equal(t, a.Rates(), b.Rates())
	for i := range a.Curve {
		assert.Equal(t, a.Curve[i].Latency, b.Curve[i].Latency)
	}
}

func TestRunSweep_MalformedMetricFailsSweep(t *testing.T) {
	// GIVEN a run whose metric line cannot be parsed
	stub := testutil.NewStub(t.TempDir(), testutil.QuarticLatency)
	stub.MalformedAt["0.04"] = true
	rec := &recorder{}
	d := sweep.NewDriver(stub, stub, stub.Layout, rec)

	// WHEN the sweep runs
	res, err := d.RunSweep(context.Background(), newSweep(t, "saturation"))

	// THEN the sweep fails with a parse error naming the configuration,
	// and no zero latency is ever recorded
	require.Error(t, err)
	var parseErr *sweep.MetricParseError
	require.True(t, errors.As(err, &parseErr))
	var runErr *sweep.RunError
	require.True(t, errors.As(err, &runErr))
	assert.Equal(t, 0.04, runErr.Config.InjectionRate)
	assert.Contains(t, err.Error(), "rate=0.04")

	assert.Equal(t, sweep.OutcomeFailed, res.Outcome)
	require.Len(t, res.Curve, 1)
	for _, s := range res.Curve {
		assert.NotZero(t, s.Latency)
	}
	require.Len(t, rec.results, 1)
	assert.Same(t, res, rec.results[0])
}

func TestRunSweep_MissingOutputIsAnError(t *testing.T) {
	// GIVEN a run that exits cleanly without producing output
	stub := testutil.NewStub(t.TempDir(), testutil.QuarticLatency)
	stub.MissingAt["0.06"] = true
	d := sweep.NewDriver(stub, stub, stub.Layout)

	_, err := d.RunSweep(context.Background(), newSweep(t, "saturation"))

	var missing *sweep.MissingOutputError
	require.True(t, errors.As(err, &missing))
	assert.Contains(t, missing.Location, "inj-0.06")
}

func TestRunSweep_InvocationFailureIsWrapped(t *testing.T) {
	// GIVEN a simulator that cannot be started
	cause := errors.New("exec: gem5.opt: not found")
	stub := testutil.NewStub(t.TempDir(), testutil.QuarticLatency)
	stub.FailAt["0.02"] = cause
	d := sweep.NewDriver(stub, stub, stub.Layout)

	// WHEN the sweep runs
	res, err := d.RunSweep(context.Background(), newSweep(t, "saturation"))

	// THEN the error is an InvocationError that still matches the cause
	var invErr *sweep.InvocationError
	require.True(t, errors.As(err, &invErr))
	assert.Equal(t, -1, invErr.ExitCode)
	assert.ErrorIs(t, err, cause)
	assert.Empty(t, res.Curve)
}

func TestRunSweep_InvalidSweepRejectedBeforeAnyRun(t *testing.T) {
	stub := testutil.NewStub(t.TempDir(), testutil.QuarticLatency)
	sw := newSweep(t, "saturation")
	sw.Base.Pattern = "hotspot"

	_, err := sweep.NewDriver(stub, stub, stub.Layout).RunSweep(context.Background(), sw)

	require.Error(t, err)
	assert.Empty(t, stub.Calls())
}

func TestRunSweep_CancelledContext(t *testing.T) {
	stub := testutil.NewStub(t.TempDir(), testutil.QuarticLatency)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := sweep.NewDriver(stub, stub, stub.Layout).RunSweep(ctx, newSweep(t, "saturation"))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, sweep.OutcomeFailed, res.Outcome)
	assert.Empty(t, stub.Calls())
}

func TestRunSweep_RequiresSimulator(t *testing.T) {
	stub := testutil.NewStub(t.TempDir(), testutil.QuarticLatency)
	_, err := sweep.NewDriver(nil, stub, stub.Layout).RunSweep(context.Background(), newSweep(t, "saturation"))
	assert.Error(t, err)
}

func TestCollect_StopsAtFirstMissingOutput(t *testing.T) {
	// GIVEN outputs from an earlier pass for 0.02 .. 0.10 only
	stub := testutil.NewStub(t.TempDir(), testutil.QuarticLatency)
	stub.Seed(testutil.BaseConfig(), ratesUpTo(5)...)
	rec := &recorder{}
	d := sweep.NewDriver(nil, stub, stub.Layout, rec)
	sw := newSweep(t, "ceiling")
	sw.Policy = mustPolicy(t, sweep.PolicyConfig{Name: "ceiling", Ceiling: 200})

	// WHEN the outputs are collected
	res, err := d.Collect(context.Background(), sw)

	// THEN five real samples are read, then a +Inf sentinel ends the sweep
	require.NoError(t, err)
	assert.Equal(t, sweep.OutcomeNoData, res.Outcome)
	assert.Empty(t, stub.Calls(), "collection never invokes the simulator")
	require.Len(t, res.Curve, 6)
	assert.True(t, res.Curve[5].NoData())
	assert.Equal(t, 0.12, res.Curve[5].Rate)
	assert.Equal(t, 5, res.Iterations())
	assert.Len(t, rec.samples, 6)
}

func TestCollect_MatchesDrivePass(t *testing.T) {
	// GIVEN a drive pass that stopped at the ceiling
	stub := testutil.NewStub(t.TempDir(), testutil.QuarticLatency)
	d := sweep.NewDriver(stub, stub, stub.Layout)
	driven, err := d.RunSweep(context.Background(), newSweep(t, "ceiling"))
	require.NoError(t, err)

	// WHEN the same outputs are collected under the same policy
	collected, err := d.Collect(context.Background(), newSweep(t, "ceiling"))

	// THEN the collected curve equals the driven one
	require.NoError(t, err)
	assert.Equal(t, driven.Outcome, collected.Outcome)
	assert.Equal(t, driven.Rates(), collected.Rates())
	for i := range driven.Curve {
		assert.Equal(t, driven.Curve[i].Latency, collected.Curve[i].Latency)
		assert.Equal(t, driven.Curve[i].Location, collected.Curve[i].Location)
	}
}

func TestRunSweep_TraceRecordsEveryDecision(t *testing.T) {
	stub := testutil.NewStub(t.TempDir(), testutil.QuarticLatency)
	d := sweep.NewDriver(stub, stub, stub.Layout)

	res, err := d.RunSweep(context.Background(), newSweep(t, "saturation"))

	require.NoError(t, err)
	require.NotNil(t, res.Trace)
	assert.Len(t, res.Trace.Decisions, 24)
	last, ok := res.Trace.Last()
	require.True(t, ok)
	assert.True(t, last.Stop)
	assert.Equal(t, string(sweep.OutcomeSaturated), last.Outcome)
	assert.Equal(t, 0.48, last.Rate)
}

func TestRunSweep_TraceLevelNone(t *testing.T) {
	stub := testutil.NewStub(t.TempDir(), testutil.QuarticLatency)
	d := sweep.NewDriver(stub, stub, stub.Layout).WithTraceLevel(trace.TraceLevelNone)

	res, err := d.RunSweep(context.Background(), newSweep(t, "saturation"))

	require.NoError(t, err)
	assert.Empty(t, res.Trace.Decisions)
}
