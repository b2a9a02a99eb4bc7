// Package testutil provides shared test infrastructure for the sweep driver.
// It consolidates deterministic simulator stubs and float assertions used
// across sweep/ and its sub-package tests.
package testutil

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/garnet-sweep/garnet-sweep/sweep"
)

// LatencyFunc maps an injection rate to the latency a stub run reports.
type LatencyFunc func(rate float64) float64

// QuarticLatency is 10 + 1000*r^4, a curve that saturates at 0.48 under the
// 6x-baseline rule.
func QuarticLatency(rate float64) float64 {
	return 10 + 1000*math.Pow(rate, 4)
}

// Stub is an in-memory Simulator and LogReader. Run "writes" the latency of
// the configured function under the layout directory of the config; Metric
// reads it back.
type Stub struct {
	Layout     sweep.Layout
	Latency    LatencyFunc
	MetricName string // metric the stub answers to; empty accepts any

	// FailAt makes Run fail at the given rate; MissingAt makes Run succeed
	// without producing output; MalformedAt makes Metric fail.
	FailAt      map[string]error
	MissingAt   map[string]bool
	MalformedAt map[string]bool

	mu      sync.Mutex
	outputs map[string]float64
	calls   []sweep.RunConfig
}

// NewStub returns a stub over f rooted at root.
func NewStub(root string, f LatencyFunc) *Stub {
	return &Stub{
		Layout:      sweep.Layout{Root: root},
		Latency:     f,
		FailAt:      make(map[string]error),
		MissingAt:   make(map[string]bool),
		MalformedAt: make(map[string]bool),
		outputs:     make(map[string]float64),
	}
}

// Run records the call and stores the latency for the config's location.
func (s *Stub) Run(_ context.Context, cfg sweep.RunConfig) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, cfg)
	rate := sweep.FormatRate(cfg.InjectionRate)
	if err, ok := s.FailAt[rate]; ok {
		return "", err
	}
	location := s.Layout.Dir(cfg)
	if !s.MissingAt[rate] {
		s.outputs[location] = s.Latency(cfg.InjectionRate)
	}
	return location, nil
}

// Seed stores outputs for cfg at each rate without recording calls, as if a
// previous drive pass had produced them.
func (s *Stub) Seed(base sweep.RunConfig, rates ...float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rates {
		cfg := base.WithRate(r)
		s.outputs[s.Layout.Dir(cfg)] = s.Latency(cfg.InjectionRate)
	}
}

func (s *Stub) Exists(location string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.outputs[location]
	return ok, nil
}

func (s *Stub) Metric(location, metric string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.outputs[location]
	if !ok {
		return 0, &sweep.MissingOutputError{Location: location}
	}
	if s.MetricName != "" && metric != s.MetricName {
		return 0, &sweep.MetricParseError{Location: location, Metric: metric, Reason: "metric not found"}
	}
	for rate, bad := range s.MalformedAt {
		if bad && strings.HasSuffix(location, "inj-"+rate) {
			return 0, &sweep.MetricParseError{
				Location: location, Metric: metric, Reason: "malformed value",
				Line: fmt.Sprintf("system.ruby.network.%s    garbage", metric),
			}
		}
	}
	return v, nil
}

// Calls returns the configs passed to Run, in order.
func (s *Stub) Calls() []sweep.RunConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sweep.RunConfig(nil), s.calls...)
}

// Rates returns the injection rates passed to Run, in order.
func (s *Stub) Rates() []float64 {
	calls := s.Calls()
	rates := make([]float64, len(calls))
	for i, c := range calls {
		rates[i] = c.InjectionRate
	}
	return rates
}

// BaseConfig is a valid 64-node RunConfig used across tests.
func BaseConfig() sweep.RunConfig {
	return sweep.RunConfig{
		Pattern:           "shuffle",
		Nodes:             64,
		MeshRows:          8,
		Topology:          "irregularMesh_XY",
		ConfFile:          "64_nodes-connectivity_matrix_0-links_removed_0.txt",
		SpinFile:          "spin_configs/SR_64_nodes-connectivity_matrix_0-links_removed_0.txt",
		VCs:               4,
		InjectionRate:     0.02,
		RoutingAlgorithm:  0,
		Cycles:            10000,
		RouterLatency:     1,
		Spin:              sweep.SpinConfig{Enabled: true, Freq: 1024, Mult: 1, UTurnCrossbar: true},
		DeadlockThreshold: 50000,
	}
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// AssertRates checks a rate sequence against want with a small absolute tolerance.
func AssertRates(t *testing.T, want, got []float64) {
	t.Helper()
	if len(want) != len(got) {
		t.Fatalf("rate sequence length: got %d %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if math.Abs(want[i]-got[i]) > 1e-9 {
			t.Errorf("rate[%d]: got %v, want %v", i, got[i], want[i])
		}
	}
}
