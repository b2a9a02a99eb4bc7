package sweep

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// Topology describes one network instance a matrix sweeps over.
type Topology struct {
	Nodes    int    `yaml:"nodes"`
	Rows     int    `yaml:"rows"`
	ConfFile string `yaml:"conf_file"`
	SpinFile string `yaml:"spin_file,omitempty"` // defaults to spin_configs/SR_<conf_file>
}

// SpinFileOrDefault returns the spin-ring file for the topology.
func (t Topology) SpinFileOrDefault() string {
	if t.SpinFile != "" {
		return t.SpinFile
	}
	return "spin_configs/SR_" + t.ConfFile
}

// Matrix is the cross product a campaign sweeps: every topology, pattern and
// VC count combination becomes one Sweep.
type Matrix struct {
	Patterns   []string
	VCs        []int
	Topologies []Topology
}

// Sweeps expands the matrix over template, which supplies the fixed knobs,
// grid, policy and metric.
func (m Matrix) Sweeps(template Sweep) []Sweep {
	sweeps := make([]Sweep, 0, len(m.Patterns)*len(m.VCs)*len(m.Topologies))
	for _, topo := range m.Topologies {
		for _, pattern := range m.Patterns {
			for _, vcs := range m.VCs {
				sw := template
				sw.Base = template.Base.WithRate(template.Grid.Start)
				sw.Base.Pattern = pattern
				sw.Base.VCs = vcs
				sw.Base.Nodes = topo.Nodes
				sw.Base.MeshRows = topo.Rows
				sw.Base.ConfFile = topo.ConfFile
				sw.Base.SpinFile = topo.SpinFileOrDefault()
				sweeps = append(sweeps, sw)
			}
		}
	}
	return sweeps
}

// Campaign is a set of independent sweeps run in one mode.
type Campaign struct {
	ID     string
	Mode   Mode
	Sweeps []Sweep
	Jobs   int // concurrent sweeps; <= 1 runs strictly sequentially
}

// Validate checks the mode and rejects duplicate keys, which would make two
// sweeps share output directories. An individually invalid sweep is not a
// campaign error: RunCampaign records it under its key and runs the rest.
func (c Campaign) Validate() error {
	if c.Mode != ModeDrive && c.Mode != ModeCollect {
		return fmt.Errorf("unknown campaign mode %q", c.Mode)
	}
	seen := make(map[SweepKey]bool, len(c.Sweeps))
	for _, sw := range c.Sweeps {
		key := sw.Key()
		if seen[key] {
			return fmt.Errorf("duplicate sweep %s", key)
		}
		seen[key] = true
	}
	return nil
}

// CampaignResult holds one Result per sweep, keyed by SweepKey, plus the
// error of every sweep that failed.
type CampaignResult struct {
	ID      string
	Mode    Mode
	Results map[SweepKey]*Result
	Errors  map[SweepKey]error
}

// Keys returns the result keys in a stable order.
func (cr *CampaignResult) Keys() []SweepKey {
	keys := make([]SweepKey, 0, len(cr.Results))
	for k := range cr.Results {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// Err joins the sweep failures in key order, or returns nil.
func (cr *CampaignResult) Err() error {
	if len(cr.Errors) == 0 {
		return nil
	}
	keys := make([]SweepKey, 0, len(cr.Errors))
	for k := range cr.Errors {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	errs := make([]error, len(keys))
	for i, k := range keys {
		errs[i] = cr.Errors[k]
	}
	return errors.Join(errs...)
}

// RunCampaign runs every sweep of c. Sweeps are independent: a failing sweep
// records its error and the others continue. Up to c.Jobs sweeps run at once;
// each sweep's own rate loop stays sequential.
func (d *Driver) RunCampaign(ctx context.Context, c Campaign) (*CampaignResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	cr := &CampaignResult{
		ID:      c.ID,
		Mode:    c.Mode,
		Results: make(map[SweepKey]*Result, len(c.Sweeps)),
		Errors:  make(map[SweepKey]error),
	}

	jobs := c.Jobs
	if jobs < 1 {
		jobs = 1
	}
	logrus.Infof("Campaign %s: %d %s sweeps, %d at a time", c.ID, len(c.Sweeps), c.Mode, jobs)

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, jobs)

	for _, sw := range c.Sweeps {
		sem <- struct{}{}
		wg.Add(1)
		go func(sw Sweep) {
			defer wg.Done()
			defer func() { <-sem }()

			var res *Result
			var err error
			if c.Mode == ModeCollect {
				res, err = d.Collect(ctx, sw)
			} else {
				res, err = d.RunSweep(ctx, sw)
			}

			mu.Lock()
			defer mu.Unlock()
			cr.Results[sw.Key()] = res
			if err != nil {
				logrus.Warnf("Sweep %s failed: %v", sw.Key(), err)
				cr.Errors[sw.Key()] = err
			}
		}(sw)
	}
	wg.Wait()

	return cr, nil
}
