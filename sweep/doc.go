// Package sweep drives injection-rate sweeps over the Garnet network-on-chip
// simulator and detects latency ceilings and saturation throughput.
//
// # Reading Guide
//
// Start with these files to understand the sweep loop:
//   - config.go: RunConfig, the immutable description of one simulator invocation
//   - policy.go: stop policies (ceiling, saturation, bounded) and their registry
//   - driver.go: the per-sweep loop for drive mode and collection mode
//   - campaign.go: crossing patterns, VC counts and topologies into keyed sweeps
//
// # Architecture
//
// The sweep package defines the interfaces the loop depends on; implementations
// live in sub-packages:
//   - sweep/garnet/: command-line builder, process runner and stats-log reader
//   - sweep/experiment/: YAML experiment files and built-in presets
//   - sweep/trace/: stop-decision trace recording
//   - sweep/report/: console, CSV and YAML reporting
//   - sweep/record/, sweep/telemetry/, sweep/monitor/: optional observers
//
// # Key Interfaces
//
//   - Simulator: run one RunConfig and return its output location
//   - LogReader: check an output location and extract a scalar metric
//   - StopPolicy: decide after every run whether the sweep is finished
//   - Observer: receive samples and finished results
package sweep
