package sweep

import (
	"fmt"
	"strings"
)

// InvocationError reports a simulator process that could not be started or
// exited abnormally.
type InvocationError struct {
	Command  []string
	ExitCode int    // -1 when the process never ran to completion
	Output   string // tail of the combined process output
	Err      error
}

func (e *InvocationError) Error() string {
	var b strings.Builder
	b.WriteString("simulator invocation failed")
	if e.ExitCode >= 0 {
		fmt.Fprintf(&b, " (exit %d)", e.ExitCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Output != "" {
		fmt.Fprintf(&b, "\n--- output tail ---\n%s", e.Output)
	}
	return b.String()
}

func (e *InvocationError) Unwrap() error { return e.Err }

// MissingOutputError reports an output location that does not exist after a
// run that should have produced it.
type MissingOutputError struct {
	Location string
}

func (e *MissingOutputError) Error() string {
	return fmt.Sprintf("simulator output %s does not exist", e.Location)
}

// MetricParseError reports an output location without exactly one
// well-formed metric line.
type MetricParseError struct {
	Location string
	Metric   string
	Line     string // offending line, empty when no line matched
	Reason   string
	Err      error
}

func (e *MetricParseError) Error() string {
	msg := fmt.Sprintf("metric %q in %s: %s", e.Metric, e.Location, e.Reason)
	if e.Line != "" {
		msg += fmt.Sprintf(" (line %q)", e.Line)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MetricParseError) Unwrap() error { return e.Err }

// RunError attaches the failing RunConfig to any error raised while probing
// one injection rate, so the failure can be reproduced.
type RunError struct {
	Config RunConfig
	Err    error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run %s: %v", e.Config, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }
