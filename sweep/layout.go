package sweep

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Layout maps RunConfigs to output directories under Root. The mapping is
// deterministic and injective: equal configs share a directory and any field
// difference yields a different one. The leading segments follow the
// historical <nodes>/<routing>/<PATTERN>/freq-<f>/vc-<v>/inj-<rate> shape.
type Layout struct {
	Root string
}

// Dir returns the output directory of cfg.
func (l Layout) Dir(cfg RunConfig) string {
	segments := []string{
		l.Root,
		fmt.Sprintf("%d", cfg.Nodes),
		RoutingLabel(cfg.RoutingAlgorithm),
		strings.ToUpper(cfg.Pattern),
		"conf-" + escapeSegment(cfg.ConfFile),
		fmt.Sprintf("freq-%d", cfg.Spin.Freq),
		fmt.Sprintf("vc-%d", cfg.VCs),
		knobSegment(cfg),
	}
	if len(cfg.Extra) > 0 {
		segments = append(segments, argsSegment(cfg.Extra))
	}
	segments = append(segments, "inj-"+FormatRate(cfg.InjectionRate))
	return filepath.Join(segments...)
}

// knobSegment packs the remaining fixed knobs into one directory name. String
// fields are escaped so that '_' only ever appears as a separator.
func knobSegment(cfg RunConfig) string {
	return fmt.Sprintf("topo-%s_rows-%d_spinfile-%s_alg-%d_cyc-%d_rl-%d_vnet-%d_spin-%d_mult-%d_uturn-%d_drain-%d_dl-%d",
		escapeField(cfg.Topology),
		cfg.MeshRows,
		escapeField(cfg.SpinFile),
		cfg.RoutingAlgorithm,
		cfg.Cycles,
		cfg.RouterLatency,
		cfg.InjVNet,
		boolInt(cfg.Spin.Enabled),
		cfg.Spin.Mult,
		boolInt(cfg.Spin.UTurnCrossbar),
		boolInt(cfg.Spin.DrainAllVC),
		cfg.DeadlockThreshold,
	)
}

func argsSegment(args []Arg) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = escapeField(a.Name) + "=" + escapeField(a.Value)
	}
	return "args-" + strings.Join(parts, ",")
}

// escapeSegment makes s safe as a single path segment.
func escapeSegment(s string) string {
	return escape(s, "%/\\")
}

// escapeField additionally escapes the separators used inside packed segments.
func escapeField(s string) string {
	return escape(s, "%/\\_,=")
}

func escape(s, special string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if strings.IndexByte(special, c) >= 0 {
			fmt.Fprintf(&b, "%%%02X", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
