package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garnet-sweep/garnet-sweep/sweep"
	"github.com/garnet-sweep/garnet-sweep/sweep/experiment"
)

// parseFlags registers a fresh flag set on a throwaway command and parses args.
func parseFlags(t *testing.T, args ...string) (*experimentFlags, *cobra.Command) {
	t.Helper()
	f := &experimentFlags{}
	c := &cobra.Command{Use: "test"}
	f.register(c)
	require.NoError(t, c.Flags().Parse(args))
	return f, c
}

func TestLoad_DefaultWithoutMatrixIsRejected(t *testing.T) {
	// GIVEN no experiment, preset or matrix flags
	f, c := parseFlags(t)

	// WHEN the experiment is built
	_, err := f.load(c)

	// THEN validation names the empty matrix
	require.Error(t, err)
	assert.Contains(t, err.Error(), "matrix.patterns")
}

func TestLoad_FlagsBuildMatrix(t *testing.T) {
	// GIVEN a matrix given entirely on the command line
	f, c := parseFlags(t,
		"--patterns", "transpose,shuffle",
		"--vcs", "2,4",
		"--nodes", "16,64",
		"--cycles", "20000",
		"--policy", "ceiling", "--ceiling", "90",
	)

	// WHEN the experiment is built
	exp, err := f.load(c)
	require.NoError(t, err)

	// THEN the flags land in the matrix, knobs and policy
	assert.Equal(t, []string{"transpose", "shuffle"}, exp.Matrix.Patterns)
	assert.Equal(t, []int{2, 4}, exp.Matrix.VCs)
	assert.Equal(t, []sweep.Topology{experiment.DefaultTopology(16), experiment.DefaultTopology(64)}, exp.Matrix.Topologies)
	assert.Equal(t, int64(20000), exp.Knobs.Cycles)
	assert.Equal(t, sweep.PolicyConfig{Name: "ceiling", Ceiling: 90}, exp.Policy)

	campaign, err := exp.Campaign("c1", sweep.ModeDrive)
	require.NoError(t, err)
	assert.Len(t, campaign.Sweeps, 8)
}

func TestLoad_PresetKeepsUnsetFields(t *testing.T) {
	// GIVEN the sat-thrpt preset with only the VC list and output root overridden
	f, c := parseFlags(t, "--preset", "sat-thrpt", "--vcs", "2", "--out", "/tmp/sat")

	// WHEN the experiment is built
	exp, err := f.load(c)
	require.NoError(t, err)

	// THEN everything else comes from the preset
	want, err := experiment.Preset("sat-thrpt")
	require.NoError(t, err)
	assert.Equal(t, []int{2}, exp.Matrix.VCs)
	assert.Equal(t, "/tmp/sat", exp.Engine.OutputRoot)
	assert.Equal(t, want.Matrix.Topologies, exp.Matrix.Topologies)
	assert.Equal(t, want.Matrix.Patterns, exp.Matrix.Patterns)
	assert.Equal(t, want.Policy, exp.Policy)
	assert.True(t, exp.Knobs.Spin.Enabled, "unset --spin must not clear the preset value")
}

func TestLoad_PolicySwitchDropsOldParameters(t *testing.T) {
	// GIVEN drain-table, whose bounded policy carries a ceiling and load cap
	f, c := parseFlags(t, "--preset", "drain-table", "--policy", "saturation")

	// WHEN the experiment is built
	exp, err := f.load(c)
	require.NoError(t, err)

	// THEN the saturation policy starts from its own defaults
	assert.Equal(t, sweep.PolicyConfig{Name: "saturation"}, exp.Policy)
}

func TestLoad_DDThreshMergesIntoExtraArgs(t *testing.T) {
	// GIVEN drain-table with a different detection threshold and one more argument
	f, c := parseFlags(t, "--preset", "drain-table", "--dd-thresh", "64", "--arg", "max-turn-capacity=20")

	// WHEN the experiment is built
	exp, err := f.load(c)
	require.NoError(t, err)

	// THEN the overrides replace the preset values and the rest survive
	assert.Equal(t, "64", exp.ExtraArgs["dd-thresh"])
	assert.Equal(t, "20", exp.ExtraArgs["max-turn-capacity"])
	assert.Equal(t, "table", exp.ExtraArgs["routing-algorithm"])
	assert.Len(t, exp.ExtraArgs, 7)

	// AND the preset itself is untouched
	preset, err := experiment.Preset("drain-table")
	require.NoError(t, err)
	assert.Equal(t, "128", preset.ExtraArgs["dd-thresh"])
}

func TestLoad_CollectPolicyFlags(t *testing.T) {
	// GIVEN ae-sc2021 with a tighter collection ceiling
	f, c := parseFlags(t, "--preset", "ae-sc2021", "--collect-ceiling", "150")

	// WHEN the experiment is built
	exp, err := f.load(c)
	require.NoError(t, err)

	// THEN only the collection policy changes
	require.NotNil(t, exp.CollectPolicy)
	assert.Equal(t, sweep.PolicyConfig{Name: "ceiling", Ceiling: 150}, *exp.CollectPolicy)
	assert.Equal(t, sweep.PolicyConfig{Name: "ceiling", Ceiling: sweep.DefaultDriveCeiling}, exp.Policy)
}

func TestLoad_EnvironmentFillsEnginePaths(t *testing.T) {
	// GIVEN engine paths in the environment
	t.Setenv(envBinary, "/opt/gem5/gem5.opt")
	t.Setenv(envOut, "/scratch/results")

	// WHEN a preset is loaded with an explicit output root
	f, c := parseFlags(t, "--preset", "ae-sc2021", "--out", "/tmp/explicit")
	exp, err := f.load(c)
	require.NoError(t, err)

	// THEN the environment fills the binary but the flag wins for the output
	assert.Equal(t, "/opt/gem5/gem5.opt", exp.Engine.Binary)
	assert.Equal(t, "/tmp/explicit", exp.Engine.OutputRoot)
}

func TestLoad_EnvironmentDoesNotOverrideExperimentFile(t *testing.T) {
	// GIVEN an experiment file naming its own output root
	path := filepath.Join(t.TempDir(), "exp.yaml")
	body := `name: small
engine:
  output_root: from-file
  timeout: 90s
matrix:
  patterns: [bit_complement]
  vcs: [2]
  topologies:
    - {nodes: 16, rows: 4, conf_file: 16_nodes-connectivity_matrix_0-links_removed_0.txt}
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	t.Setenv(envOut, "/scratch/results")

	// WHEN it is loaded
	f, c := parseFlags(t, "--experiment", path)
	exp, err := f.load(c)
	require.NoError(t, err)

	// THEN the file wins over the environment
	assert.Equal(t, "from-file", exp.Engine.OutputRoot)
	assert.Equal(t, 90*time.Second, exp.Engine.Timeout)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"preset and file", []string{"--preset", "sat-thrpt", "--experiment", "x.yaml"}, "mutually exclusive"},
		{"unknown preset", []string{"--preset", "nope"}, "unknown preset"},
		{"rows without nodes", []string{"--preset", "sat-thrpt", "--rows", "4"}, "require --nodes"},
		{"rows length", []string{"--preset", "sat-thrpt", "--nodes", "16,64", "--rows", "4"}, "--rows has 1 entries"},
		{"bad pattern", []string{"--preset", "sat-thrpt", "--patterns", "zigzag"}, "unknown traffic pattern"},
		{"bad policy", []string{"--preset", "sat-thrpt", "--policy", "forever"}, "unknown stop policy"},
		{"bad trace level", []string{"--preset", "sat-thrpt", "--trace-level", "all"}, "unknown trace level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, c := parseFlags(t, tt.args...)
			_, err := f.load(c)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestListPresets(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, listPresets(&buf))

	out := buf.String()
	for _, name := range experiment.PresetNames() {
		assert.Contains(t, out, name)
	}
}

func TestShowPreset_RoundTrips(t *testing.T) {
	// GIVEN the YAML printed for a preset
	var buf bytes.Buffer
	require.NoError(t, showPreset(&buf, "drain-table"))

	// WHEN it is parsed back as an experiment file
	got, err := experiment.Parse(buf.Bytes())
	require.NoError(t, err)

	// THEN it is the preset
	want, err := experiment.Preset("drain-table")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestWithSuffix(t *testing.T) {
	assert.Equal(t, "out/curves-collect.csv", withSuffix("out/curves.csv", "-collect"))
	assert.Equal(t, "summary-collect", withSuffix("summary", "-collect"))
	assert.Equal(t, "curves.csv", withSuffix("curves.csv", ""))
}
