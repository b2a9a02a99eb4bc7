package cmd

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/garnet-sweep/garnet-sweep/sweep/experiment"
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the built-in experiments",
	Run: func(cmd *cobra.Command, args []string) {
		if err := listPresets(cmd.OutOrStdout()); err != nil {
			logrus.Fatalf("Listing presets: %v", err)
		}
	},
}

var presetsShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a built-in experiment as YAML, ready to edit and pass to --experiment",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := showPreset(cmd.OutOrStdout(), args[0]); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

func listPresets(w io.Writer) error {
	for _, name := range experiment.PresetNames() {
		exp, err := experiment.Preset(name)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%-12s %s\n", name, exp.Description); err != nil {
			return err
		}
	}
	return nil
}

func showPreset(w io.Writer, name string) error {
	exp, err := experiment.Preset(name)
	if err != nil {
		return err
	}
	data, err := exp.Marshal()
	if err != nil {
		return fmt.Errorf("rendering preset %s: %w", name, err)
	}
	_, err = w.Write(data)
	return err
}
