package cmd

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

var (
	logLevel string // Log verbosity level
	envFile  string // Optional dotenv file with GARNET_SWEEP_* defaults

	// Flags shared by run and collect
	expFlags experimentFlags
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "garnet-sweep",
	Short: "Injection-rate sweeps and saturation detection for the Garnet NoC simulator",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, fs.ErrNotExist) || cmd.Flags().Changed("env-file") {
				logrus.Fatalf("Failed to load %s: %v", envFile, err)
			}
		}
	},
}

// Execute runs the CLI root command
func Execute() {
	// logrus.Fatalf exits through atexit so pending sample batches are flushed.
	logrus.RegisterExitHandler(func() { atexit.Exit(1) })

	if err := rootCmd.Execute(); err != nil {
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file providing GARNET_SWEEP_* defaults")

	expFlags.register(runCmd)
	expFlags.register(collectCmd)
	runCmd.Flags().BoolVar(&skipCollect, "no-collect", false, "Skip the collection pass even when collect_policy is set")

	presetsCmd.AddCommand(presetsShowCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(presetsCmd)
}
