package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/garnet-sweep/garnet-sweep/sweep"
)

// collectCmd re-reads the outputs of an earlier run without simulating
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Rebuild latency curves from existing simulator outputs",
	Run: func(cmd *cobra.Command, args []string) {
		exp, err := expFlags.load(cmd)
		if err != nil {
			logrus.Fatalf("Invalid experiment: %v", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		id := campaignID()
		cr, err := runPass(ctx, exp, nil, id, sweep.ModeCollect, os.Stdout, true)
		if err != nil {
			logrus.Fatalf("Campaign %s: %v", id, err)
		}
		expFlags.writeReports(cr, "")

		if err := campaignFailure(cr); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}
