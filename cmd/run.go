package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/garnet-sweep/garnet-sweep/sweep"
	"github.com/garnet-sweep/garnet-sweep/sweep/experiment"
	"github.com/garnet-sweep/garnet-sweep/sweep/garnet"
	"github.com/garnet-sweep/garnet-sweep/sweep/report"
)

var skipCollect bool // Skip the collection pass of run

// runCmd drives the simulator for every sweep of the experiment
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Drive Garnet at increasing injection rates until each sweep saturates",
	Run: func(cmd *cobra.Command, args []string) {
		exp, err := expFlags.load(cmd)
		if err != nil {
			logrus.Fatalf("Invalid experiment: %v", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		id := campaignID()
		runner := garnet.NewRunner(exp.GarnetEngine(), exp.Layout())
		runner.Timeout = exp.Engine.Timeout

		var results []*sweep.CampaignResult
		cr, err := runPass(ctx, exp, runner, id, sweep.ModeDrive, os.Stdout, true)
		if err != nil {
			logrus.Fatalf("Campaign %s: %v", id, err)
		}
		expFlags.writeReports(cr, "")
		results = append(results, cr)

		if exp.CollectPolicy != nil && !skipCollect && ctx.Err() == nil {
			cr, err = runPass(ctx, exp, nil, id+"-collect", sweep.ModeCollect, os.Stdout, false)
			if err != nil {
				logrus.Fatalf("Campaign %s: %v", id, err)
			}
			expFlags.writeReports(cr, "-collect")
			results = append(results, cr)
		}

		if err := campaignFailure(results...); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

// runPass runs one campaign of exp in mode and prints its results table.
// sim may be nil for a collection pass.
func runPass(ctx context.Context, exp *experiment.Experiment, sim sweep.Simulator, id string, mode sweep.Mode, stdout io.Writer, serve bool) (*sweep.CampaignResult, error) {
	campaign, err := exp.Campaign(id, mode)
	if err != nil {
		return nil, err
	}

	s, err := expFlags.openSinks(id, mode, len(campaign.Sweeps), stdout, serve)
	if err != nil {
		return nil, err
	}
	defer s.close()

	driver := sweep.NewDriver(sim, garnet.StatsReader{}, exp.Layout(), s.observers...).
		WithTraceLevel(exp.TraceLevel())
	cr, err := driver.RunCampaign(ctx, campaign)
	if err != nil {
		return nil, err
	}
	report.PrintResults(stdout, cr)
	return cr, nil
}

// campaignFailure joins the sweep errors of every pass. Each error names
// the failing run's pattern, VC count, nodes and rate.
func campaignFailure(results ...*sweep.CampaignResult) error {
	var errs []error
	failed := 0
	for _, cr := range results {
		if err := cr.Err(); err != nil {
			errs = append(errs, err)
			failed += len(cr.Errors)
		}
	}
	if failed == 0 {
		return nil
	}
	return fmt.Errorf("%d sweep(s) failed:\n%w", failed, errors.Join(errs...))
}

func campaignID() string {
	if expFlags.campaignID != "" {
		return expFlags.campaignID
	}
	return xid.New().String()
}
