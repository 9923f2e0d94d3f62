package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/caveplan/app"
	"github.com/kilianp07/caveplan/core/schedule"
	"github.com/kilianp07/caveplan/infra/logger"
	"github.com/kilianp07/caveplan/infra/metrics"
)

var (
	metricsAddr  string
	holdMetrics  bool
	showProgress bool
	printSummary bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Schedule the configured production plan",
	RunE:  runSchedule,
}

func init() {
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during the run")
	runCmd.Flags().BoolVar(&holdMetrics, "hold", false, "keep serving metrics after the run until interrupted")
	runCmd.Flags().BoolVar(&showProgress, "progress", false, "print a line per completed period on stderr")
	runCmd.Flags().BoolVar(&printSummary, "summary", true, "print the run summary as JSON on stdout")
	rootCmd.AddCommand(runCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()

	serverDone := make(chan error, 1)
	if metricsAddr != "" {
		go func() { serverDone <- metrics.StartPromServer(ctx, metricsAddr) }()
	}

	var progress func(schedule.PeriodEvent)
	if showProgress {
		stderr := cmd.ErrOrStderr()
		progress = func(ev schedule.PeriodEvent) {
			s := ev.Summary
			_, _ = fmt.Fprintf(stderr, "period %d: %.3f / %.3f t, %d active, %d depleted\n",
				s.Period, s.ExtractedTonnage, s.TargetTonnage, s.ActiveColumns, s.DepletedColumns)
		}
	}
	rep, err := svc.Run(ctx, progress)
	if err != nil {
		return err
	}
	if printSummary {
		if err := app.WriteSummaryJSON(cmd.OutOrStdout(), rep); err != nil {
			return err
		}
	}

	if metricsAddr != "" && holdMetrics {
		select {
		case <-ctx.Done():
			return <-serverDone
		case err := <-serverDone:
			return err
		}
	}
	return nil
}
