package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/caveplan/core/store"
)

var (
	runsPlan  string
	runsSince string
	runsUntil string
	runsLimit int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Browse the run history",
}

var runsListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List stored runs",
	RunE:    listRuns,
}

func init() {
	runsListCmd.Flags().StringVar(&runsPlan, "plan", "", "only runs of this plan")
	runsListCmd.Flags().StringVar(&runsSince, "since", "", "only runs started at or after this RFC 3339 time")
	runsListCmd.Flags().StringVar(&runsUntil, "until", "", "only runs started at or before this RFC 3339 time")
	runsListCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "most recent runs to show, 0 for all")
	runsCmd.AddCommand(runsListCmd)
	rootCmd.AddCommand(runsCmd)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

func listRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	q := store.RunQuery{Plan: runsPlan, Limit: runsLimit}
	if q.Start, err = parseTime(runsSince); err != nil {
		return fmt.Errorf("--since: %w", err)
	}
	if q.End, err = parseTime(runsUntil); err != nil {
		return fmt.Errorf("--until: %w", err)
	}
	st, err := store.New(cfg.Store)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	runs, err := st.Query(cmd.Context(), q)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tPLAN\tAPPORTIONER\tSTARTED\tTARGET\tEXTRACTED\tSTATUS")
	for _, r := range runs {
		status := "ok"
		if r.Error != "" {
			status = r.Error
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.3f\t%.3f\t%s\n",
			r.ID, r.Plan, r.Apportioner, r.Started.Format(time.RFC3339), r.TargetTonnage, r.ExtractedTonnage, status)
	}
	return tw.Flush()
}
