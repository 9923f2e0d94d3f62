package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/caveplan/app"
	"github.com/kilianp07/caveplan/infra/importer"
)

var (
	showFormat string
	exportPath string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Inspect the configured production plan",
}

var planValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the plan structure and its speed ramp coverage",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		plan, err := app.LoadPlan(cfg.Inputs)
		if err != nil {
			return err
		}
		if err := plan.CheckRampCoverage(); err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "plan %s is valid: %d periods, %d speed brackets\n",
			plan.Name, len(plan.Targets), len(plan.Speeds))
		return err
	},
}

var planShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the plan as YAML or JSON, or export it",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		plan, err := app.LoadPlan(cfg.Inputs)
		if err != nil {
			return err
		}
		if exportPath != "" {
			return importer.SavePlan(exportPath, plan, cfg.Inputs.Plan.Schema)
		}
		switch showFormat {
		case "yaml":
			return importer.WritePlanYAML(cmd.OutOrStdout(), plan)
		case "json":
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(plan)
		}
		return fmt.Errorf("unknown format %q", showFormat)
	},
}

func init() {
	planShowCmd.Flags().StringVarP(&showFormat, "format", "f", "yaml", "output format: yaml or json")
	planShowCmd.Flags().StringVarP(&exportPath, "export", "o", "", "write the plan to a .yaml/.json file or an existing csv directory")
	planCmd.AddCommand(planValidateCmd, planShowCmd)
	rootCmd.AddCommand(planCmd)
}
