package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HatiCode/skillhalflife/pkg/forecast"
	"github.com/HatiCode/skillhalflife/pkg/gap"
	"github.com/HatiCode/skillhalflife/pkg/halflife"
	"github.com/HatiCode/skillhalflife/pkg/pivot"
	"github.com/HatiCode/skillhalflife/pkg/scenario"
)

// analysisFlags are shared by the commands that run the half-life model.
type analysisFlags struct {
	startYear     int
	recentWindow  int
	forecastYears int
}

func (f *analysisFlags) register(cmd *cobra.Command) {
	def := halflife.DefaultConfig()
	cmd.Flags().IntVar(&f.startYear, "start-year", def.StartYear, "Year of the first observation")
	cmd.Flags().IntVar(&f.recentWindow, "recent-window", def.RecentWindow, "Years used for the recent-trend fit")
	cmd.Flags().IntVar(&f.forecastYears, "forecast-years", def.ForecastYears, "Years projected after the last observation")
}

func (f *analysisFlags) config() halflife.Config {
	return halflife.Config{StartYear: f.startYear, RecentWindow: f.recentWindow, ForecastYears: f.forecastYears}
}

func newHalfLifeCmd() *cobra.Command {
	var (
		input string
		af    analysisFlags
	)
	cmd := &cobra.Command{
		Use:   "half-life",
		Short: "Estimate the demand half-life of a 40-year series",
		Long:  `Reads {"demand_data": [...]} and prints peak, decay, half-life crossing, signals and a short forecast.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var req struct {
				DemandData []float64 `json:"demand_data"`
			}
			if err := readJSON(cmd, input, &req); err != nil {
				return err
			}
			result, err := halflife.Estimate(req.DemandData, af.config())
			if err != nil {
				return err
			}
			return writeJSON(cmd, result)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "JSON input file, or - for stdin (required)")
	af.register(cmd)
	markRequired(cmd, "input")
	return cmd
}

func newForecastCmd() *cobra.Command {
	var (
		input   string
		horizon int
		opts    = forecast.DefaultOptions()
	)
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Project a series forward with the recent-window linear model",
		Long:  `Reads {"values": [...]} (at least 8 points) and prints the projected points.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var req struct {
				Values []float64 `json:"values"`
			}
			if err := readJSON(cmd, input, &req); err != nil {
				return err
			}
			opts.HorizonYears = horizon
			result, err := forecast.New(opts).Predict(req.Values)
			if err != nil {
				return err
			}
			return writeJSON(cmd, result)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "JSON input file, or - for stdin (required)")
	cmd.Flags().IntVar(&horizon, "horizon", opts.HorizonYears, "Years to project")
	cmd.Flags().IntVar(&opts.StartYear, "start-year", opts.StartYear, "Year of the first value")
	cmd.Flags().IntVar(&opts.RecentWindow, "recent-window", opts.RecentWindow, "Years used for the fit")
	markRequired(cmd, "input")
	return cmd
}

func newSimulateCmd() *cobra.Command {
	var (
		input  string
		shocks scenario.Shocks
		af     analysisFlags
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Apply market shocks and recompute half-life and risk",
		Long:  `Reads {"demand_data": [...], "salary_data": [...], "competition_data": [...]} (40 values each).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var req struct {
				DemandData      []float64 `json:"demand_data"`
				SalaryData      []float64 `json:"salary_data"`
				CompetitionData []float64 `json:"competition_data"`
			}
			if err := readJSON(cmd, input, &req); err != nil {
				return err
			}
			result, err := scenario.Simulate(req.DemandData, req.SalaryData, req.CompetitionData, shocks, af.config())
			if err != nil {
				return err
			}
			return writeJSON(cmd, result)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "JSON input file, or - for stdin (required)")
	cmd.Flags().Float64Var(&shocks.AutomationIncreasePct, "automation-increase", 0, "Automation risk increase in percent (-50..300)")
	cmd.Flags().Float64Var(&shocks.DemandDropPct, "demand-drop", 0, "Demand drop in percent (-95..100)")
	cmd.Flags().Float64Var(&shocks.SalaryShiftPct, "salary-shift", 0, "Salary shift in percent (-95..150)")
	af.register(cmd)
	markRequired(cmd, "input")
	return cmd
}

func newPivotCmd() *cobra.Command {
	var skill, catalogFile string
	cmd := &cobra.Command{
		Use:   "pivot",
		Short: "Recommend safe, moderate and aggressive pivot skills",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var catalog pivot.Catalog
			if catalogFile != "" {
				c, err := pivot.LoadCatalog(catalogFile)
				if err != nil {
					return err
				}
				catalog = c
			}
			rec, err := pivot.Recommend(skill, catalog)
			if err != nil {
				return err
			}
			return writeJSON(cmd, rec)
		},
	}
	cmd.Flags().StringVarP(&skill, "skill", "s", "", "Current skill (required)")
	cmd.Flags().StringVar(&catalogFile, "catalog", "", "YAML catalog replacing the built-in profiles")
	markRequired(cmd, "skill")
	return cmd
}

func newGapCmd() *cobra.Command {
	var user, region []string
	cmd := &cobra.Command{
		Use:   "gap",
		Short: "Compare your skills with a region's top skills",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeJSON(cmd, gap.Compare(user, region))
		},
	}
	cmd.Flags().StringSliceVar(&user, "user", nil, "Your skills, comma separated")
	cmd.Flags().StringSliceVar(&region, "region", nil, "Region top skills, comma separated (required)")
	markRequired(cmd, "region")
	return cmd
}

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect pivot catalogs",
	}

	var file string
	validate := &cobra.Command{
		Use:   "validate",
		Short: "Check a YAML catalog against the catalog schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := pivot.LoadCatalog(file)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d profiles OK\n", file, len(catalog))
			return nil
		},
	}
	validate.Flags().StringVarP(&file, "file", "f", "", "Catalog file (required)")
	markRequired(validate, "file")

	show := &cobra.Command{
		Use:   "default",
		Short: "Print the built-in catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeJSON(cmd, map[string]any{"profiles": pivot.DefaultCatalog()})
		},
	}

	cmd.AddCommand(validate, show)
	return cmd
}
