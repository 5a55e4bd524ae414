package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/HatiCode/skillhalflife/pkg/analytics"
	"github.com/HatiCode/skillhalflife/pkg/marketdata"
)

func newAnalyzeCmd() *cobra.Command {
	var (
		dbPath string
		key    analytics.Key
		opts   = analytics.DefaultOptions()
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Build the full analytics report for a stored region-skill series",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := key.Validate(); err != nil {
				return err
			}
			src, err := marketdata.OpenSQLite(dbPath)
			if err != nil {
				return err
			}
			defer src.Close()

			rows, err := src.Rows(cmd.Context(), key)
			if err != nil {
				return err
			}
			report, err := analytics.Build(key, rows, opts)
			if err != nil {
				return err
			}
			return writeJSON(cmd, report)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", envOr("SQLITE_PATH", "skillhalflife.db"), "SQLite database file")
	cmd.Flags().StringVar(&key.Country, "country", "", "Country (required)")
	cmd.Flags().StringVar(&key.City, "city", "", "City (required)")
	cmd.Flags().StringVar(&key.Skill, "skill", "", "Skill (required)")
	cmd.Flags().IntVar(&opts.RecentWindow, "recent-window", opts.RecentWindow, "Years used for the recent-trend fit")
	cmd.Flags().IntVar(&opts.ForecastYears, "forecast-years", opts.ForecastYears, "Years projected by the half-life forecast")
	markRequired(cmd, "country", "city", "skill")
	return cmd
}

func newSeedCmd() *cobra.Command {
	var dbPath, csvPath string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load job market rows from CSV into a SQLite database",
		Long:  "The CSV needs a header with country, city, skill, year, demand_index, salary_estimate, job_openings and competition_index. Existing years for a key are overwritten.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(csvPath)
			if err != nil {
				return fmt.Errorf("open csv: %w", err)
			}
			defer f.Close()

			batches, err := marketdata.ReadCSV(f)
			if err != nil {
				return err
			}

			src, err := marketdata.OpenSQLite(dbPath)
			if err != nil {
				return err
			}
			defer src.Close()

			total := 0
			for _, b := range batches {
				if err := src.Upsert(cmd.Context(), b.Key, b.Rows); err != nil {
					return fmt.Errorf("seed %s: %w", b.Key.ID(), err)
				}
				total += len(b.Rows)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d rows for %d region-skill pairs into %s\n", total, len(batches), dbPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", envOr("SQLITE_PATH", "skillhalflife.db"), "SQLite database file")
	cmd.Flags().StringVar(&csvPath, "csv", "", "CSV file to load (required)")
	markRequired(cmd, "csv")
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
