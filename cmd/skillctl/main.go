// Command skillctl runs the skill half-life analyses from the command line.
//
// Ad-hoc analyses read a JSON document (a file path or "-" for stdin) with
// the same field names the analyst HTTP API accepts:
//
//	skillctl half-life --input demand.json
//	skillctl forecast --input series.json --horizon 3
//	skillctl simulate --input scenario.json --demand-drop 20
//	skillctl pivot --skill "Java Backend" --catalog catalog.yaml
//	skillctl gap --user Go,SQL --region Go,Kubernetes,Terraform
//
// Stored analyses work against a local SQLite database:
//
//	skillctl seed --db jobs.db --csv job_market.csv
//	skillctl analyze --db jobs.db --country Germany --city Berlin --skill Go
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "skillctl",
		Short:         "Regional skill half-life analytics",
		Long:          "skillctl estimates how fast demand for a skill decays in a region, forecasts near-term demand, scores risk and stability, recommends pivot skills and simulates market shocks.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newHalfLifeCmd(),
		newForecastCmd(),
		newSimulateCmd(),
		newPivotCmd(),
		newGapCmd(),
		newCatalogCmd(),
		newAnalyzeCmd(),
		newSeedCmd(),
	)
	return root
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
