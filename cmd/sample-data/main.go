// Command sample-data writes payroll document folders with matching ledger
// workbooks for trying out and testing the reconciler.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"payroll-reconciliation-service/pkg/logger"
)

var (
	outputDir string
	seed      int64
	workers   int
	scenario  string
)

var rootCmd = &cobra.Command{
	Use:   "sample-data",
	Short: "Generate payroll reconciliation scenarios",
	Long: `Generate writes one folder per scenario containing payroll reports,
a ledger.xlsx and an expected.csv describing the outcome a reconciliation of
that folder should produce.

Examples:
  sample-data --scenario all --output-dir generated
  sample-data --scenario random --workers 8 --seed 42`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		generator := NewScenarioGenerator(outputDir, seed, workers)
		if scenario == "all" {
			if err := generator.GenerateAll(); err != nil {
				return err
			}
		} else if err := generator.Generate(scenario); err != nil {
			return err
		}

		logger.WithFields(logger.Fields{
			"scenario":   scenario,
			"seed":       seed,
			"output_dir": outputDir,
		}).Debug("Generation finished")

		fmt.Fprintf(cmd.OutOrStdout(), "Generated scenarios in %s\n", outputDir)
		fmt.Fprintf(cmd.OutOrStdout(), "Seed used: %d\n", seed)
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVar(&outputDir, "output-dir", "generated", "output directory for scenario folders")
	rootCmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed for reproducible generation")
	rootCmd.Flags().IntVar(&workers, "workers", 0, "workers in the random scenario (default: whole pool)")
	rootCmd.Flags().StringVar(&scenario, "scenario", "all", "scenario to generate: spelling, reversed, unmatched, unnamed, random, all")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.WithError(err).Error("Generation failed")
		os.Exit(1)
	}
}
