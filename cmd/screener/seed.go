package main

import (
	"fmt"
	"os"

	"github.com/jonathan/screening-agent/internal/observability"
	"github.com/jonathan/screening-agent/internal/seed"
	"github.com/spf13/cobra"
)

var (
	seedFile    string
	seedDryRun  bool
	seedVerbose bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load positions and question templates from a YAML file",
	Long:  "Validates a catalog YAML file and upserts its positions and question templates. Re-running a file updates rows in place.",
	RunE:  runSeed,
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "Path to catalog YAML file (required)")
	seedCmd.Flags().BoolVar(&seedDryRun, "dry-run", false, "Validate the file without writing to the database")
	seedCmd.Flags().BoolVarP(&seedVerbose, "verbose", "v", false, "Print the parsed catalog")

	if err := seedCmd.MarkFlagRequired("file"); err != nil {
		panic(fmt.Sprintf("failed to mark file flag as required: %v", err))
	}

	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, _ []string) error {
	entries, err := seed.LoadFile(seedFile)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	if seedVerbose || seedDryRun {
		observability.NewPrinter(os.Stdout).PrintCatalog(entries)
	}
	if seedDryRun {
		_, _ = fmt.Fprintf(os.Stdout, "Catalog is valid\n")
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	database, err := connectDB(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	sum, err := seed.Apply(cmd.Context(), database, entries)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(os.Stdout, "Seeded %d positions and %d questions\n", sum.Positions, sum.Questions)
	return nil
}
