package main

import (
	"fmt"
	"os"

	"github.com/jonathan/screening-agent/internal/embedding"
	"github.com/spf13/cobra"
)

var embedQuestionsCmd = &cobra.Command{
	Use:   "embed-questions",
	Short: "Embed ideal answers of semantic questions",
	Long:  "Computes and stores embeddings for active semantic questions whose ideal answer has none yet.",
	RunE:  runEmbedQuestions,
}

func init() {
	rootCmd.AddCommand(embedQuestionsCmd)
}

func runEmbedQuestions(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Embedding.Provider == string(embedding.ProviderNone) {
		return fmt.Errorf("embedding provider is disabled")
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	database, err := connectDB(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	oracle, err := newOracle(cmd.Context(), cfg.Embedding)
	if err != nil {
		return err
	}
	defer func() { _ = oracle.Close() }()

	n, err := embedding.Backfill(cmd.Context(), database, oracle, log)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(os.Stdout, "Stored %d embeddings\n", n)
	return nil
}
