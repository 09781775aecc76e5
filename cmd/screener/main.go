// Package main provides the screener CLI: the candidate chat server and its maintenance commands.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logJSON    bool
	logDebug   bool
)

var rootCmd = &cobra.Command{
	Use:   "screener",
	Short: "Candidate screening chat server",
	Long: "Screener runs a conversational candidate screening: candidates pick a position, upload a CV " +
		"and answer two tests over a websocket chat; answers are scored and the outcome is emailed.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML or JSON config file")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "json", false, "Log in JSON format")
	rootCmd.PersistentFlags().BoolVar(&logDebug, "debug", false, "Enable debug logging")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
