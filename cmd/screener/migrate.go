package main

import (
	"fmt"
	"os"

	"github.com/jonathan/screening-agent/internal/db"
	"github.com/spf13/cobra"
)

var migrateList bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Long:  "Applies the embedded SQL migrations that have not been recorded in schema_migrations yet.",
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateList, "list", false, "List embedded migrations without applying them")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	if migrateList {
		migrations, err := db.Migrations()
		if err != nil {
			return err
		}
		for _, m := range migrations {
			_, _ = fmt.Fprintf(os.Stdout, "%s\n", m.Version)
		}
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

	applied, err := database.Migrate(cmd.Context())
	if err != nil {
		return err
	}

	if len(applied) == 0 {
		_, _ = fmt.Fprintf(os.Stdout, "Database is up to date\n")
		return nil
	}
	for _, v := range applied {
		_, _ = fmt.Fprintf(os.Stdout, "Applied %s\n", v)
	}
	return nil
}
