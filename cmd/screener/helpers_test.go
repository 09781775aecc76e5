package main

import (
	"os"
	"path/filepath"
	"testing"
)

// getBinaryPath returns the path to the screener binary for CLI tests
func getBinaryPath(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping CLI tests in short mode")
	}

	binaryPath := filepath.Join("..", "..", "bin", "screener")
	if _, err := os.Stat(binaryPath); os.IsNotExist(err) {
		t.Skipf("Binary not found at %s, build it first with 'go build -o bin/screener ./cmd/screener'", binaryPath)
	}
	return binaryPath
}

// catalogFixture is the seed file shared with the seed package tests.
func catalogFixture() string {
	return filepath.Join("..", "..", "internal", "seed", "testdata", "catalog.yaml")
}

// withFlags restores the package-level flag variables after a test.
func withFlags(t *testing.T) {
	t.Helper()
	saved := struct {
		config, file   string
		json, debug    bool
		dryRun, list   bool
		verbose        bool
		port           int
		migrate, embed bool
	}{configPath, seedFile, logJSON, logDebug, seedDryRun, migrateList, seedVerbose, servePort, serveMigrate, serveEmbedQuestions}
	t.Cleanup(func() {
		configPath, seedFile = saved.config, saved.file
		logJSON, logDebug = saved.json, saved.debug
		seedDryRun, migrateList = saved.dryRun, saved.list
		servePort, serveMigrate, serveEmbedQuestions = saved.port, saved.migrate, saved.embed
		seedVerbose = saved.verbose
	})
}
