package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migration is one embedded schema file
type Migration struct {
	Version string
	SQL     string
}

// Migrations returns the embedded migrations in apply order
func Migrations() ([]Migration, error) {
	entries, err := fs.ReadDir(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	var out []Migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		data, err := migrationFiles.ReadFile("migrations/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", e.Name(), err)
		}
		out = append(out, Migration{
			Version: strings.TrimSuffix(e.Name(), ".sql"),
			SQL:     string(data),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Migrate applies pending migrations and returns the versions it applied
func (db *DB) Migrate(ctx context.Context) ([]string, error) {
	migrations, err := Migrations()
	if err != nil {
		return nil, err
	}

	_, err = db.pool.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (
		     version TEXT PRIMARY KEY,
		     applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		 )`)
	if err != nil {
		return nil, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	var applied []string
	for _, m := range migrations {
		ok, err := db.applyMigration(ctx, m)
		if err != nil {
			return applied, err
		}
		if ok {
			applied = append(applied, m.Version)
		}
	}
	return applied, nil
}

func (db *DB) applyMigration(ctx context.Context, m Migration) (bool, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`,
		m.Version,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check migration %s: %w", m.Version, err)
	}
	if exists {
		return false, nil
	}

	if _, err := tx.Exec(ctx, m.SQL); err != nil {
		return false, fmt.Errorf("failed to apply migration %s: %w", m.Version, err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, m.Version); err != nil {
		return false, fmt.Errorf("failed to record migration %s: %w", m.Version, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit migration %s: %w", m.Version, err)
	}
	return true, nil
}
