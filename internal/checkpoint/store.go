// Package checkpoint persists encoded conversation snapshots keyed by session token.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Load when a session has no checkpoint.
var ErrNotFound = errors.New("checkpoint not found")

// Store is a last-writer-wins snapshot store. Callers serialize writes per session.
type Store interface {
	Load(ctx context.Context, sessionToken string) ([]byte, error)
	Save(ctx context.Context, sessionToken string, data []byte) error
	Delete(ctx context.Context, sessionToken string) error
	Close() error
}

// Drivers accepted by Open.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	// DriverGormPostgres stores checkpoints in postgres through GORM.
	DriverGormPostgres = "gorm-postgres"
)

func validateToken(sessionToken string) error {
	if strings.TrimSpace(sessionToken) == "" {
		return fmt.Errorf("session token is required")
	}
	return nil
}
