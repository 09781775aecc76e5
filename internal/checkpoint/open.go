package checkpoint

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Open builds the store selected by driver. For postgres, a non-nil pool is shared
// with the relational store; otherwise dsn is dialed.
func Open(ctx context.Context, driver, dsn string, pool *pgxpool.Pool) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverMemory:
		return NewMemoryStore(), nil
	case DriverPostgres:
		if pool != nil && dsn == "" {
			return NewPostgresStore(pool), nil
		}
		return ConnectPostgres(ctx, dsn)
	case DriverSQLite:
		return NewGormStore(DriverSQLite, dsn)
	case DriverGormPostgres:
		return NewGormStore(DriverPostgres, dsn)
	default:
		return nil, fmt.Errorf("unsupported checkpoint driver %q", driver)
	}
}
