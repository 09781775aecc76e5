package checkpoint

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore stores checkpoints in the session_checkpoints table created by the
// schema migrations.
type PostgresStore struct {
	pool  *pgxpool.Pool
	owned bool
}

// NewPostgresStore uses an existing pool. Close does not close a shared pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// ConnectPostgres opens a dedicated pool for checkpoints.
func ConnectPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkpoint pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping checkpoint database: %w", err)
	}
	return &PostgresStore{pool: pool, owned: true}, nil
}

func (s *PostgresStore) Load(ctx context.Context, sessionToken string) ([]byte, error) {
	if err := validateToken(sessionToken); err != nil {
		return nil, err
	}

	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT state FROM session_checkpoints WHERE session_token = $1`,
		sessionToken,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	return data, nil
}

func (s *PostgresStore) Save(ctx context.Context, sessionToken string, data []byte) error {
	if err := validateToken(sessionToken); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO session_checkpoints (session_token, state, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (session_token) DO UPDATE
		 SET state = EXCLUDED.state, updated_at = NOW()`,
		sessionToken, data,
	)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, sessionToken string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM session_checkpoints WHERE session_token = $1`, sessionToken)
	if err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s.owned {
		s.pool.Close()
	}
	return nil
}
