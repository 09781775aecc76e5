package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/screening-agent/internal/types"
)

// -----------------------------------------------------------------------------
// Prospect Methods
// -----------------------------------------------------------------------------

// GetProspect retrieves a prospect by ID
func (db *DB) GetProspect(ctx context.Context, id uuid.UUID) (*types.Prospect, error) {
	var p types.Prospect
	err := db.pool.QueryRow(ctx,
		`SELECT id, COALESCE(first_name, ''), COALESCE(last_name, ''), COALESCE(email, ''),
		        COALESCE(phone, ''), created_at
		 FROM prospects WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.Phone, &p.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get prospect: %w", err)
	}
	return &p, nil
}

// UpsertProspect creates a prospect parsed from a CV, or refreshes the one with the same email
func (db *DB) UpsertProspect(ctx context.Context, p *types.Prospect) (*types.Prospect, error) {
	email := strings.ToLower(strings.TrimSpace(p.Email))
	if email == "" {
		return nil, fmt.Errorf("prospect email cannot be empty")
	}
	id := p.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	var out types.Prospect
	err := db.pool.QueryRow(ctx,
		`INSERT INTO prospects (id, first_name, last_name, email, phone, parsed_from_cv)
		 VALUES ($1, $2, $3, $4, $5, TRUE)
		 ON CONFLICT (email) DO UPDATE SET
		     first_name = COALESCE(EXCLUDED.first_name, prospects.first_name),
		     last_name = COALESCE(EXCLUDED.last_name, prospects.last_name),
		     phone = COALESCE(EXCLUDED.phone, prospects.phone)
		 RETURNING id, COALESCE(first_name, ''), COALESCE(last_name, ''), email, COALESCE(phone, ''), created_at`,
		id, nullIfEmpty(p.FirstName), nullIfEmpty(p.LastName), email, nullIfEmpty(p.Phone),
	).Scan(&out.ID, &out.FirstName, &out.LastName, &out.Email, &out.Phone, &out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert prospect: %w", err)
	}
	return &out, nil
}
