package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/screening-agent/internal/types"
)

// -----------------------------------------------------------------------------
// Catalog Methods
// -----------------------------------------------------------------------------

const questionColumns = `id, position_id, question_text, test_number, question_order, validation_type,
	expected_keywords, COALESCE(ideal_answer, ''), min_similarity::float8, weight::float8, is_active`

// ListActivePositions returns active positions ordered by title
func (db *DB) ListActivePositions(ctx context.Context) ([]types.Position, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, title, COALESCE(description, ''), COALESCE(salary, 0)::float8, currency
		 FROM job_positions
		 WHERE is_active = TRUE
		 ORDER BY created_at, title`)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	defer rows.Close()

	var positions []types.Position
	for rows.Next() {
		var p types.Position
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.Salary, &p.Currency); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate positions: %w", err)
	}
	return positions, nil
}

// GetPositionTitle returns the title of a position, or "" if it does not exist
func (db *DB) GetPositionTitle(ctx context.Context, positionID uuid.UUID) (string, error) {
	var title string
	err := db.pool.QueryRow(ctx,
		`SELECT title FROM job_positions WHERE id = $1`,
		positionID,
	).Scan(&title)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("failed to get position title: %w", err)
	}
	return title, nil
}

// UpsertPosition inserts or updates a position by ID
func (db *DB) UpsertPosition(ctx context.Context, p *types.Position, active bool) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO job_positions (id, title, description, salary, currency, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
		     title = $2, description = $3, salary = $4, currency = $5, is_active = $6, updated_at = NOW()`,
		p.ID, p.Title, nullIfEmpty(p.Description), p.Salary, p.Currency, active,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert position: %w", err)
	}
	return nil
}

// ListQuestions returns the active questions of one test ordered by question_order
func (db *DB) ListQuestions(ctx context.Context, positionID uuid.UUID, testNumber int) ([]types.Question, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+questionColumns+`
		 FROM question_templates
		 WHERE position_id = $1 AND test_number = $2 AND is_active = TRUE
		 ORDER BY question_order`,
		positionID, testNumber,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	return collectQuestions(rows)
}

// ListQuestionsMissingEmbeddings returns active semantic questions with an ideal answer but no embedding
func (db *DB) ListQuestionsMissingEmbeddings(ctx context.Context) ([]types.Question, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+questionColumns+`
		 FROM question_templates
		 WHERE is_active = TRUE
		   AND validation_type = 'semantic'
		   AND COALESCE(ideal_answer, '') <> ''
		   AND ideal_embedding IS NULL
		 ORDER BY position_id, test_number, question_order`)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions without embeddings: %w", err)
	}
	return collectQuestions(rows)
}

func collectQuestions(rows pgx.Rows) ([]types.Question, error) {
	defer rows.Close()

	var questions []types.Question
	for rows.Next() {
		var q types.Question
		var vt string
		var keywords []byte
		if err := rows.Scan(&q.ID, &q.PositionID, &q.Text, &q.TestNumber, &q.Order, &vt,
			&keywords, &q.IdealAnswer, &q.MinSimilarity, &q.Weight, &q.Active); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		q.ValidationType = types.ValidationType(vt)
		if len(keywords) > 0 {
			if err := json.Unmarshal(keywords, &q.ExpectedKeywords); err != nil {
				return nil, fmt.Errorf("failed to unmarshal keywords for question %s: %w", q.ID, err)
			}
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate questions: %w", err)
	}
	return questions, nil
}

// UpsertQuestion inserts or updates a question template by ID. The stored ideal
// embedding is cleared when the ideal answer changes.
func (db *DB) UpsertQuestion(ctx context.Context, q *types.Question) error {
	keywords, err := json.Marshal(nonNilStrings(q.ExpectedKeywords))
	if err != nil {
		return fmt.Errorf("failed to marshal keywords: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO question_templates
		     (id, position_id, question_text, test_number, question_order, validation_type,
		      expected_keywords, ideal_answer, min_similarity, weight, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (id) DO UPDATE SET
		     question_text = $3, test_number = $4, question_order = $5, validation_type = $6,
		     expected_keywords = $7, ideal_answer = $8, min_similarity = $9, weight = $10, is_active = $11,
		     ideal_embedding = CASE
		         WHEN question_templates.ideal_answer IS DISTINCT FROM $8 THEN NULL
		         ELSE question_templates.ideal_embedding
		     END`,
		q.ID, q.PositionID, q.Text, q.TestNumber, q.Order, string(q.ValidationType),
		keywords, nullIfEmpty(q.IdealAnswer), q.Threshold(), q.Weight, q.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert question: %w", err)
	}
	return nil
}

// GetIdealEmbedding returns the stored ideal-answer embedding, or nil if none is stored
func (db *DB) GetIdealEmbedding(ctx context.Context, questionID uuid.UUID) ([]float32, error) {
	var embedding []float32
	err := db.pool.QueryRow(ctx,
		`SELECT ideal_embedding FROM question_templates WHERE id = $1`,
		questionID,
	).Scan(&embedding)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get ideal embedding: %w", err)
	}
	return embedding, nil
}

// SetIdealEmbedding stores the ideal-answer embedding of a question
func (db *DB) SetIdealEmbedding(ctx context.Context, questionID uuid.UUID, embedding []float32) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE question_templates SET ideal_embedding = $1 WHERE id = $2`,
		embedding, questionID,
	)
	if err != nil {
		return fmt.Errorf("failed to set ideal embedding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("question %s not found", questionID)
	}
	return nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
