package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/screening-agent/internal/progress"
	"github.com/jonathan/screening-agent/internal/types"
)

// -----------------------------------------------------------------------------
// Evaluation Methods
// -----------------------------------------------------------------------------

const evaluationColumns = `e.id, e.prospect_id, e.position_id, e.session_token, e.status,
	e.current_test, e.current_question, e.test_1_score::float8, e.test_2_score::float8,
	e.total_score::float8, e.passed_ai, e.email_sent, e.started_at, e.completed_at,
	(SELECT COUNT(*) FROM evaluation_answers a WHERE a.evaluation_id = e.id)`

func scanEvaluation(row pgx.Row) (*types.Evaluation, error) {
	var e types.Evaluation
	var status string
	err := row.Scan(&e.ID, &e.ProspectID, &e.PositionID, &e.SessionToken, &status,
		&e.CurrentTest, &e.CurrentQuestion, &e.Test1Score, &e.Test2Score,
		&e.TotalScore, &e.PassedAI, &e.EmailSent, &e.StartedAt, &e.CompletedAt, &e.AnswerCount)
	if err != nil {
		return nil, err
	}
	e.Status = types.EvaluationStatus(status)
	return &e, nil
}

// ReclaimOrphanedEvaluations abandons in-progress evaluations of a prospect/position pair
// that have no answers or started before startedBefore
func (db *DB) ReclaimOrphanedEvaluations(ctx context.Context, prospectID, positionID uuid.UUID, startedBefore time.Time) (int64, error) {
	tag, err := db.pool.Exec(ctx,
		`UPDATE evaluations
		 SET status = 'abandoned', completed_at = NOW()
		 WHERE prospect_id = $1
		   AND position_id = $2
		   AND status = 'in_progress'
		   AND (
		       NOT EXISTS (SELECT 1 FROM evaluation_answers a WHERE a.evaluation_id = evaluations.id)
		       OR started_at < $3
		   )`,
		prospectID, positionID, startedBefore,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to reclaim orphaned evaluations: %w", err)
	}
	return tag.RowsAffected(), nil
}

// FindInProgressEvaluation returns the most recently started in-progress evaluation of a pair
func (db *DB) FindInProgressEvaluation(ctx context.Context, prospectID, positionID uuid.UUID) (*types.Evaluation, error) {
	e, err := scanEvaluation(db.pool.QueryRow(ctx,
		`SELECT `+evaluationColumns+`
		 FROM evaluations e
		 WHERE e.prospect_id = $1 AND e.position_id = $2 AND e.status = 'in_progress'
		 ORDER BY e.started_at DESC
		 LIMIT 1`,
		prospectID, positionID,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find in-progress evaluation: %w", err)
	}
	return e, nil
}

// CreateEvaluation inserts a new in-progress evaluation positioned at start
func (db *DB) CreateEvaluation(ctx context.Context, prospectID, positionID uuid.UUID, sessionToken string, start progress.Cursor, startedAt time.Time) (uuid.UUID, error) {
	id := uuid.New()
	_, err := db.pool.Exec(ctx,
		`INSERT INTO evaluations (id, prospect_id, position_id, session_token, status, current_test, current_question, started_at)
		 VALUES ($1, $2, $3, $4, 'in_progress', $5, $6, $7)`,
		id, prospectID, positionID, sessionToken, start.Test, start.Question, startedAt,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create evaluation: %w", err)
	}
	return id, nil
}

// GetEvaluation retrieves an evaluation by ID
func (db *DB) GetEvaluation(ctx context.Context, evaluationID uuid.UUID) (*types.Evaluation, error) {
	e, err := scanEvaluation(db.pool.QueryRow(ctx,
		`SELECT `+evaluationColumns+` FROM evaluations e WHERE e.id = $1`,
		evaluationID,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get evaluation: %w", err)
	}
	return e, nil
}

// RecordAnswer inserts an answer and moves the evaluation cursor from -> to in one
// transaction. A second answer for the same question is ignored and reported as false.
func (db *DB) RecordAnswer(ctx context.Context, a *types.Answer, from, to progress.Cursor) (bool, error) {
	keywords, err := json.Marshal(nonNilStrings(a.MatchedKeywords))
	if err != nil {
		return false, fmt.Errorf("failed to marshal matched keywords: %w", err)
	}
	feedback, err := json.Marshal(a.Feedback)
	if err != nil {
		return false, fmt.Errorf("failed to marshal feedback: %w", err)
	}
	id := a.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	var embedding []float32
	if len(a.Embedding) > 0 {
		embedding = a.Embedding
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`INSERT INTO evaluation_answers
		     (id, evaluation_id, question_id, answer_text, answer_embedding, score,
		      similarity_score, matched_keywords, feedback_points)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (evaluation_id, question_id) DO NOTHING`,
		id, a.EvaluationID, a.QuestionID, a.Text, embedding, a.Score,
		a.Similarity, keywords, feedback,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert answer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	_, err = tx.Exec(ctx,
		`UPDATE evaluations
		 SET current_test = $1, current_question = $2
		 WHERE id = $3 AND current_test = $4 AND current_question = $5`,
		to.Test, to.Question, a.EvaluationID, from.Test, from.Question,
	)
	if err != nil {
		return false, fmt.Errorf("failed to advance evaluation cursor: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit answer: %w", err)
	}
	a.ID = id
	return true, nil
}

// ListAnswers returns the answers of an evaluation in the order they were recorded
func (db *DB) ListAnswers(ctx context.Context, evaluationID uuid.UUID) ([]types.Answer, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, evaluation_id, question_id, answer_text, score::float8, similarity_score::float8,
		        matched_keywords, feedback_points, created_at
		 FROM evaluation_answers
		 WHERE evaluation_id = $1
		 ORDER BY created_at, id`,
		evaluationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}
	defer rows.Close()

	var answers []types.Answer
	for rows.Next() {
		var a types.Answer
		var keywords, feedback []byte
		if err := rows.Scan(&a.ID, &a.EvaluationID, &a.QuestionID, &a.Text, &a.Score, &a.Similarity,
			&keywords, &feedback, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan answer: %w", err)
		}
		if err := json.Unmarshal(keywords, &a.MatchedKeywords); err != nil {
			return nil, fmt.Errorf("failed to unmarshal matched keywords: %w", err)
		}
		if err := json.Unmarshal(feedback, &a.Feedback); err != nil {
			return nil, fmt.Errorf("failed to unmarshal feedback: %w", err)
		}
		answers = append(answers, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate answers: %w", err)
	}
	return answers, nil
}

// ComputeFinalScores runs the calculate_evaluation_scores aggregate for an evaluation
func (db *DB) ComputeFinalScores(ctx context.Context, evaluationID uuid.UUID) error {
	if _, err := db.pool.Exec(ctx, `SELECT calculate_evaluation_scores($1)`, evaluationID); err != nil {
		return fmt.Errorf("failed to compute final scores: %w", err)
	}
	return nil
}

// MarkNotificationSent records that the result email was delivered
func (db *DB) MarkNotificationSent(ctx context.Context, evaluationID uuid.UUID) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE evaluations SET email_sent = TRUE WHERE id = $1`,
		evaluationID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	return nil
}
