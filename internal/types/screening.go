// Package types provides type definitions for structured data shared across the screening system.
package types

import (
	"time"

	"github.com/google/uuid"
)

// ValidationType selects the scoring strategy applied to a question.
type ValidationType string

// Validation types supported by the scoring engine.
const (
	ValidationSemantic ValidationType = "semantic"
	ValidationKeyword  ValidationType = "keyword"
	ValidationBoolean  ValidationType = "boolean"
	ValidationNumeric  ValidationType = "numeric"
)

// Valid reports whether v is one of the known validation types.
func (v ValidationType) Valid() bool {
	switch v {
	case ValidationSemantic, ValidationKeyword, ValidationBoolean, ValidationNumeric:
		return true
	}
	return false
}

// DefaultMinSimilarity is the semantic threshold used when a question has none configured.
const DefaultMinSimilarity = 0.65

// Position is an open job position offered to candidates.
type Position struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Salary      float64   `json:"salary"`
	Currency    string    `json:"currency"`
}

// Question is a single question template of a position's test.
// IdealEmbedding is never carried in conversation state; it is looked up when scoring.
type Question struct {
	ID               uuid.UUID      `json:"id"`
	PositionID       uuid.UUID      `json:"position_id"`
	Text             string         `json:"text"`
	TestNumber       int            `json:"test_number"`
	Order            int            `json:"order"`
	ValidationType   ValidationType `json:"validation_type"`
	ExpectedKeywords []string       `json:"expected_keywords,omitempty"`
	IdealAnswer      string         `json:"ideal_answer,omitempty"`
	MinSimilarity    float64        `json:"min_similarity"`
	Weight           float64        `json:"weight"`
	Active           bool           `json:"active"`
}

// Threshold returns the semantic similarity threshold, falling back to DefaultMinSimilarity.
func (q *Question) Threshold() float64 {
	if q.MinSimilarity <= 0 {
		return DefaultMinSimilarity
	}
	return q.MinSimilarity
}

// Prospect is a candidate identified from a parsed résumé.
type Prospect struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FullName joins first and last name.
func (p *Prospect) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// EvaluationStatus is the lifecycle status of a persisted evaluation.
type EvaluationStatus string

// Evaluation statuses.
const (
	EvaluationInProgress    EvaluationStatus = "in_progress"
	EvaluationCompleted     EvaluationStatus = "completed"
	EvaluationAbandoned     EvaluationStatus = "abandoned"
	EvaluationPendingReview EvaluationStatus = "pending_review"
)

// Evaluation is the persisted record of one screening attempt.
type Evaluation struct {
	ID              uuid.UUID        `json:"id"`
	ProspectID      uuid.UUID        `json:"prospect_id"`
	PositionID      uuid.UUID        `json:"position_id"`
	SessionToken    string           `json:"session_token"`
	Status          EvaluationStatus `json:"status"`
	CurrentTest     int              `json:"current_test"`
	CurrentQuestion int              `json:"current_question"`
	Test1Score      *float64         `json:"test_1_score,omitempty"`
	Test2Score      *float64         `json:"test_2_score,omitempty"`
	TotalScore      *float64         `json:"total_score,omitempty"`
	PassedAI        *bool            `json:"passed_ai,omitempty"`
	EmailSent       bool             `json:"email_sent"`
	StartedAt       time.Time        `json:"started_at"`
	CompletedAt     *time.Time       `json:"completed_at,omitempty"`
	AnswerCount     int              `json:"answer_count"`
}

// Scores returns the final scores with missing values reported as zero.
func (e *Evaluation) Scores() Scores {
	return Scores{
		Test1: derefFloat(e.Test1Score),
		Test2: derefFloat(e.Test2Score),
		Total: derefFloat(e.TotalScore),
	}
}

// Passed reports whether the evaluation was marked as passed by the aggregator.
func (e *Evaluation) Passed() bool {
	return e.PassedAI != nil && *e.PassedAI
}

// PassThreshold is the minimum total score of a passed evaluation.
const PassThreshold = 70.0

// Scores holds the final aggregate scores of an evaluation.
type Scores struct {
	Test1 float64 `json:"test_1"`
	Test2 float64 `json:"test_2"`
	Total float64 `json:"total"`
}

// Feedback is the structured explanation attached to each scored answer.
type Feedback struct {
	Similarity *float64 `json:"similarity,omitempty"`
	Threshold  *float64 `json:"threshold,omitempty"`
	Matched    *int     `json:"matched,omitempty"`
	Total      *int     `json:"total,omitempty"`
	Response   string   `json:"response,omitempty"`
	Type       string   `json:"type,omitempty"`
}

// Answer is one scored candidate response. Answers are append-only.
type Answer struct {
	ID              uuid.UUID `json:"id"`
	EvaluationID    uuid.UUID `json:"evaluation_id"`
	QuestionID      uuid.UUID `json:"question_id"`
	Text            string    `json:"text"`
	Embedding       []float32 `json:"-"`
	Score           float64   `json:"score"`
	Similarity      *float64  `json:"similarity,omitempty"`
	MatchedKeywords []string  `json:"matched_keywords"`
	Feedback        Feedback  `json:"feedback"`
	CreatedAt       time.Time `json:"created_at"`
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
