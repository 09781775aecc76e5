package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/screening-agent/internal/progress"
	"github.com/jonathan/screening-agent/internal/scoring"
	"github.com/jonathan/screening-agent/internal/types"
)

// Catalog is the read-only source of positions and question templates.
type Catalog interface {
	ListActivePositions(ctx context.Context) ([]types.Position, error)
	// ListQuestions returns the active questions of a test ordered by their configured order.
	ListQuestions(ctx context.Context, positionID uuid.UUID, testNumber int) ([]types.Question, error)
	GetPositionTitle(ctx context.Context, positionID uuid.UUID) (string, error)
}

// Prospects resolves prospect records. A missing prospect is returned as nil, nil.
type Prospects interface {
	GetProspect(ctx context.Context, id uuid.UUID) (*types.Prospect, error)
}

// Evaluations persists evaluation progress and answers.
type Evaluations interface {
	// ReclaimOrphanedEvaluations marks in-progress evaluations of the pair as abandoned
	// when they have no answers or started before startedBefore.
	ReclaimOrphanedEvaluations(ctx context.Context, prospectID, positionID uuid.UUID, startedBefore time.Time) (int64, error)
	// FindInProgressEvaluation returns the most recently started in-progress evaluation, or nil.
	FindInProgressEvaluation(ctx context.Context, prospectID, positionID uuid.UUID) (*types.Evaluation, error)
	// CreateEvaluation stores startedAt as given; it must come from the same clock as
	// the reclaim cutoff.
	CreateEvaluation(ctx context.Context, prospectID, positionID uuid.UUID, sessionToken string, start progress.Cursor, startedAt time.Time) (uuid.UUID, error)
	// RecordAnswer stores the answer and moves the evaluation cursor from -> to atomically.
	// It reports false when an answer for the same question was already recorded.
	RecordAnswer(ctx context.Context, answer *types.Answer, from, to progress.Cursor) (bool, error)
	// ComputeFinalScores aggregates per-answer scores into test and total scores.
	ComputeFinalScores(ctx context.Context, evaluationID uuid.UUID) error
	GetEvaluation(ctx context.Context, evaluationID uuid.UUID) (*types.Evaluation, error)
	MarkNotificationSent(ctx context.Context, evaluationID uuid.UUID) error
}

// Scorer scores one answer against its question.
type Scorer interface {
	Score(ctx context.Context, answer string, q *types.Question, answerEmbedding []float32) (scoring.Result, error)
}

// Embedder turns answer text into an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Notifier dispatches outcome notifications. Failures are never fatal to a turn.
type Notifier interface {
	SendResult(ctx context.Context, notice types.ResultNotice) error
	SendHRAlert(ctx context.Context, alert types.HRAlert) error
}
