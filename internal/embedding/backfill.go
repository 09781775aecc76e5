package embedding

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/screening-agent/internal/types"
	"go.uber.org/zap"
)

// QuestionStore lists semantic questions lacking an ideal-answer embedding and stores new ones.
type QuestionStore interface {
	ListQuestionsMissingEmbeddings(ctx context.Context) ([]types.Question, error)
	SetIdealEmbedding(ctx context.Context, questionID uuid.UUID, embedding []float32) error
}

// Backfill embeds the ideal answers of every question the store reports as missing one.
// It returns the number of embeddings stored.
func Backfill(ctx context.Context, store QuestionStore, oracle Oracle, log *zap.Logger) (int, error) {
	if log == nil {
		log = zap.NewNop()
	}

	questions, err := store.ListQuestionsMissingEmbeddings(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list questions: %w", err)
	}
	if len(questions) == 0 {
		return 0, nil
	}

	texts := make([]string, len(questions))
	for i, q := range questions {
		texts[i] = q.IdealAnswer
	}

	vectors, err := oracle.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, err
	}
	if len(vectors) != len(questions) {
		return 0, fmt.Errorf("expected %d embeddings, got %d", len(questions), len(vectors))
	}

	stored := 0
	for i, q := range questions {
		if len(vectors[i]) == 0 {
			log.Warn("empty embedding, skipping question", zap.String("question_id", q.ID.String()))
			continue
		}
		if err := store.SetIdealEmbedding(ctx, q.ID, vectors[i]); err != nil {
			return stored, fmt.Errorf("failed to store embedding for question %s: %w", q.ID, err)
		}
		stored++
	}

	log.Info("ideal embeddings stored", zap.Int("count", stored), zap.Int("candidates", len(questions)))
	return stored, nil
}
