// Package scoring computes answer scores for screening questions.
package scoring

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/screening-agent/internal/types"
)

const (
	// MaxScore is the upper bound of every score.
	MaxScore = 100.0
	// belowThresholdScale caps semantic scores under the similarity threshold.
	belowThresholdScale = 70.0
	// NumericScore is the fixed score assigned to numeric answers.
	NumericScore = 70.0
	// UnclearScore is assigned to boolean answers that are neither affirmative nor negative.
	UnclearScore = 50.0
)

// IdealEmbeddings looks up the stored ideal-answer embedding of a question.
// A missing embedding is reported as a nil slice and no error.
type IdealEmbeddings interface {
	GetIdealEmbedding(ctx context.Context, questionID uuid.UUID) ([]float32, error)
}

// SimilarityFunc returns the cosine similarity of two vectors in [-1, 1].
type SimilarityFunc func(a, b []float32) float64

// Result is the outcome of scoring one answer.
type Result struct {
	Score           float64
	Similarity      *float64
	MatchedKeywords []string
	Feedback        types.Feedback
}

// Engine dispatches an answer to the strategy configured on its question.
type Engine struct {
	ideals     IdealEmbeddings
	similarity SimilarityFunc
}

// NewEngine creates a scoring engine. ideals and similarity are only used by semantic questions.
func NewEngine(ideals IdealEmbeddings, similarity SimilarityFunc) *Engine {
	return &Engine{ideals: ideals, similarity: similarity}
}

// Score evaluates answer against q. answerEmbedding is required for semantic questions;
// when it or the ideal answer data is missing the score degrades to zero.
func (e *Engine) Score(ctx context.Context, answer string, q *types.Question, answerEmbedding []float32) (Result, error) {
	if q == nil {
		return Result{}, fmt.Errorf("question is nil")
	}

	var (
		res Result
		err error
	)
	switch q.ValidationType {
	case types.ValidationSemantic:
		res, err = e.scoreSemantic(ctx, q, answerEmbedding)
	case types.ValidationKeyword:
		res = ScoreKeywords(answer, q.ExpectedKeywords)
	case types.ValidationBoolean:
		res = ScoreBoolean(answer)
	case types.ValidationNumeric:
		res = ScoreNumeric()
	default:
		return Result{}, fmt.Errorf("unknown validation type %q", q.ValidationType)
	}
	if err != nil {
		return Result{}, err
	}

	res.Score = clamp(res.Score)
	if res.MatchedKeywords == nil {
		res.MatchedKeywords = []string{}
	}
	return res, nil
}

func (e *Engine) scoreSemantic(ctx context.Context, q *types.Question, answerEmbedding []float32) (Result, error) {
	if strings.TrimSpace(q.IdealAnswer) == "" || len(answerEmbedding) == 0 || e.ideals == nil || e.similarity == nil {
		return Result{}, nil
	}

	ideal, err := e.ideals.GetIdealEmbedding(ctx, q.ID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load ideal embedding for question %s: %w", q.ID, err)
	}
	if len(ideal) == 0 {
		return Result{}, nil
	}

	similarity := e.similarity(answerEmbedding, ideal)
	threshold := q.Threshold()
	rounded := math.Round(similarity*1e4) / 1e4

	return Result{
		Score:      SemanticScore(similarity, threshold),
		Similarity: &similarity,
		Feedback: types.Feedback{
			Similarity: &rounded,
			Threshold:  &threshold,
		},
	}, nil
}

// SemanticScore maps a similarity onto the 0-100 scale relative to threshold.
// At or above the threshold the score grows linearly to 100; below it the score is capped at 70.
func SemanticScore(similarity, threshold float64) float64 {
	if threshold <= 0 {
		threshold = types.DefaultMinSimilarity
	}
	ratio := similarity / threshold
	if similarity >= threshold {
		return clamp(ratio * MaxScore)
	}
	return clamp(ratio * belowThresholdScale)
}

// ScoreKeywords scores the share of expected keywords contained in the answer, case-insensitively.
func ScoreKeywords(answer string, keywords []string) Result {
	lower := strings.ToLower(answer)
	matched := []string{}
	total := 0
	for _, kw := range keywords {
		if strings.TrimSpace(kw) == "" {
			continue
		}
		total++
		if strings.Contains(lower, strings.ToLower(kw)) {
			matched = append(matched, kw)
		}
	}

	var score float64
	if total > 0 {
		score = float64(len(matched)) / float64(total) * MaxScore
	}

	nMatched, nTotal := len(matched), total
	return Result{
		Score:           score,
		MatchedKeywords: matched,
		Feedback: types.Feedback{
			Matched: &nMatched,
			Total:   &nTotal,
		},
	}
}

// ScoreBoolean classifies a yes/no answer. Affirmative tokens are checked first.
func ScoreBoolean(answer string) Result {
	switch Classify(answer) {
	case Affirmative:
		return Result{Score: MaxScore, Feedback: types.Feedback{Response: string(Affirmative)}}
	case Negative:
		return Result{Score: 0, Feedback: types.Feedback{Response: string(Negative)}}
	default:
		return Result{Score: UnclearScore, Feedback: types.Feedback{Response: string(Unclear)}}
	}
}

// ScoreNumeric returns the fixed placeholder score for numeric answers.
func ScoreNumeric() Result {
	return Result{Score: NumericScore, Feedback: types.Feedback{Type: "numeric_answer_detected"}}
}

func clamp(score float64) float64 {
	if math.IsNaN(score) || score < 0 {
		return 0
	}
	return math.Min(MaxScore, score)
}
