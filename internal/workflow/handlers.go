package workflow

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/screening-agent/internal/logger"
	"github.com/jonathan/screening-agent/internal/progress"
	"github.com/jonathan/screening-agent/internal/scoring"
	"github.com/jonathan/screening-agent/internal/types"
	"go.uber.org/zap"
)

var (
	confirmTokens   = []string{"si", "sí", "correcto"}
	rejectTokens    = []string{"no"}
	readinessTokens = []string{"listo", "empezar", "comenzar", "continuar"}
)

const maxLoggedAnswer = 80

func (m *Machine) greet(ctx context.Context, st State, t *turn) (State, outcome, error) {
	t.consume()

	positions, err := m.deps.Catalog.ListActivePositions(ctx)
	if err != nil {
		return st, yield, fmt.Errorf("failed to list positions: %w", err)
	}
	if len(positions) == 0 {
		return m.closeWith(st, t, msgNoPositions)
	}

	st.AvailablePositions = positions
	st = m.say(st, t, greetingMessage(positions))
	st.Stage = StageAwaitingPosition
	st.ShouldClose = false
	st.IsComplete = false
	return st, yield, nil
}

func (m *Machine) selectPosition(ctx context.Context, st State, t *turn) (State, outcome, error) {
	input := t.consume()

	if len(st.AvailablePositions) == 0 {
		positions, err := m.deps.Catalog.ListActivePositions(ctx)
		if err != nil {
			return st, yield, fmt.Errorf("failed to list positions: %w", err)
		}
		st.AvailablePositions = positions
	}

	selected := matchPosition(input, st.AvailablePositions)
	if selected == nil {
		st = m.say(st, t, msgPositionNotFound)
		return st, yield, nil
	}

	st.PositionID = selected.ID
	st.SelectedPositionTitle = selected.Title
	st.Stage = StagePositionSelected
	st = m.say(st, t, positionSelectedMessage(selected.Title))
	return st, proceed, nil
}

// matchPosition resolves user input against the listed positions. An in-range number
// selects by index; otherwise titles are tried by exact match, substring and word overlap.
func matchPosition(input string, positions []types.Position) *types.Position {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}

	if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(positions) {
		return &positions[n-1]
	}

	lower := strings.ToLower(input)
	for i := range positions {
		if strings.ToLower(positions[i].Title) == lower {
			return &positions[i]
		}
	}
	for i := range positions {
		if strings.Contains(strings.ToLower(positions[i].Title), lower) {
			return &positions[i]
		}
	}

	userWords := wordSet(lower)
	need := min(2, len(userWords))
	for i := range positions {
		shared := 0
		for w := range wordSet(strings.ToLower(positions[i].Title)) {
			if userWords[w] {
				shared++
			}
		}
		if shared >= need {
			return &positions[i]
		}
	}
	return nil
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		set[w] = true
	}
	return set
}

func (m *Machine) requestCV(_ context.Context, st State, t *turn) (State, outcome, error) {
	st = m.say(st, t, msgRequestCV)
	st.Stage = StageAwaitingCV
	return st, yield, nil
}

func (m *Machine) displayCV(ctx context.Context, st State, t *turn) (State, outcome, error) {
	t.consume()

	if st.ProspectID == uuid.Nil {
		return m.closeWith(st, t, msgProspectMissing)
	}
	prospect, err := m.deps.Prospects.GetProspect(ctx, st.ProspectID)
	if err != nil {
		return st, yield, fmt.Errorf("failed to load prospect: %w", err)
	}
	if prospect == nil {
		return m.closeWith(st, t, msgProspectMissing)
	}

	if st.ProspectName == "" {
		st.ProspectName = prospect.FullName()
	}
	if st.ProspectEmail == "" {
		st.ProspectEmail = prospect.Email
	}

	st = m.say(st, t, extractedDataMessage(prospect))
	st.Stage = StageAwaitingConfirmation
	return st, yield, nil
}

func (m *Machine) confirm(_ context.Context, st State, t *turn) (State, outcome, error) {
	reply := strings.ToLower(t.consume())

	switch {
	case scoring.ContainsAny(reply, confirmTokens):
		st.DataConfirmed = true
		st.Stage = StageDataConfirmed
		st = m.say(st, t, msgConfirmed)
		return st, proceed, nil
	case scoring.ContainsAny(reply, rejectTokens):
		st = m.say(st, t, msgRejectedData)
		st.CVUploaded = false
		st.DataConfirmed = false
		st.Stage = StageAwaitingCV
		return st, yield, nil
	default:
		st = m.say(st, t, msgConfirmUnclear)
		return st, yield, nil
	}
}

func (m *Machine) initEvaluation(ctx context.Context, st State, t *turn) (State, outcome, error) {
	switch {
	case !st.DataConfirmed:
		return m.closeWith(st, t, msgNotConfirmed)
	case st.ProspectID == uuid.Nil:
		return m.closeWith(st, t, msgNoProspect)
	case st.PositionID == uuid.Nil:
		return m.closeWith(st, t, msgNoPosition)
	}

	now := m.deps.Now()
	reclaimed, err := m.deps.Evaluations.ReclaimOrphanedEvaluations(ctx, st.ProspectID, st.PositionID, now.Add(-m.cfg.ResumeWindow))
	if err != nil {
		return st, yield, fmt.Errorf("failed to reclaim orphaned evaluations: %w", err)
	}
	if reclaimed > 0 {
		m.log.Info("reclaimed orphaned evaluations",
			logger.Session(st.SessionToken),
			zap.Int64("count", reclaimed))
	}

	existing, err := m.deps.Evaluations.FindInProgressEvaluation(ctx, st.ProspectID, st.PositionID)
	if err != nil {
		return st, yield, fmt.Errorf("failed to find in-progress evaluation: %w", err)
	}

	if existing != nil {
		age := now.Sub(existing.StartedAt)
		if age > m.cfg.ResumeWindow {
			return m.closeWith(st, t, abandonedMessage(int(age.Minutes())))
		}

		totals, err := m.loadTotals(ctx, st.PositionID)
		if err != nil {
			return st, yield, err
		}
		st.EvaluationID = existing.ID
		st.Cursor = progress.Cursor{Test: existing.CurrentTest, Question: existing.CurrentQuestion}
		st.Totals = totals
		st.Stage = StageInProgress
		st.WaitingForStart = false
		st = m.say(st, t, resumeMessage(st.Cursor))
		m.log.Info("resumed evaluation",
			logger.Session(st.SessionToken),
			zap.String("evaluation", existing.ID.String()),
			zap.Stringer("cursor", st.Cursor))
		return st, proceed, nil
	}

	totals, err := m.loadTotals(ctx, st.PositionID)
	if err != nil {
		return st, yield, err
	}
	if totals.Test1 == 0 {
		return m.closeWith(st, t, msgNoQuestions)
	}

	id, err := m.deps.Evaluations.CreateEvaluation(ctx, st.ProspectID, st.PositionID, st.SessionToken, progress.Start, now)
	if err != nil {
		return st, yield, fmt.Errorf("failed to create evaluation: %w", err)
	}

	st.EvaluationID = id
	st.Cursor = progress.Start
	st.Totals = totals
	st.Stage = StageEvaluationInitialized
	m.log.Info("created evaluation",
		logger.Session(st.SessionToken),
		zap.String("evaluation", id.String()),
		zap.Int("test1_questions", totals.Test1),
		zap.Int("test2_questions", totals.Test2))
	return st, proceed, nil
}

func (m *Machine) loadTotals(ctx context.Context, positionID uuid.UUID) (progress.Totals, error) {
	q1, err := m.deps.Catalog.ListQuestions(ctx, positionID, progress.TechnicalTest)
	if err != nil {
		return progress.Totals{}, fmt.Errorf("failed to list test 1 questions: %w", err)
	}
	q2, err := m.deps.Catalog.ListQuestions(ctx, positionID, progress.TransversalTest)
	if err != nil {
		return progress.Totals{}, fmt.Errorf("failed to list test 2 questions: %w", err)
	}
	return progress.Totals{Test1: len(q1), Test2: len(q2)}, nil
}

func (m *Machine) announceStart(_ context.Context, st State, t *turn) (State, outcome, error) {
	st = m.say(st, t, announceMessage(st.Cursor))
	st.Stage = StageAwaitingStart
	st.WaitingForStart = true
	return st, yield, nil
}

func (m *Machine) awaitStart(_ context.Context, st State, t *turn) (State, outcome, error) {
	reply := strings.ToLower(t.consume())
	if !scoring.ContainsAny(reply, readinessTokens) {
		st = m.say(st, t, msgAwaitReady)
		return st, yield, nil
	}
	st.WaitingForStart = false
	st.Stage = StageInProgress
	return st, proceed, nil
}

func (m *Machine) sendQuestion(ctx context.Context, st State, t *turn) (State, outcome, error) {
	if st.EvaluationID == uuid.Nil {
		return m.closeWith(st, t, msgNoEvaluation)
	}
	if st.Cursor.IsZero() {
		st.IsComplete = true
		st.CurrentQuestion = nil
		return st, proceed, nil
	}

	questions, err := m.deps.Catalog.ListQuestions(ctx, st.PositionID, st.Cursor.Test)
	if err != nil {
		return st, yield, fmt.Errorf("failed to list questions: %w", err)
	}

	idx := st.Cursor.Question - 1
	if idx < 0 || idx >= len(questions) {
		st.IsComplete = true
		st.CurrentQuestion = nil
		return st, proceed, nil
	}

	q := questions[idx]
	st.CurrentQuestion = &q
	total := st.Totals.For(st.Cursor.Test)
	if total == 0 {
		total = len(questions)
	}
	st = m.say(st, t, questionMessage(st.ProspectName, st.Cursor, total, q.Text))
	return st, yield, nil
}

func (m *Machine) scoreAnswer(ctx context.Context, st State, t *turn) (State, outcome, error) {
	answer := t.consume()

	q := st.CurrentQuestion
	if q == nil {
		return m.closeWith(st, t, msgQuestionMissing)
	}
	if st.EvaluationID == uuid.Nil {
		return m.closeWith(st, t, msgNoEvaluation)
	}

	var embedding []float32
	if q.ValidationType == types.ValidationSemantic {
		var err error
		embedding, err = m.deps.Embedder.Embed(ctx, answer)
		if err != nil {
			return st, yield, fmt.Errorf("failed to embed answer: %w", err)
		}
	}

	res, err := m.deps.Scorer.Score(ctx, answer, q, embedding)
	if err != nil {
		return st, yield, fmt.Errorf("failed to score answer: %w", err)
	}

	next, done := progress.Advance(st.Cursor, st.Totals)
	record := &types.Answer{
		ID:              uuid.New(),
		EvaluationID:    st.EvaluationID,
		QuestionID:      q.ID,
		Text:            answer,
		Embedding:       embedding,
		Score:           res.Score,
		Similarity:      res.Similarity,
		MatchedKeywords: res.MatchedKeywords,
		Feedback:        res.Feedback,
		CreatedAt:       m.deps.Now(),
	}
	recorded, err := m.deps.Evaluations.RecordAnswer(ctx, record, st.Cursor, next)
	if err != nil {
		return st, yield, fmt.Errorf("failed to record answer: %w", err)
	}

	m.log.Info("answer scored",
		logger.Session(st.SessionToken),
		zap.Stringer("cursor", st.Cursor),
		zap.String("type", string(q.ValidationType)),
		zap.Float64("score", res.Score),
		zap.Bool("recorded", recorded),
		zap.String("answer", logger.Truncate(answer, maxLoggedAnswer)))

	st.Cursor = next
	st.CurrentQuestion = nil
	if done {
		st.IsComplete = true
	}
	return st, proceed, nil
}

func (m *Machine) complete(ctx context.Context, st State, t *turn) (State, outcome, error) {
	if st.EvaluationID == uuid.Nil {
		return m.closeWith(st, t, msgNoEvaluation)
	}

	if err := m.deps.Evaluations.ComputeFinalScores(ctx, st.EvaluationID); err != nil {
		return st, yield, fmt.Errorf("failed to compute final scores: %w", err)
	}
	ev, err := m.deps.Evaluations.GetEvaluation(ctx, st.EvaluationID)
	if err != nil {
		return st, yield, fmt.Errorf("failed to load evaluation: %w", err)
	}
	if ev == nil {
		return st, yield, fmt.Errorf("evaluation %s not found", st.EvaluationID)
	}
	prospect, err := m.deps.Prospects.GetProspect(ctx, st.ProspectID)
	if err != nil {
		return st, yield, fmt.Errorf("failed to load prospect: %w", err)
	}

	title, err := m.deps.Catalog.GetPositionTitle(ctx, st.PositionID)
	if err != nil {
		m.log.Warn("failed to load position title", zap.Error(err))
	}
	if title == "" {
		title = msgDefaultPosition
	}

	switch {
	case ev.EmailSent:
		m.log.Info("notifications already sent", zap.String("evaluation", ev.ID.String()))
	case prospect != nil && prospect.Email != "":
		m.notify(ctx, ev, prospect, title)
	}

	st = m.say(st, t, finalMessage(ev.Scores(), ev.Passed()))
	st.ShouldClose = true
	st.IsComplete = true
	st.Stage = StageCompleted
	m.log.Info("evaluation completed",
		logger.Session(st.SessionToken),
		zap.String("evaluation", ev.ID.String()),
		zap.Float64("total", ev.Scores().Total),
		zap.Bool("passed", ev.Passed()))
	return st, yield, nil
}

// notify sends the outcome emails. Failures are logged and never fail the turn.
func (m *Machine) notify(ctx context.Context, ev *types.Evaluation, p *types.Prospect, positionTitle string) {
	scores := ev.Scores()
	log := m.log.With(zap.String("evaluation", ev.ID.String()))

	resultErr := m.deps.Notifier.SendResult(ctx, types.ResultNotice{
		Email:  p.Email,
		Name:   p.FullName(),
		Scores: scores,
		Passed: ev.Passed(),
	})
	if resultErr != nil {
		log.Warn("failed to send result email", zap.Error(resultErr))
	}

	if ev.Passed() {
		if err := m.deps.Notifier.SendHRAlert(ctx, types.HRAlert{
			EvaluationID:  ev.ID,
			ProspectName:  p.FullName(),
			PositionTitle: positionTitle,
			Scores:        scores,
		}); err != nil {
			log.Warn("failed to send HR alert", zap.Error(err))
		}
	}

	if resultErr == nil {
		if err := m.deps.Evaluations.MarkNotificationSent(ctx, ev.ID); err != nil {
			log.Warn("failed to mark notification sent", zap.Error(err))
		}
	}
}
