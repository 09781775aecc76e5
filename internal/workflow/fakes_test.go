package workflow

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/screening-agent/internal/progress"
	"github.com/jonathan/screening-agent/internal/scoring"
	"github.com/jonathan/screening-agent/internal/types"
	"go.uber.org/zap"
)

var testNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

type fakeCatalog struct {
	positions []types.Position
	questions map[uuid.UUID][]types.Question
	listCalls int
	err       error
}

func (c *fakeCatalog) ListActivePositions(_ context.Context) ([]types.Position, error) {
	c.listCalls++
	if c.err != nil {
		return nil, c.err
	}
	return append([]types.Position(nil), c.positions...), nil
}

func (c *fakeCatalog) ListQuestions(_ context.Context, positionID uuid.UUID, testNumber int) ([]types.Question, error) {
	if c.err != nil {
		return nil, c.err
	}
	var out []types.Question
	for _, q := range c.questions[positionID] {
		if q.TestNumber == testNumber && q.Active {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (c *fakeCatalog) GetPositionTitle(_ context.Context, positionID uuid.UUID) (string, error) {
	for _, p := range c.positions {
		if p.ID == positionID {
			return p.Title, nil
		}
	}
	return "", nil
}

func (c *fakeCatalog) question(id uuid.UUID) (types.Question, bool) {
	for _, qs := range c.questions {
		for _, q := range qs {
			if q.ID == id {
				return q, true
			}
		}
	}
	return types.Question{}, false
}

type fakeProspects struct {
	prospects map[uuid.UUID]*types.Prospect
}

func (p *fakeProspects) GetProspect(_ context.Context, id uuid.UUID) (*types.Prospect, error) {
	pr, ok := p.prospects[id]
	if !ok {
		return nil, nil
	}
	cp := *pr
	return &cp, nil
}

type answerKey struct {
	evaluation uuid.UUID
	question   uuid.UUID
}

type fakeEvaluations struct {
	mu          sync.Mutex
	catalog     *fakeCatalog
	evals       map[uuid.UUID]*types.Evaluation
	answers     map[answerKey]types.Answer
	skipReclaim bool
	computeErr  error
	recordErr   error
	recordCalls int
}

func newFakeEvaluations(catalog *fakeCatalog) *fakeEvaluations {
	return &fakeEvaluations{
		catalog: catalog,
		evals:   make(map[uuid.UUID]*types.Evaluation),
		answers: make(map[answerKey]types.Answer),
	}
}

func (f *fakeEvaluations) answerCount(evaluationID uuid.UUID) int {
	n := 0
	for k := range f.answers {
		if k.evaluation == evaluationID {
			n++
		}
	}
	return n
}

func (f *fakeEvaluations) ReclaimOrphanedEvaluations(_ context.Context, prospectID, positionID uuid.UUID, startedBefore time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.skipReclaim {
		return 0, nil
	}
	var n int64
	for _, e := range f.evals {
		if e.ProspectID != prospectID || e.PositionID != positionID || e.Status != types.EvaluationInProgress {
			continue
		}
		if f.answerCount(e.ID) == 0 || e.StartedAt.Before(startedBefore) {
			e.Status = types.EvaluationAbandoned
			n++
		}
	}
	return n, nil
}

func (f *fakeEvaluations) FindInProgressEvaluation(_ context.Context, prospectID, positionID uuid.UUID) (*types.Evaluation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var found *types.Evaluation
	for _, e := range f.evals {
		if e.ProspectID != prospectID || e.PositionID != positionID || e.Status != types.EvaluationInProgress {
			continue
		}
		if found == nil || e.StartedAt.After(found.StartedAt) {
			found = e
		}
	}
	if found == nil {
		return nil, nil
	}
	cp := *found
	return &cp, nil
}

func (f *fakeEvaluations) CreateEvaluation(_ context.Context, prospectID, positionID uuid.UUID, sessionToken string, start progress.Cursor, startedAt time.Time) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.evals[id] = &types.Evaluation{
		ID:              id,
		ProspectID:      prospectID,
		PositionID:      positionID,
		SessionToken:    sessionToken,
		Status:          types.EvaluationInProgress,
		CurrentTest:     start.Test,
		CurrentQuestion: start.Question,
		StartedAt:       startedAt,
	}
	return id, nil
}

func (f *fakeEvaluations) RecordAnswer(_ context.Context, a *types.Answer, from, to progress.Cursor) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recordCalls++
	if f.recordErr != nil {
		return false, f.recordErr
	}
	key := answerKey{evaluation: a.EvaluationID, question: a.QuestionID}
	if _, ok := f.answers[key]; ok {
		return false, nil
	}
	f.answers[key] = *a
	if e, ok := f.evals[a.EvaluationID]; ok && e.CurrentTest == from.Test && e.CurrentQuestion == from.Question {
		e.CurrentTest, e.CurrentQuestion = to.Test, to.Question
	}
	return true, nil
}

func (f *fakeEvaluations) ComputeFinalScores(_ context.Context, evaluationID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.computeErr != nil {
		return f.computeErr
	}
	e, ok := f.evals[evaluationID]
	if !ok {
		return errors.New("evaluation not found")
	}

	var sum, weights [3]float64
	for k, a := range f.answers {
		if k.evaluation != evaluationID {
			continue
		}
		q, _ := f.catalog.question(k.question)
		sum[q.TestNumber] += a.Score * q.Weight
		weights[q.TestNumber] += q.Weight
	}

	var tests []float64
	for test := 1; test <= 2; test++ {
		if weights[test] == 0 {
			continue
		}
		v := sum[test] / weights[test]
		if test == 1 {
			e.Test1Score = &v
		} else {
			e.Test2Score = &v
		}
		tests = append(tests, v)
	}
	total := 0.0
	for _, v := range tests {
		total += v
	}
	if len(tests) > 0 {
		total /= float64(len(tests))
	}
	passed := total >= 70
	e.TotalScore = &total
	e.PassedAI = &passed
	e.Status = types.EvaluationCompleted
	if passed {
		e.Status = types.EvaluationPendingReview
	}
	return nil
}

func (f *fakeEvaluations) GetEvaluation(_ context.Context, evaluationID uuid.UUID) (*types.Evaluation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.evals[evaluationID]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (f *fakeEvaluations) MarkNotificationSent(_ context.Context, evaluationID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.evals[evaluationID]; ok {
		e.EmailSent = true
	}
	return nil
}

type fakeEmbedder struct {
	vec []float32
	err error
}

func (e *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.vec, nil
}

type fakeIdeals struct{ vec []float32 }

func (i *fakeIdeals) GetIdealEmbedding(_ context.Context, _ uuid.UUID) ([]float32, error) {
	return i.vec, nil
}

type fakeNotifier struct {
	results   []types.ResultNotice
	alerts    []types.HRAlert
	resultErr error
}

func (n *fakeNotifier) SendResult(_ context.Context, notice types.ResultNotice) error {
	n.results = append(n.results, notice)
	return n.resultErr
}

func (n *fakeNotifier) SendHRAlert(_ context.Context, alert types.HRAlert) error {
	n.alerts = append(n.alerts, alert)
	return nil
}

// fixture is a catalog with two positions; the first has 3 technical and 2 transversal questions.
type fixture struct {
	catalog     *fakeCatalog
	prospects   *fakeProspects
	evaluations *fakeEvaluations
	embedder    *fakeEmbedder
	notifier    *fakeNotifier
	backend     types.Position
	prospect    *types.Prospect
}

func newFixture() *fixture {
	backend := types.Position{ID: uuid.New(), Title: "Backend Developer", Description: "APIs en Go", Salary: 3500, Currency: "USD"}
	analyst := types.Position{ID: uuid.New(), Title: "Data Analyst", Salary: 2800, Currency: "USD"}

	question := func(test, order int, vt types.ValidationType, text string) types.Question {
		q := types.Question{
			ID:             uuid.New(),
			PositionID:     backend.ID,
			Text:           text,
			TestNumber:     test,
			Order:          order,
			ValidationType: vt,
			MinSimilarity:  0.65,
			Weight:         1,
			Active:         true,
		}
		switch vt {
		case types.ValidationSemantic:
			q.IdealAnswer = "Un servicio HTTP con manejo de errores"
		case types.ValidationKeyword:
			q.ExpectedKeywords = []string{"python", "sql"}
		}
		return q
	}

	catalog := &fakeCatalog{
		positions: []types.Position{backend, analyst},
		questions: map[uuid.UUID][]types.Question{
			backend.ID: {
				question(1, 2, types.ValidationKeyword, "¿Qué lenguajes usas?"),
				question(1, 1, types.ValidationSemantic, "Describe un servicio que construiste."),
				question(1, 3, types.ValidationBoolean, "¿Tienes experiencia con Docker?"),
				question(2, 1, types.ValidationNumeric, "¿Cuántos años de experiencia tienes?"),
				question(2, 2, types.ValidationBoolean, "¿Trabajas bien en equipo?"),
			},
		},
	}

	prospect := &types.Prospect{ID: uuid.New(), FirstName: "Ana", LastName: "Pérez", Email: "ana@example.com", Phone: "+51 999 888 777"}

	return &fixture{
		catalog:     catalog,
		prospects:   &fakeProspects{prospects: map[uuid.UUID]*types.Prospect{prospect.ID: prospect}},
		evaluations: newFakeEvaluations(catalog),
		embedder:    &fakeEmbedder{vec: []float32{1, 0, 0}},
		notifier:    &fakeNotifier{},
		backend:     backend,
		prospect:    prospect,
	}
}

func (f *fixture) deps() Deps {
	ideal := &fakeIdeals{vec: []float32{1, 0, 0}}
	return Deps{
		Catalog:     f.catalog,
		Prospects:   f.prospects,
		Evaluations: f.evaluations,
		Scorer:      scoring.NewEngine(ideal, func(_, _ []float32) float64 { return 1 }),
		Embedder:    f.embedder,
		Notifier:    f.notifier,
		Logger:      zap.NewNop(),
		Now:         func() time.Time { return testNow },
	}
}

func (f *fixture) identity() Identity {
	return Identity{ProspectID: f.prospect.ID, Name: f.prospect.FullName(), Email: f.prospect.Email}
}

func (f *fixture) machine(cfg Config) *Machine {
	m, err := NewMachine(cfg, f.deps())
	if err != nil {
		panic(err)
	}
	return m
}
