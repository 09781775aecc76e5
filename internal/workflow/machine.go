// Package workflow implements the screening conversation state machine and the
// per-session turn engine that drives it.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/screening-agent/internal/logger"
	"go.uber.org/zap"
)

var (
	// ErrPositionRequired is returned when a résumé arrives before a position is selected.
	ErrPositionRequired = errors.New("a position must be selected before uploading a CV")
	// ErrUnexpectedEvent is returned when an event is not accepted in the current stage.
	ErrUnexpectedEvent = errors.New("event not accepted in current stage")
)

// Defaults for Config.
const (
	DefaultResumeWindow = 5 * time.Minute
	DefaultMaxSteps     = 16
)

// Config tunes the state machine.
type Config struct {
	// MessageWindow is the number of messages kept in state.
	MessageWindow int
	// ResumeWindow is how long an in-progress evaluation stays resumable.
	ResumeWindow time.Duration
	// MaxSteps bounds the handlers chained within a single turn.
	MaxSteps int
}

func (c Config) withDefaults() Config {
	if c.MessageWindow <= 0 {
		c.MessageWindow = DefaultMessageWindow
	}
	if c.ResumeWindow <= 0 {
		c.ResumeWindow = DefaultResumeWindow
	}
	if c.MaxSteps <= 0 {
		c.MaxSteps = DefaultMaxSteps
	}
	return c
}

// Deps are the collaborators the handlers call into.
type Deps struct {
	Catalog     Catalog
	Prospects   Prospects
	Evaluations Evaluations
	Scorer      Scorer
	Embedder    Embedder
	Notifier    Notifier
	Logger      *zap.Logger
	Now         func() time.Time
}

// outcome tells the run loop whether to keep routing after a handler.
type outcome int

const (
	yield outcome = iota
	proceed
)

// turn carries the per-turn input and collects outbound messages.
type turn struct {
	input    string
	hasInput bool
	out      []Message
}

// consume returns the pending input and marks it as used.
func (t *turn) consume() string {
	in := t.input
	t.input = ""
	t.hasInput = false
	return in
}

type handler func(ctx context.Context, st State, t *turn) (State, outcome, error)

// Machine routes events through the stage handlers.
type Machine struct {
	cfg      Config
	deps     Deps
	log      *zap.Logger
	handlers map[Route]handler
}

// NewMachine validates deps and builds a machine.
func NewMachine(cfg Config, deps Deps) (*Machine, error) {
	switch {
	case deps.Catalog == nil:
		return nil, fmt.Errorf("catalog is required")
	case deps.Prospects == nil:
		return nil, fmt.Errorf("prospects store is required")
	case deps.Evaluations == nil:
		return nil, fmt.Errorf("evaluations store is required")
	case deps.Scorer == nil:
		return nil, fmt.Errorf("scorer is required")
	case deps.Embedder == nil:
		return nil, fmt.Errorf("embedder is required")
	case deps.Notifier == nil:
		return nil, fmt.Errorf("notifier is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	m := &Machine{
		cfg:  cfg.withDefaults(),
		deps: deps,
		log:  deps.Logger,
	}
	m.handlers = map[Route]handler{
		RouteGreet:          m.greet,
		RouteSelectPosition: m.selectPosition,
		RouteRequestCV:      m.requestCV,
		RouteDisplayCV:      m.displayCV,
		RouteConfirm:        m.confirm,
		RouteInitEvaluation: m.initEvaluation,
		RouteAnnounceStart:  m.announceStart,
		RouteAwaitStart:     m.awaitStart,
		RouteSendQuestion:   m.sendQuestion,
		RouteScoreAnswer:    m.scoreAnswer,
		RouteComplete:       m.complete,
	}
	return m, nil
}

// Run applies ev to st and chains handlers until one waits for input or the session closes.
// It returns the new state and the assistant messages produced during the turn. On error
// the returned state must be discarded.
func (m *Machine) Run(ctx context.Context, st State, ev Event) (State, []Message, error) {
	if st.ShouldClose || st.IsComplete {
		return st, nil, nil
	}

	t := &turn{}
	switch ev.Kind {
	case EventConnect:
	case EventUserText:
		st = st.withMessage(m.cfg.MessageWindow, Message{Role: RoleUser, Content: ev.Text})
		t.input = strings.TrimSpace(ev.Text)
		t.hasInput = t.input != ""
	case EventCVUploaded:
		if st.PositionID == uuid.Nil {
			return st, nil, ErrPositionRequired
		}
		if !cvUploadStages[st.Stage] {
			return st, nil, fmt.Errorf("%w: %s in %s", ErrUnexpectedEvent, ev.Kind, st.Stage)
		}
		st.ProspectID = ev.Identity.ProspectID
		st.ProspectName = ev.Identity.Name
		st.ProspectEmail = ev.Identity.Email
		st.CVUploaded = true
		st.DataConfirmed = false
		st.Stage = StageCVJustUploaded
	default:
		return st, nil, fmt.Errorf("%w: %s", ErrUnexpectedEvent, ev.Kind)
	}

	for step := 0; step < m.cfg.MaxSteps; step++ {
		r, err := route(&st, t.hasInput)
		if err != nil {
			return st, nil, err
		}
		if r == RouteWait || r == RouteTerminate {
			return st, t.out, nil
		}

		h, ok := m.handlers[r]
		if !ok {
			return st, nil, fmt.Errorf("no handler for route %q", r)
		}

		from := st.Stage
		next, out, err := h(ctx, st, t)
		if err != nil {
			return st, nil, fmt.Errorf("failed to run %s: %w", r, err)
		}
		st = next
		m.log.Debug("workflow step",
			logger.Session(st.SessionToken),
			zap.String("route", string(r)),
			zap.String("from", string(from)),
			zap.String("to", string(st.Stage)))

		if out == yield {
			return st, t.out, nil
		}
	}
	return st, nil, fmt.Errorf("turn exceeded %d steps in stage %s", m.cfg.MaxSteps, st.Stage)
}

// say appends an assistant message to the state and the turn's outbound list.
func (m *Machine) say(st State, t *turn, text string) State {
	msg := Message{Role: RoleAssistant, Content: text}
	t.out = append(t.out, msg)
	return st.withMessage(m.cfg.MessageWindow, msg)
}

// closeWith ends the session after one explanatory message.
func (m *Machine) closeWith(st State, t *turn, text string) (State, outcome, error) {
	st = m.say(st, t, text)
	st.ShouldClose = true
	return st, yield, nil
}
