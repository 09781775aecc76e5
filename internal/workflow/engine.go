package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonathan/screening-agent/internal/checkpoint"
	"github.com/jonathan/screening-agent/internal/logger"
	"go.uber.org/zap"
)

// TurnRequest is one inbound event for a session.
type TurnRequest struct {
	SessionToken string
	Event        Event
}

// TurnResult is what the caller sends back to the client after a turn.
type TurnResult struct {
	ResponseText    string
	Messages        []Message
	Stage           Stage
	CurrentTest     int
	CurrentQuestion int
	IsComplete      bool
	ShouldClose     bool
}

// Engine loads, runs and persists turns with at most one turn in flight per session.
type Engine struct {
	machine     *Machine
	store       checkpoint.Store
	locks       *SessionLocks
	lockTimeout time.Duration
	log         *zap.Logger
}

// NewEngine wires a machine to a checkpoint store. lockTimeout bounds how long a turn
// waits behind another turn of the same session; zero waits until ctx is done.
func NewEngine(machine *Machine, store checkpoint.Store, lockTimeout time.Duration, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		machine:     machine,
		store:       store,
		locks:       NewSessionLocks(),
		lockTimeout: lockTimeout,
		log:         log,
	}
}

// Process runs one turn. The new state is persisted before the result is returned;
// on any error nothing is saved and the previous checkpoint stays authoritative.
func (e *Engine) Process(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	if req.SessionToken == "" {
		return nil, fmt.Errorf("session token is required")
	}

	release, err := e.lock(ctx, req.SessionToken)
	if err != nil {
		return nil, err
	}
	defer release()

	return e.process(ctx, req)
}

func (e *Engine) process(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	st, _, err := e.load(ctx, req.SessionToken)
	if err != nil {
		return nil, err
	}

	next, out, err := e.machine.Run(ctx, st, req.Event)
	if err != nil {
		e.log.Warn("turn failed",
			logger.Session(req.SessionToken),
			zap.String("stage", string(st.Stage)),
			zap.Stringer("event", req.Event.Kind),
			zap.Error(err))
		return nil, err
	}

	if err := e.save(ctx, req.SessionToken, next); err != nil {
		return nil, err
	}

	e.log.Debug("turn processed",
		logger.Session(req.SessionToken),
		zap.String("stage", string(next.Stage)),
		zap.Int("messages", len(out)))
	return newTurnResult(next, out), nil
}

// Open handles a client (re)connecting. A session past the initial stage gets a
// recovery greeting without running a turn; a new session is greeted.
func (e *Engine) Open(ctx context.Context, sessionToken string) (*TurnResult, error) {
	if sessionToken == "" {
		return nil, fmt.Errorf("session token is required")
	}

	release, err := e.lock(ctx, sessionToken)
	if err != nil {
		return nil, err
	}
	defer release()

	st, found, err := e.load(ctx, sessionToken)
	if err != nil {
		return nil, err
	}
	if found && st.Stage != StageInitial {
		res := newTurnResult(st, nil)
		res.ResponseText = recoveryMessage(&st)
		return res, nil
	}

	return e.process(ctx, TurnRequest{SessionToken: sessionToken, Event: Connect()})
}

// Reset deletes the session's checkpoint.
func (e *Engine) Reset(ctx context.Context, sessionToken string) error {
	release, err := e.lock(ctx, sessionToken)
	if err != nil {
		return err
	}
	defer release()

	if err := e.store.Delete(ctx, sessionToken); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// Snapshot returns the persisted state of a session, or nil if there is none.
func (e *Engine) Snapshot(ctx context.Context, sessionToken string) (*State, error) {
	st, found, err := e.load(ctx, sessionToken)
	if err != nil || !found {
		return nil, err
	}
	return &st, nil
}

func (e *Engine) lock(ctx context.Context, token string) (func(), error) {
	if e.lockTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.lockTimeout)
		defer cancel()
	}
	return e.locks.Acquire(ctx, token)
}

func (e *Engine) load(ctx context.Context, token string) (State, bool, error) {
	data, err := e.store.Load(ctx, token)
	if errors.Is(err, checkpoint.ErrNotFound) {
		return NewState(token), false, nil
	}
	if err != nil {
		return State{}, false, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, false, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	if st.Stage == "" {
		st.Stage = StageInitial
	}
	st.SessionToken = token
	return st, true, nil
}

func (e *Engine) save(ctx context.Context, token string, st State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	if err := e.store.Save(ctx, token, data); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

func newTurnResult(st State, out []Message) *TurnResult {
	res := &TurnResult{
		Messages:        out,
		Stage:           st.Stage,
		CurrentTest:     st.Cursor.Test,
		CurrentQuestion: st.Cursor.Question,
		IsComplete:      st.IsComplete,
		ShouldClose:     st.ShouldClose,
	}
	if len(out) > 0 {
		parts := make([]string, len(out))
		for i, m := range out {
			parts[i] = m.Content
		}
		res.ResponseText = strings.Join(parts, "\n\n")
	} else {
		res.ResponseText = st.LastAssistantMessage()
	}
	return res
}

func recoveryMessage(st *State) string {
	switch st.Stage {
	case StageAwaitingPosition:
		return msgRecoveredPosition
	case StageAwaitingStart:
		return msgRecoveredStart
	}
	if last := st.LastAssistantMessage(); last != "" {
		return last
	}
	return msgRecoveredDefault
}
