package workflow

import (
	"github.com/google/uuid"
	"github.com/jonathan/screening-agent/internal/progress"
	"github.com/jonathan/screening-agent/internal/types"
)

// Role tags who authored a message.
type Role string

// Message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the conversation log.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// DefaultMessageWindow is the number of messages retained in state.
const DefaultMessageWindow = 6

// State is the checkpointed conversation state of one session.
// Cross-turn facts live in the structured fields; Messages is a bounded log only.
type State struct {
	Messages     []Message `json:"messages"`
	Stage        Stage     `json:"workflow_stage"`
	SessionToken string    `json:"session_token"`

	PositionID            uuid.UUID `json:"position_id"`
	SelectedPositionTitle string    `json:"selected_position"`

	ProspectID    uuid.UUID `json:"prospect_id"`
	ProspectName  string    `json:"prospect_name"`
	ProspectEmail string    `json:"prospect_email"`

	EvaluationID       uuid.UUID        `json:"evaluation_id"`
	Cursor             progress.Cursor  `json:"cursor"`
	Totals             progress.Totals  `json:"totals"`
	CurrentQuestion    *types.Question  `json:"current_question_data,omitempty"`
	AvailablePositions []types.Position `json:"available_positions,omitempty"`

	ShouldClose     bool `json:"should_close"`
	IsComplete      bool `json:"is_complete"`
	DataConfirmed   bool `json:"data_confirmed"`
	CVUploaded      bool `json:"cv_uploaded"`
	WaitingForStart bool `json:"waiting_for_start"`
}

// NewState returns the default state of a brand new session.
func NewState(sessionToken string) State {
	return State{
		Messages:     []Message{},
		Stage:        StageInitial,
		SessionToken: sessionToken,
	}
}

// withMessage returns a copy of st with msg appended, keeping at most window messages.
// The returned state never shares its message slice with st.
func (st State) withMessage(window int, msg Message) State {
	if window <= 0 {
		window = DefaultMessageWindow
	}

	combined := make([]Message, 0, len(st.Messages)+1)
	combined = append(combined, st.Messages...)
	combined = append(combined, msg)
	if len(combined) > window {
		combined = combined[len(combined)-window:]
	}

	out := make([]Message, len(combined))
	copy(out, combined)
	st.Messages = out
	return st
}

// LastAssistantMessage returns the most recent assistant message, if any.
func (st *State) LastAssistantMessage() string {
	for i := len(st.Messages) - 1; i >= 0; i-- {
		if st.Messages[i].Role == RoleAssistant {
			return st.Messages[i].Content
		}
	}
	return ""
}
