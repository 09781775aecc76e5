package workflow

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jonathan/screening-agent/internal/progress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithMessage_SlidingWindow(t *testing.T) {
	st := NewState("tok")
	for i := 1; i <= 10; i++ {
		st = st.withMessage(DefaultMessageWindow, Message{Role: RoleUser, Content: fmt.Sprintf("m%d", i)})
	}

	require.Len(t, st.Messages, 6)
	assert.Equal(t, []string{"m5", "m6", "m7", "m8", "m9", "m10"}, contents(st.Messages))
}

func TestWithMessage_DoesNotAliasPrevious(t *testing.T) {
	st := NewState("tok")
	st = st.withMessage(3, Message{Role: RoleUser, Content: "a"})
	before := st

	after := st.withMessage(3, Message{Role: RoleAssistant, Content: "b"})

	assert.Len(t, before.Messages, 1)
	assert.Len(t, after.Messages, 2)
	after.Messages[0].Content = "changed"
	assert.Equal(t, "a", before.Messages[0].Content)
}

func TestWithMessage_NonPositiveWindowUsesDefault(t *testing.T) {
	st := NewState("tok")
	for i := 0; i < 8; i++ {
		st = st.withMessage(0, Message{Role: RoleUser, Content: "x"})
	}
	assert.Len(t, st.Messages, DefaultMessageWindow)
}

func TestLastAssistantMessage(t *testing.T) {
	st := NewState("tok")
	assert.Equal(t, "", st.LastAssistantMessage())

	st = st.withMessage(6, Message{Role: RoleAssistant, Content: "hola"})
	st = st.withMessage(6, Message{Role: RoleUser, Content: "1"})
	assert.Equal(t, "hola", st.LastAssistantMessage())
}

func TestState_JSONFieldNames(t *testing.T) {
	st := NewState("tok")
	st.Stage = StageInProgress
	st.PositionID = uuid.New()
	st.Cursor = progress.Cursor{Test: 2, Question: 1}

	data, err := json.Marshal(st)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "in_progress", raw["workflow_stage"])
	assert.Equal(t, "tok", raw["session_token"])
	assert.Contains(t, raw, "cursor")
	assert.NotContains(t, raw, "current_question_data")
}
