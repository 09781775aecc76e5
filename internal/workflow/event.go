package workflow

import (
	"fmt"

	"github.com/google/uuid"
)

// EventKind discriminates inbound events.
type EventKind int

// Inbound event kinds.
const (
	// EventConnect is sent when a client (re)connects without a message.
	EventConnect EventKind = iota
	// EventUserText carries a message typed by the candidate.
	EventUserText
	// EventCVUploaded reports that a résumé was parsed and its prospect resolved.
	EventCVUploaded
)

func (k EventKind) String() string {
	switch k {
	case EventConnect:
		return "connect"
	case EventUserText:
		return "user_text"
	case EventCVUploaded:
		return "cv_uploaded"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Identity is the prospect identity resolved from an uploaded résumé.
type Identity struct {
	ProspectID uuid.UUID
	Name       string
	Email      string
}

// Event is an inbound event. Exactly one of Text or Identity is meaningful, depending on Kind.
type Event struct {
	Kind     EventKind
	Text     string
	Identity Identity
}

// Connect builds a connection event.
func Connect() Event {
	return Event{Kind: EventConnect}
}

// UserText builds a candidate message event.
func UserText(text string) Event {
	return Event{Kind: EventUserText, Text: text}
}

// CVUploaded builds a résumé-uploaded system event.
func CVUploaded(id Identity) Event {
	return Event{Kind: EventCVUploaded, Identity: id}
}

// cvUploadStages are the stages in which a résumé upload is accepted.
var cvUploadStages = map[Stage]bool{
	StagePositionSelected:     true,
	StageAwaitingCV:           true,
	StageCVJustUploaded:       true,
	StageAwaitingConfirmation: true,
}
