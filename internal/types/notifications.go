package types

import "github.com/google/uuid"

// ResultNotice is the outcome message sent to a candidate after an evaluation completes.
type ResultNotice struct {
	Email  string
	Name   string
	Scores Scores
	Passed bool
}

// HRAlert notifies recruiters that a candidate passed the automated screening.
type HRAlert struct {
	EvaluationID  uuid.UUID
	ProspectName  string
	PositionTitle string
	Scores        Scores
}
