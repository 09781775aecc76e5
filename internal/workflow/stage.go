package workflow

import "fmt"

// Stage is the discrete state of a screening conversation.
type Stage string

// Workflow stages.
const (
	StageInitial               Stage = "initial"
	StageAwaitingPosition      Stage = "awaiting_position"
	StagePositionSelected      Stage = "position_selected"
	StageAwaitingCV            Stage = "awaiting_cv"
	StageCVJustUploaded        Stage = "cv_just_uploaded"
	StageAwaitingConfirmation  Stage = "awaiting_confirmation"
	StageDataConfirmed         Stage = "data_confirmed"
	StageEvaluationInitialized Stage = "evaluation_initialized"
	StageAwaitingStart         Stage = "awaiting_start"
	StageInProgress            Stage = "in_progress"
	StageCompleted             Stage = "completed"
)

// Stages lists every stage in workflow order.
var Stages = []Stage{
	StageInitial,
	StageAwaitingPosition,
	StagePositionSelected,
	StageAwaitingCV,
	StageCVJustUploaded,
	StageAwaitingConfirmation,
	StageDataConfirmed,
	StageEvaluationInitialized,
	StageAwaitingStart,
	StageInProgress,
	StageCompleted,
}

// Route names the handler that runs next.
type Route string

// Routes produced by the router.
const (
	RouteGreet          Route = "greet"
	RouteSelectPosition Route = "select_position"
	RouteRequestCV      Route = "request_cv"
	RouteDisplayCV      Route = "display_cv"
	RouteConfirm        Route = "confirm"
	RouteInitEvaluation Route = "init_evaluation"
	RouteAnnounceStart  Route = "announce_start"
	RouteAwaitStart     Route = "await_start"
	RouteSendQuestion   Route = "send_question"
	RouteScoreAnswer    Route = "score_answer"
	RouteComplete       Route = "complete"
	RouteWait           Route = "wait"
	RouteTerminate      Route = "terminate"
)

// route maps the current state onto exactly one handler. hasInput reports whether the
// turn still carries an unconsumed candidate message.
func route(st *State, hasInput bool) (Route, error) {
	if st.ShouldClose {
		return RouteTerminate, nil
	}

	switch st.Stage {
	case StageInitial:
		return RouteGreet, nil
	case StageAwaitingPosition:
		if hasInput {
			return RouteSelectPosition, nil
		}
		return RouteWait, nil
	case StagePositionSelected:
		return RouteRequestCV, nil
	case StageAwaitingCV:
		return RouteWait, nil
	case StageCVJustUploaded:
		return RouteDisplayCV, nil
	case StageAwaitingConfirmation:
		if hasInput {
			return RouteConfirm, nil
		}
		return RouteWait, nil
	case StageDataConfirmed:
		return RouteInitEvaluation, nil
	case StageEvaluationInitialized:
		return RouteAnnounceStart, nil
	case StageAwaitingStart:
		if hasInput {
			return RouteAwaitStart, nil
		}
		return RouteWait, nil
	case StageInProgress:
		if st.IsComplete {
			return RouteComplete, nil
		}
		if hasInput {
			return RouteScoreAnswer, nil
		}
		return RouteSendQuestion, nil
	case StageCompleted:
		return RouteTerminate, nil
	default:
		return RouteTerminate, fmt.Errorf("unknown workflow stage %q", st.Stage)
	}
}
