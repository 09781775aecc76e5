package server

import (
	"errors"
	"net/http"

	"github.com/jonathan/screening-agent/internal/workflow"
)

// Client-facing error texts. Raw errors are logged, never sent.
const (
	errTextInternal        = "Error interno del servidor"
	errTextBusy            = "Tu mensaje anterior aún se está procesando. Intenta nuevamente."
	errTextPositionFirst   = "Debes seleccionar una posición primero"
	errTextUnexpectedEvent = "Esta acción no está disponible en este momento"
	errTextInvalidFrame    = "Mensaje inválido"
	errTextMessageLimit    = "Límite de mensajes alcanzado"
	errTextProspectMissing = "No se encontró el prospecto"
	errTextCVFailed        = "Error procesando CV"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return "validation error: " + e.Field + " - " + e.Message
}

// ClientMessage maps an error from a turn to the text shown to the candidate.
func ClientMessage(err error) string {
	var verr *ErrValidation
	switch {
	case errors.Is(err, workflow.ErrSessionBusy):
		return errTextBusy
	case errors.Is(err, workflow.ErrPositionRequired):
		return errTextPositionFirst
	case errors.Is(err, workflow.ErrUnexpectedEvent):
		return errTextUnexpectedEvent
	case errors.As(err, &verr):
		return errTextInvalidFrame
	default:
		return errTextInternal
	}
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var verr *ErrValidation
	switch {
	case errors.Is(err, workflow.ErrSessionBusy):
		return http.StatusConflict
	case errors.Is(err, workflow.ErrPositionRequired), errors.Is(err, workflow.ErrUnexpectedEvent):
		return http.StatusUnprocessableEntity
	case errors.As(err, &verr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
