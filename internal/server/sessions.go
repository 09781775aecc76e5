package server

import (
	"net/http"
	"time"

	"github.com/jonathan/screening-agent/internal/logger"
	"github.com/jonathan/screening-agent/internal/server/middleware"
	"go.uber.org/zap"
)

type createSessionResponse struct {
	SessionToken  string    `json:"session_token"`
	SessionID     string    `json:"session_id"`
	ExpiresAt     time.Time `json:"expires_at"`
	WebSocketPath string    `json:"websocket_path"`
}

// handleCreateSession issues a signed token for a new screening session.
func (s *Server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	token, claims, err := s.deps.Tokens.Issue()
	if err != nil {
		s.log.Error("failed to issue session token", zap.Error(err))
		s.errorResponse(w, http.StatusInternalServerError, errTextInternal)
		return
	}

	s.log.Info("session created", logger.Session(claims.SessionID.String()))
	s.jsonResponse(w, http.StatusCreated, createSessionResponse{
		SessionToken:  token,
		SessionID:     claims.SessionID.String(),
		ExpiresAt:     claims.ExpiresAt.Time,
		WebSocketPath: "/ws/" + token,
	})
}

// handleDeleteSession clears the session's checkpoint.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := middleware.GetSessionID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	token := sessionID.String()
	if err := s.deps.Conversations.Reset(r.Context(), token); err != nil {
		s.log.Error("failed to reset session", logger.Session(token), zap.Error(err))
		s.errorResponse(w, HTTPStatus(err), ClientMessage(err))
		return
	}

	s.log.Info("session reset", logger.Session(token))
	s.jsonResponse(w, http.StatusOK, map[string]any{"success": true, "message": "Checkpoint eliminado"})
}
