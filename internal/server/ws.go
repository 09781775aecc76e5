package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonathan/screening-agent/internal/logger"
	"github.com/jonathan/screening-agent/internal/server/middleware"
	"github.com/jonathan/screening-agent/internal/types"
	"github.com/jonathan/screening-agent/internal/workflow"
	"go.uber.org/zap"
)

const (
	maxFrameBytes = 16 << 10
	writeWait     = 10 * time.Second
	closedMessage = "Evaluación finalizada"
)

// Outbound frame types.
const (
	frameGreeting    = "greeting"
	frameMessage     = "message"
	frameCVProcessed = "cv_processed"
	frameError       = "error"
	framePong        = "pong"
	frameClose       = "close"
)

// Inbound frame types.
const (
	frameTypeMessage    = "message"
	frameTypePing       = "ping"
	frameTypeCVUploaded = "cv_uploaded"
)

type clientFrame struct {
	Type       string           `json:"type"`
	Message    string           `json:"message"`
	ProspectID string           `json:"prospect_id"`
	Prospect   *prospectPayload `json:"prospect"`
}

// prospectPayload is the identity extracted from an uploaded résumé.
type prospectPayload struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone"`
}

type serverFrame struct {
	Type    string     `json:"type"`
	Data    *frameData `json:"data,omitempty"`
	Message string     `json:"message,omitempty"`
}

type frameData struct {
	Response        string `json:"response,omitempty"`
	Message         string `json:"message,omitempty"`
	WorkflowStage   string `json:"workflow_stage,omitempty"`
	IsComplete      *bool  `json:"is_complete,omitempty"`
	CurrentTest     int    `json:"current_test,omitempty"`
	CurrentQuestion int    `json:"current_question,omitempty"`
	ProspectID      string `json:"prospect_id,omitempty"`
}

var validate = validator.New()

func turnData(res *workflow.TurnResult) *frameData {
	d := &frameData{
		Response:      res.ResponseText,
		WorkflowStage: string(res.Stage),
	}
	if res.CurrentTest > 0 {
		d.CurrentTest = res.CurrentTest
		d.CurrentQuestion = res.CurrentQuestion
	}
	return d
}

// handleWebSocket runs one chat connection for the authenticated session.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID, err := middleware.GetSessionID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	clientID := s.extractClientID(r)
	release, ok := s.conns.Acquire(clientID)
	if !ok {
		s.log.Info("connection limit reached", zap.String(logger.FieldRemote, clientID))
		s.errorResponse(w, http.StatusTooManyRequests, "Demasiadas conexiones")
		return
	}
	defer release()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxFrameBytes)

	stop := context.AfterFunc(r.Context(), func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		_ = conn.Close()
	})
	defer stop()

	c := &chatConn{
		server:  s,
		conn:    conn,
		session: sessionID.String(),
		log:     logger.WithSession(s.log, sessionID.String()).With(zap.String(logger.FieldRemote, clientID)),
	}
	c.serve(r.Context())
}

// chatConn is one websocket connection bound to a session.
type chatConn struct {
	server   *Server
	conn     *websocket.Conn
	session  string
	log      *zap.Logger
	messages int
}

func (c *chatConn) serve(ctx context.Context) {
	c.log.Info("client connected")
	defer c.log.Info("client disconnected", zap.Int("messages", c.messages))

	if !c.greet(ctx) {
		return
	}

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Debug("read failed", zap.Error(err))
			}
			return
		}
		if !c.handleFrame(ctx, data) {
			return
		}
	}
}

// greet sends the greeting or recovery message. It reports false when the connection should end.
func (c *chatConn) greet(ctx context.Context) bool {
	res, err := c.server.deps.Conversations.Open(ctx, c.session)
	if err != nil {
		c.log.Error("failed to open session", zap.Error(err))
		c.sendError(ClientMessage(err))
		return false
	}
	if res.ShouldClose {
		c.send(serverFrame{Type: frameClose, Data: &frameData{Message: res.ResponseText}})
		return false
	}
	return c.send(serverFrame{Type: frameGreeting, Data: turnData(res)})
}

// handleFrame processes one inbound frame. It reports false when the connection should end.
func (c *chatConn) handleFrame(ctx context.Context, data []byte) bool {
	if err := c.server.frames.Validate(data); err != nil {
		c.log.Debug("invalid frame", zap.Error(err))
		return c.sendError(errTextInvalidFrame)
	}

	var frame clientFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return c.sendError(errTextInvalidFrame)
	}

	switch frame.Type {
	case frameTypePing:
		return c.send(serverFrame{Type: framePong})
	case frameTypeCVUploaded:
		return c.handleCVUploaded(ctx, &frame)
	case frameTypeMessage:
		return c.handleMessage(ctx, frame.Message)
	default:
		return c.sendError(errTextInvalidFrame)
	}
}

func (c *chatConn) handleMessage(ctx context.Context, text string) bool {
	c.messages++
	if c.messages > c.server.cfg.MaxMessagesPerConnection {
		c.log.Info("message limit reached", zap.Int("limit", c.server.cfg.MaxMessagesPerConnection))
		c.sendError(errTextMessageLimit)
		return false
	}

	res, err := c.server.deps.Conversations.Process(ctx, workflow.TurnRequest{
		SessionToken: c.session,
		Event:        workflow.UserText(text),
	})
	if err != nil {
		c.logTurnError(err)
		return c.sendError(ClientMessage(err))
	}

	data := turnData(res)
	complete := res.IsComplete
	data.IsComplete = &complete
	if !c.send(serverFrame{Type: frameMessage, Data: data}) {
		return false
	}
	return c.closeIfDone(res)
}

func (c *chatConn) handleCVUploaded(ctx context.Context, frame *clientFrame) bool {
	prospect, err := c.resolveProspect(ctx, frame)
	if err != nil {
		c.logTurnError(err)
		return c.sendError(errTextCVFailed)
	}
	if prospect == nil {
		return c.sendError(errTextProspectMissing)
	}

	res, err := c.server.deps.Conversations.Process(ctx, workflow.TurnRequest{
		SessionToken: c.session,
		Event: workflow.CVUploaded(workflow.Identity{
			ProspectID: prospect.ID,
			Name:       prospect.FullName(),
			Email:      prospect.Email,
		}),
	})
	if err != nil {
		c.logTurnError(err)
		return c.sendError(ClientMessage(err))
	}

	c.log.Info("cv processed", zap.String("prospect_id", prospect.ID.String()))
	data := turnData(res)
	data.ProspectID = prospect.ID.String()
	if !c.send(serverFrame{Type: frameCVProcessed, Data: data}) {
		return false
	}
	return c.closeIfDone(res)
}

// resolveProspect loads the prospect named by id, or registers the one carried in the frame.
// It returns nil, nil when the id is unknown.
func (c *chatConn) resolveProspect(ctx context.Context, frame *clientFrame) (*types.Prospect, error) {
	prospects := c.server.deps.Prospects

	if frame.ProspectID != "" {
		id, err := uuid.Parse(frame.ProspectID)
		if err != nil {
			return nil, &ErrValidation{Field: "prospect_id", Message: err.Error()}
		}
		return prospects.GetProspect(ctx, id)
	}

	if frame.Prospect == nil {
		return nil, &ErrValidation{Field: "prospect", Message: "prospect or prospect_id is required"}
	}
	if err := validate.Struct(frame.Prospect); err != nil {
		return nil, &ErrValidation{Field: "prospect", Message: err.Error()}
	}
	return prospects.UpsertProspect(ctx, &types.Prospect{
		FirstName: strings.TrimSpace(frame.Prospect.FirstName),
		LastName:  strings.TrimSpace(frame.Prospect.LastName),
		Email:     strings.TrimSpace(frame.Prospect.Email),
		Phone:     strings.TrimSpace(frame.Prospect.Phone),
	})
}

func (c *chatConn) closeIfDone(res *workflow.TurnResult) bool {
	if !res.ShouldClose {
		return true
	}
	complete := res.IsComplete
	c.send(serverFrame{Type: frameClose, Data: &frameData{Message: closedMessage, IsComplete: &complete}})
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	return false
}

func (c *chatConn) logTurnError(err error) {
	var verr *ErrValidation
	switch {
	case errors.Is(err, workflow.ErrSessionBusy),
		errors.Is(err, workflow.ErrPositionRequired),
		errors.Is(err, workflow.ErrUnexpectedEvent),
		errors.As(err, &verr):
		c.log.Info("turn rejected", zap.Error(err))
	default:
		c.log.Error("turn failed", zap.Error(err))
	}
}

func (c *chatConn) sendError(message string) bool {
	return c.send(serverFrame{Type: frameError, Message: message})
}

// send writes one frame. It reports false when the write failed.
func (c *chatConn) send(frame serverFrame) bool {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(frame); err != nil {
		c.log.Debug("write failed", zap.Error(err))
		return false
	}
	return true
}
