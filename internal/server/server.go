// Package server provides the HTTP and websocket transport for screening sessions.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonathan/screening-agent/internal/logger"
	"github.com/jonathan/screening-agent/internal/schemas"
	"github.com/jonathan/screening-agent/internal/server/middleware"
	"github.com/jonathan/screening-agent/internal/server/ratelimit"
	"github.com/jonathan/screening-agent/internal/types"
	"github.com/jonathan/screening-agent/internal/workflow"
	"go.uber.org/zap"
)

// Conversations runs screening turns for sessions.
type Conversations interface {
	Open(ctx context.Context, sessionToken string) (*workflow.TurnResult, error)
	Process(ctx context.Context, req workflow.TurnRequest) (*workflow.TurnResult, error)
	Reset(ctx context.Context, sessionToken string) error
}

// ProspectDirectory resolves the prospects reported by résumé uploads.
type ProspectDirectory interface {
	GetProspect(ctx context.Context, id uuid.UUID) (*types.Prospect, error)
	UpsertProspect(ctx context.Context, p *types.Prospect) (*types.Prospect, error)
}

// HealthChecker reports whether backing services are reachable.
type HealthChecker func(ctx context.Context) error

// Config holds server configuration
type Config struct {
	Port                     int
	AllowedOrigins           []string
	MaxConnectionsPerIP      int
	MaxMessagesPerConnection int
	RateLimitPerMinute       int
	ShutdownTimeout          time.Duration
}

// Deps are the collaborators the handlers call into.
type Deps struct {
	Conversations Conversations
	Prospects     ProspectDirectory
	Tokens        *TokenIssuer
	Health        HealthChecker
	Logger        *zap.Logger
}

// Server represents the HTTP server
type Server struct {
	cfg         Config
	deps        Deps
	log         *zap.Logger
	handler     http.Handler
	rateLimiter *ratelimit.Limiter
	conns       *ratelimit.ConnLimiter
	frames      *schemas.Validator
	upgrader    websocket.Upgrader
}

// New creates a new server instance
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Conversations == nil {
		return nil, fmt.Errorf("conversations are required")
	}
	if deps.Prospects == nil {
		return nil, fmt.Errorf("prospect directory is required")
	}
	if deps.Tokens == nil {
		return nil, fmt.Errorf("token issuer is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.MaxMessagesPerConnection <= 0 {
		cfg.MaxMessagesPerConnection = 50
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	frames, err := schemas.Load(schemas.ClientFrame)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:         cfg,
		deps:        deps,
		log:         deps.Logger,
		rateLimiter: ratelimit.NewLimiter(ratelimit.DefaultConfig(cfg.RateLimitPerMinute)),
		conns:       ratelimit.NewConnLimiter(cfg.MaxConnectionsPerIP),
		frames:      frames,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.isOriginAllowed,
	}

	requireSession := middleware.RequireSession(deps.Tokens.AsTokenValidator(), "token")

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /sessions", s.handleCreateSession)
	mux.Handle("DELETE /sessions/{token}", requireSession(http.HandlerFunc(s.handleDeleteSession)))
	mux.Handle("GET /ws/{token}", requireSession(http.HandlerFunc(s.handleWebSocket)))

	s.handler = s.withRateLimit(s.withLogging(s.withCORS(mux)))
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves on the configured port until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	baseCtx, cancelConns := context.WithCancel(context.Background())
	defer cancelConns()

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	httpServer.RegisterOnShutdown(cancelConns)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server starting", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.rateLimiter.Stop()
	s.log.Info("server stopped")
	return nil
}

// Close releases background resources when Run was never called.
func (s *Server) Close() {
	s.rateLimiter.Stop()
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case slices.Contains(s.cfg.AllowedOrigins, "*"):
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(s.cfg.AllowedOrigins, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)

		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, clientID, info)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request completed",
			zap.String("method", r.Method),
			zap.String("path", redactPath(r.URL.Path)),
			zap.String(logger.FieldRemote, s.extractClientID(r)),
			zap.Duration("duration", time.Since(start)))
	})
}

// redactPath hides session tokens embedded in request paths.
func redactPath(path string) string {
	for _, prefix := range []string{"/ws/", "/sessions/"} {
		if strings.HasPrefix(path, prefix) && len(path) > len(prefix) {
			return prefix + "{token}"
		}
	}
	return path
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Health(ctx); err != nil {
			s.log.Warn("health check failed", zap.Error(err))
			s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status": "ok",
		"limits": map[string]int{
			"max_connections_per_ip":      s.cfg.MaxConnectionsPerIP,
			"max_messages_per_connection": s.cfg.MaxMessagesPerConnection,
		},
	})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Warn("failed to encode JSON response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// extractClientID extracts the client identifier (IP address) from the request.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// isOriginAllowed accepts same-host origins, listed origins, and requests without an Origin header.
func (s *Server) isOriginAllowed(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" || slices.Contains(s.cfg.AllowedOrigins, "*") || slices.Contains(s.cfg.AllowedOrigins, origin) {
		return true
	}
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	return strings.EqualFold(parsed.Host, r.Host)
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, clientID string, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		seconds := int(info.RetryAfter.Seconds()) + 1
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	s.log.Info("rate limit exceeded", zap.String(logger.FieldRemote, clientID), zap.Int("limit", info.Limit))
	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
