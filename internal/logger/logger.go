// Package logger builds the zap loggers used across the service.
package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Structured field keys shared by the transport and the workflow.
const (
	FieldSession = "session"
	FieldRemote  = "remote"
)

// sessionPrefix is how much of a session token is written to logs.
const sessionPrefix = 12

// New builds a logger writing to stdout; json selects the JSON encoder and debug lowers the level.
func New(json bool, debug bool) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	encoding := "console"

	if json {
		encoding = "json"
	}

	if debug {
		level = zapcore.DebugLevel
	}

	cfg := zap.Config{
		Encoding:         encoding,
		Level:            zap.NewAtomicLevelAt(level),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey: "msg",

			LevelKey:    "level",
			EncodeLevel: zapcore.LowercaseLevelEncoder,

			TimeKey:    "time",
			EncodeTime: zapcore.RFC3339TimeEncoder,

			CallerKey:    "caller",
			EncodeCaller: zapcore.ShortCallerEncoder,

			EncodeDuration: zapcore.StringDurationEncoder,
		},
	}
	return cfg.Build()
}

// Truncate shortens s to limit runes, appending an ellipsis when truncated.
func Truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

// Session returns a field identifying a session without writing the full token.
func Session(token string) zap.Field {
	return zap.String(FieldSession, Truncate(token, sessionPrefix))
}

// WithSession attaches the session field to the logger, defaulting to a no-op logger when nil.
func WithSession(log *zap.Logger, token string) *zap.Logger {
	if log == nil {
		log = zap.NewNop()
	}
	if token == "" {
		return log
	}
	return log.With(Session(token))
}
