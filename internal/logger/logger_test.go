package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	log, err := New(true, false)
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))

	log, err = New(false, true)
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hola", Truncate("  hola  ", 10))
	assert.Equal(t, "ñañ...", Truncate("ñañaña", 3))
	assert.Equal(t, "", Truncate("abc", 0))
}

func TestWithSession(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	WithSession(zap.New(core), "abcdefghijklmnopqrstuvwxyz").Info("turn")

	entries := observed.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "abcdefghijkl...", entries[0].ContextMap()[FieldSession])

	assert.NotNil(t, WithSession(nil, "token"))
}
