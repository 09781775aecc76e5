package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"scaled", []float32{1, 1}, []float32{3, 3}, 1},
		{"length mismatch", []float32{1, 0}, []float32{1}, 0},
		{"empty", nil, nil, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, CosineSimilarity(tt.a, tt.b), 1e-6)
		})
	}
}

func TestCosineSimilarity_KnownAngle(t *testing.T) {
	// 45 degrees
	assert.InDelta(t, 0.70710678, CosineSimilarity([]float32{1, 0}, []float32{1, 1}), 1e-6)
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	assert.Equal(t, ProviderGemini, config.Provider)
	assert.Equal(t, DefaultGeminiModel, config.GetModel())
}

func TestGetModel_Fallback(t *testing.T) {
	assert.Equal(t, DefaultGeminiModel, (&Config{Provider: ProviderGemini}).GetModel())
	assert.Equal(t, "custom", (&Config{Provider: ProviderGemini, Model: "custom"}).GetModel())
	assert.Equal(t, "", (&Config{Provider: ProviderNone}).GetModel())
}

func TestNewOracle_RequiresAPIKey(t *testing.T) {
	_, err := NewOracle(context.Background(), DefaultConfig(), "")
	assert.Error(t, err)
}

func TestNewOracle_UnknownProvider(t *testing.T) {
	_, err := NewOracle(context.Background(), &Config{Provider: "openai"}, "key")
	assert.Error(t, err)
}

func TestNoopOracle(t *testing.T) {
	oracle, err := NewOracle(context.Background(), &Config{Provider: ProviderNone}, "")
	require.NoError(t, err)
	defer func() { _ = oracle.Close() }()

	vec, err := oracle.Embed(context.Background(), "hola")
	require.NoError(t, err)
	assert.Nil(t, vec)

	batch, err := oracle.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, batch, 2)
}
