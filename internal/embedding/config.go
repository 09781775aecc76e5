// Package embedding turns text into vectors and compares them.
package embedding

// Provider represents an embedding provider
type Provider string

// Provider constants define supported embedding providers
const (
	// ProviderGemini is the Google Gemini embeddings API
	ProviderGemini Provider = "gemini"
	// ProviderNone disables embeddings; semantic answers then score zero
	ProviderNone Provider = "none"
)

// DefaultGeminiModel is the embedding model used when none is configured
const DefaultGeminiModel = "text-embedding-004"

// Config holds the embedding configuration
type Config struct {
	Provider Provider
	Model    string
	// BatchSize bounds the texts sent per batch request
	BatchSize int
}

// DefaultConfig returns the default configuration (currently Gemini)
func DefaultConfig() *Config {
	return &Config{
		Provider:  ProviderGemini,
		Model:     DefaultGeminiModel,
		BatchSize: 50,
	}
}

// GetModel returns the configured model or the provider default
func (c *Config) GetModel() string {
	if c.Model != "" {
		return c.Model
	}
	if c.Provider == ProviderGemini || c.Provider == "" {
		return DefaultGeminiModel
	}
	return ""
}
