package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Oracle is an abstraction over embedding providers
type Oracle interface {
	// Embed returns the embedding of one text
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one embedding per text, in order
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Close releases any resources held by the oracle
	Close() error
}

// NewOracle creates an embedding oracle based on configuration
func NewOracle(ctx context.Context, config *Config, apiKey string) (Oracle, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Provider {
	case ProviderNone:
		return NoopOracle{}, nil
	case ProviderGemini, "":
		return NewGeminiOracle(ctx, config, apiKey)
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", config.Provider)
	}
}

// GeminiOracle implements Oracle for Google Gemini embeddings
type GeminiOracle struct {
	client *genai.Client
	config *Config
}

// NewGeminiOracle creates a new Gemini embedding oracle
func NewGeminiOracle(ctx context.Context, config *Config, apiKey string) (*GeminiOracle, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiOracle{
		client: client,
		config: config,
	}, nil
}

func (o *GeminiOracle) model() *genai.EmbeddingModel {
	em := o.client.EmbeddingModel(o.config.GetModel())
	em.TaskType = genai.TaskTypeSemanticSimilarity
	return em
}

// Embed returns the embedding of text
func (o *GeminiOracle) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	res, err := o.model().EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("failed to embed content: %w", err)
	}
	if res == nil || res.Embedding == nil {
		return nil, fmt.Errorf("empty embedding response")
	}
	return res.Embedding.Values, nil
}

// EmbedBatch embeds texts in batches of config.BatchSize
func (o *GeminiOracle) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	size := o.config.BatchSize
	if size <= 0 {
		size = len(texts)
	}

	out := make([][]float32, 0, len(texts))
	em := o.model()
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))

		batch := em.NewBatch()
		for _, t := range texts[start:end] {
			batch.AddContent(genai.Text(t))
		}
		res, err := em.BatchEmbedContents(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("failed to batch embed content: %w", err)
		}
		if len(res.Embeddings) != end-start {
			return nil, fmt.Errorf("expected %d embeddings, got %d", end-start, len(res.Embeddings))
		}
		for _, e := range res.Embeddings {
			out = append(out, e.Values)
		}
	}
	return out, nil
}

// Close releases resources held by the oracle
func (o *GeminiOracle) Close() error {
	if o.client != nil {
		return o.client.Close()
	}
	return nil
}

// NoopOracle returns no embeddings
type NoopOracle struct{}

func (NoopOracle) Embed(context.Context, string) ([]float32, error) { return nil, nil }

func (NoopOracle) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	return make([][]float32, len(texts)), nil
}

func (NoopOracle) Close() error { return nil }
