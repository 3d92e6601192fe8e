package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

const (
	defaultOpenAIBaseURL = "http://localhost:11434/v1"
	defaultOpenAIModel   = "all-minilm"
	// Local OpenAI-compatible servers accept any token.
	noToken = "none"
)

// OpenAIEmbedder talks to any OpenAI-compatible embedding endpoint,
// typically a local server hosting a sentence-transformer model.
type OpenAIEmbedder struct {
	embedder embeddings.Embedder
	model    string
	logger   *zap.Logger
}

func NewOpenAIEmbedder(cfg Config, logger *zap.Logger) (*OpenAIEmbedder, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultOpenAIModel
	}

	token := strings.TrimSpace(cfg.APIKey)
	if token == "" {
		token = noToken
	}

	client, err := openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithToken(token),
		openai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}

	opts := []embeddings.Option{embeddings.WithStripNewLines(true)}
	if cfg.BatchSize > 0 {
		opts = append(opts, embeddings.WithBatchSize(cfg.BatchSize))
	}

	embedder, err := embeddings.NewEmbedder(client, opts...)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	return &OpenAIEmbedder{
		embedder: embedder,
		model:    model,
		logger:   logger.With(zap.String("base_url", baseURL)),
	}, nil
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	e.logger.Debug("generating embeddings", zap.Int("count", len(texts)), zap.String("model", e.model))

	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed documents: %w", err)
	}

	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding service returned %d vectors for %d texts", len(vectors), len(texts))
	}

	return vectors, nil
}

func (e *OpenAIEmbedder) Name() string {
	return fmt.Sprintf("%s:%s", ProviderOpenAI, e.model)
}
