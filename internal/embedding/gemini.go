package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	defaultGeminiModel = "gemini-embedding-001"
	// The Gemini API rejects embedding requests with more contents than this.
	maxGeminiBatch = 100
)

type contentEmbedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// GeminiEmbedder generates embeddings with the Gemini API.
type GeminiEmbedder struct {
	models contentEmbedder
	model  string
	logger *zap.Logger
}

func NewGeminiEmbedder(ctx context.Context, cfg Config, logger *zap.Logger) (*GeminiEmbedder, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required for gemini embeddings")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultGeminiModel
	}

	return &GeminiEmbedder{models: client.Models, model: model, logger: logger}, nil
}

func (e *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += maxGeminiBatch {
		end := min(start+maxGeminiBatch, len(texts))

		contents := make([]*genai.Content, 0, end-start)
		for _, text := range texts[start:end] {
			contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
		}

		e.logger.Debug("gemini embed content request",
			zap.Int("count", len(contents)),
			zap.String("model", e.model),
		)

		resp, err := e.models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
			TaskType: "SEMANTIC_SIMILARITY",
		})
		if err != nil {
			return nil, fmt.Errorf("embed content: %w", err)
		}

		if resp == nil || len(resp.Embeddings) != len(contents) {
			got := 0
			if resp != nil {
				got = len(resp.Embeddings)
			}
			return nil, fmt.Errorf("gemini api returned %d embeddings for %d texts", got, len(contents))
		}

		for _, emb := range resp.Embeddings {
			if emb == nil {
				return nil, errors.New("gemini api returned an empty embedding")
			}
			vectors = append(vectors, emb.Values)
		}
	}

	return vectors, nil
}

func (e *GeminiEmbedder) Name() string {
	return fmt.Sprintf("%s:%s", ProviderGemini, e.model)
}
