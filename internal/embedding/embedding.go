// Package embedding turns text into fixed-length vectors and compares them.
// The embedding model itself is an external service reached through one of
// the supported providers.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Embedder generates vector embeddings for texts.
// The returned slice holds one vector per input text, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
}

// Config selects and configures an embedding provider.
type Config struct {
	Provider string
	Model    string
	// BaseURL of an OpenAI-compatible server. Used by the openai provider only.
	BaseURL string
	// APIKey is optional for local OpenAI-compatible servers and required for gemini.
	APIKey string
	// BatchSize is forwarded to providers that batch internally.
	BatchSize int
}

// NewEmbedder creates an embedder for the configured provider.
func NewEmbedder(ctx context.Context, cfg Config, logger *zap.Logger) (Embedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch provider {
	case "", ProviderOpenAI:
		return NewOpenAIEmbedder(cfg, logger)
	case ProviderGemini:
		return NewGeminiEmbedder(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s (use %q or %q)", cfg.Provider, ProviderOpenAI, ProviderGemini)
	}
}

// Cosine returns the cosine similarity of a and b in [-1, 1].
// A zero vector is similar to nothing and yields 0.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dot, aMag, bMag float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		aMag += x * x
		bMag += y * y
	}

	if aMag == 0 || bMag == 0 {
		return 0, nil
	}

	return dot / (math.Sqrt(aMag) * math.Sqrt(bMag)), nil
}

// SimilarityMatrix compares every input vector with every table vector.
// Rows follow inputs, columns follow the table ids.
func SimilarityMatrix(inputs [][]float32, table *Table) ([][]float64, error) {
	matrix := make([][]float64, len(inputs))
	for i, in := range inputs {
		row := make([]float64, len(table.Vectors))
		for j, vec := range table.Vectors {
			sim, err := Cosine(in, vec)
			if err != nil {
				return nil, fmt.Errorf("input %d vs %s: %w", i, table.IDs[j], err)
			}
			row[j] = sim
		}
		matrix[i] = row
	}
	return matrix, nil
}
