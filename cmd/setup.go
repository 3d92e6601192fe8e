package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/skillmap/internal/ai"
	"github.com/spigell/skillmap/internal/ai/gemini"
	"github.com/spigell/skillmap/internal/embedding"
	"github.com/spigell/skillmap/internal/logger"
	"github.com/spigell/skillmap/internal/secrets"
)

var errAIDisabled = errors.New("ai is disabled in config")

func newEmbedder(ctx context.Context, config *Config, log *zap.Logger) (embedding.Embedder, error) {
	cfg := config.Embeddings
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))

	apiKey := cfg.APIKey
	if provider == embedding.ProviderGemini && strings.TrimSpace(apiKey) == "" {
		key, err := resolveGeminiKey(config.AI.Gemini)
		if err != nil {
			return nil, err
		}
		apiKey = key
	}

	return embedding.NewEmbedder(ctx, embedding.Config{
		Provider:  provider,
		Model:     cfg.Model,
		BaseURL:   cfg.BaseURL,
		APIKey:    apiKey,
		BatchSize: cfg.BatchSize,
	}, logger.WithCommonFields(log, provider, cfg.Model))
}

// newAdvisor wires the Gemini generator, optionally behind the response cache.
func newAdvisor(ctx context.Context, cfg *AIConfig, cache ai.Cache, log *zap.Logger) (*ai.Advisor, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errAIDisabled
	}

	apiKey, err := resolveGeminiKey(cfg.Gemini)
	if err != nil {
		return nil, err
	}

	genLogger := logger.WithFields(
		logger.WithCommonFields(log, "gemini", cfg.Gemini.Model),
		zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries),
	)

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, genLogger)
	if err != nil {
		return nil, err
	}

	var gen ai.Generator = generator
	if cfg.Cache && cache != nil {
		gen = ai.NewCachedGenerator(generator, cache, genLogger)
	}

	return ai.NewAdvisor(gen, cfg.EnrichMinWords, cfg.Gemini.MaxLogLength, genLogger), nil
}

func resolveGeminiKey(cfg *GeminiConfig) (string, error) {
	if cfg == nil {
		cfg = &GeminiConfig{}
	}

	key, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  cfg.APIKeyFile,
		Value: cfg.APIKey,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return "", fmt.Errorf("%w (set ai.gemini.api-key-file, GEMINI_API_KEY_FILE or GEMINI_API_KEY)", err)
	}
	return key, nil
}
