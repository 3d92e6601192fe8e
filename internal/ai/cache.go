package ai

import (
	"context"
	"crypto/sha256"
	"fmt"

	"go.uber.org/zap"
)

// CachedGenerator answers repeated prompts from a cache instead of the API.
// Cache failures are logged and never fail generation.
type CachedGenerator struct {
	next   Generator
	cache  Cache
	logger *zap.Logger
}

func NewCachedGenerator(next Generator, cache Cache, logger *zap.Logger) *CachedGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedGenerator{next: next, cache: cache, logger: logger}
}

func (c *CachedGenerator) GenerateContent(ctx context.Context, system, message string) (string, error) {
	key := cacheKey(system, message)

	cached, ok, err := c.cache.Get(key)
	if err != nil {
		c.logger.Warn("reading generation cache", zap.Error(err))
	} else if ok {
		c.logger.Debug("generation cache hit", zap.String("key", key))
		return cached, nil
	}

	output, err := c.next.GenerateContent(ctx, system, message)
	if err != nil {
		return "", err
	}

	if err := c.cache.Set(key, output); err != nil {
		c.logger.Warn("writing generation cache", zap.Error(err))
	}

	return output, nil
}

func cacheKey(system, message string) string {
	sum := sha256.Sum256([]byte(system + "\x00" + message))
	return fmt.Sprintf("%x", sum[:])
}
