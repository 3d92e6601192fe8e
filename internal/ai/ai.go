package ai

import "context"

// Generator produces text for a message under a system instruction.
type Generator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
}

// Cache is a flat key-value store for generated responses.
type Cache interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}
