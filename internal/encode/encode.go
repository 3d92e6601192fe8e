// Package encode keeps the stored competency vectors in sync with the repository.
package encode

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/skillmap/internal/repository"
	"github.com/spigell/skillmap/internal/store"
)

type VectorStore interface {
	Entries(model string) (map[string]store.Entry, error)
	PutVectors(model string, entries []store.Entry) error
}

type TextEncoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
}

// Stats summarizes an encoding run. Stale counts stored vectors whose
// competency is no longer in the repository.
type Stats struct {
	Total   int
	Reused  int
	Encoded int
	Stale   int
}

// Run embeds competencies whose text changed since the last run, or all of
// them when force is set, and writes the vectors under model.
func Run(ctx context.Context, repo *repository.Repository, vs VectorStore, enc TextEncoder, model string, force bool, logger *zap.Logger) (Stats, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	stored, err := vs.Entries(model)
	if err != nil {
		return Stats{}, fmt.Errorf("load stored vectors: %w", err)
	}

	stats := Stats{Total: len(repo.Competencies)}

	var (
		pending []store.Entry
		texts   []string
	)
	known := make(map[string]struct{}, len(repo.Competencies))
	for _, c := range repo.Competencies {
		known[c.ID] = struct{}{}
		hash := repository.Fingerprint(c.Text)

		if prev, ok := stored[c.ID]; ok && !force && prev.Hash == hash && len(prev.Vector) > 0 {
			stats.Reused++
			continue
		}

		pending = append(pending, store.Entry{ID: c.ID, Hash: hash})
		texts = append(texts, c.Text)
	}

	for id := range stored {
		if _, ok := known[id]; !ok {
			stats.Stale++
		}
	}

	if len(pending) == 0 {
		logger.Info("competency vectors are up to date",
			zap.Int("total", stats.Total),
			zap.Int("reused", stats.Reused),
		)
		return stats, nil
	}

	vectors, err := enc.Encode(ctx, texts)
	if err != nil {
		return stats, fmt.Errorf("encode competencies: %w", err)
	}
	if len(vectors) != len(pending) {
		return stats, fmt.Errorf("encode competencies: got %d vectors for %d texts", len(vectors), len(pending))
	}

	for i := range pending {
		pending[i].Vector = vectors[i]
	}

	if err := vs.PutVectors(model, pending); err != nil {
		return stats, fmt.Errorf("store vectors: %w", err)
	}
	stats.Encoded = len(pending)

	logger.Info("competency vectors encoded",
		zap.Int("total", stats.Total),
		zap.Int("reused", stats.Reused),
		zap.Int("encoded", stats.Encoded),
		zap.Int("stale", stats.Stale),
	)

	return stats, nil
}
