package scoring

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/skillmap/internal/embedding"
	"github.com/spigell/skillmap/internal/repository"
)

// Engine scores free-text inputs against a repository and its precomputed
// embedding table.
type Engine struct {
	repo     *repository.Repository
	table    *embedding.Table
	embedder embedding.Embedder
	opts     Options
	logger   *zap.Logger
}

func NewEngine(repo *repository.Repository, table *embedding.Table, embedder embedding.Embedder, opts Options, logger *zap.Logger) (*Engine, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if table == nil || table.Len() == 0 {
		return nil, fmt.Errorf("embedding table is empty: run the encode command first")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		repo:     repo,
		table:    table,
		embedder: embedder,
		opts:     opts.withDefaults(),
		logger:   logger,
	}, nil
}

// Score embeds texts and aggregates their similarity to every competency.
// No texts yields an empty result and no embedder call.
func (e *Engine) Score(ctx context.Context, texts []string) (*Result, error) {
	if len(texts) == 0 {
		e.logger.Info("nothing to score", zap.String("reason", ErrEmptyInput.Error()))
		return &Result{
			Inputs:       []string{},
			Competencies: []CompetencyScore{},
			Blocks:       []BlockScore{},
			Jobs:         []JobMatch{},
		}, nil
	}

	vectors, err := e.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed user input: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
	}

	for i, v := range vectors {
		if len(v) != e.table.Dimensions() {
			return nil, fmt.Errorf("input %d: %w: %d != %d (was the table encoded with %s?)",
				i, embedding.ErrDimensionMismatch, len(v), e.table.Dimensions(), e.embedder.Name())
		}
	}

	matrix, err := embedding.SimilarityMatrix(vectors, e.table)
	if err != nil {
		return nil, fmt.Errorf("similarity matrix: %w", err)
	}

	result, err := Aggregate(matrix, e.table, e.repo, texts, e.opts)
	if err != nil {
		return nil, err
	}
	result.ID = uuid.NewString()

	e.logger.Debug("scored user input",
		zap.String("result_id", result.ID),
		zap.Int("inputs", len(texts)),
		zap.Int("competencies", e.table.Len()),
		zap.String("job_policy", e.opts.JobPolicy),
	)

	return result, nil
}
