package embedding

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

const defaultBatchSize = 32

// Encoder embeds large text sets in batches spread over a worker pool.
type Encoder struct {
	embedder  Embedder
	batchSize int
	workers   int
	logger    *zap.Logger
}

// NewEncoder returns an encoder. Non-positive sizes fall back to defaults:
// 32 texts per batch and half the CPUs as workers.
func NewEncoder(embedder Embedder, batchSize, workers int, logger *zap.Logger) *Encoder {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if workers <= 0 {
		workers = max(runtime.NumCPU()/2, 1)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Encoder{
		embedder:  embedder,
		batchSize: batchSize,
		workers:   workers,
		logger:    logger,
	}
}

// Encode embeds texts and returns vectors in input order.
// The first failing batch cancels the remaining ones.
func (e *Encoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	pool, err := ants.NewPool(e.workers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	vectors := make([][]float32, len(texts))

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)

	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		start := start

		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()

			if ctx.Err() != nil {
				return
			}

			batch, err := e.embedder.Embed(ctx, texts[start:end])
			if err != nil {
				fail(fmt.Errorf("batch %d-%d: %w", start, end, err))
				return
			}
			if len(batch) != end-start {
				fail(fmt.Errorf("batch %d-%d: got %d vectors", start, end, len(batch)))
				return
			}

			copy(vectors[start:end], batch)

			e.logger.Debug("encoded batch",
				zap.Int("from", start),
				zap.Int("to", end),
				zap.String("embedder", e.embedder.Name()),
			)
		})
		if submitErr != nil {
			wg.Done()
			fail(fmt.Errorf("submit batch: %w", submitErr))
			break
		}
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return vectors, nil
}
