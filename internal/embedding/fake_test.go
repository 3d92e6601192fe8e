package embedding

import (
	"context"
	"hash/fnv"
	"sync"
)

// fakeEmbedder returns deterministic vectors derived from the text hash.
type fakeEmbedder struct {
	mu    sync.Mutex
	calls [][]string
	err   error
	dim   int
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string(nil), texts...))
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	dim := f.dim
	if dim == 0 {
		dim = 8
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = hashVector(text, dim)
	}
	return out, nil
}

func (f *fakeEmbedder) Name() string { return "fake:test" }

func hashVector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vec := make([]float32, dim)
	for i := range vec {
		seed = seed*1664525 + 1013904223
		vec[i] = float32(seed%1000) / 1000.0
	}
	return vec
}
