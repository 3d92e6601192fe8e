package ai

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type mapCache struct {
	values map[string]string
	getErr error
	setErr error
}

func (m *mapCache) Get(key string) (string, bool, error) {
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *mapCache) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	if m.values == nil {
		m.values = map[string]string{}
	}
	m.values[key] = value
	return nil
}

func TestCachedGeneratorHit(t *testing.T) {
	gen := &stubGenerator{reply: "fresh"}
	cache := &mapCache{}
	cached := NewCachedGenerator(gen, cache, zap.NewNop())

	for i := 0; i < 2; i++ {
		out, err := cached.GenerateContent(context.Background(), "sys", "msg")
		if err != nil {
			t.Fatalf("GenerateContent returned error: %v", err)
		}
		if out != "fresh" {
			t.Fatalf("unexpected output %q", out)
		}
	}
	if gen.calls != 1 {
		t.Fatalf("generator called %d times, want 1", gen.calls)
	}

	if _, err := cached.GenerateContent(context.Background(), "sys", "other"); err != nil {
		t.Fatalf("GenerateContent returned error: %v", err)
	}
	if gen.calls != 2 {
		t.Fatalf("different message must miss the cache")
	}
}

func TestCacheKeySeparatesSystemAndMessage(t *testing.T) {
	if cacheKey("ab", "c") == cacheKey("a", "bc") {
		t.Fatalf("cache keys must differ")
	}
}

func TestCachedGeneratorSkipsFailures(t *testing.T) {
	boom := errors.New("boom")
	gen := &stubGenerator{err: boom}
	cache := &mapCache{}
	cached := NewCachedGenerator(gen, cache, zap.NewNop())

	if _, err := cached.GenerateContent(context.Background(), "", "msg"); !errors.Is(err, boom) {
		t.Fatalf("expected generator error, got %v", err)
	}
	if len(cache.values) != 0 {
		t.Fatalf("failed responses must not be cached")
	}
}

func TestCachedGeneratorLogsCacheErrors(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	gen := &stubGenerator{reply: "ok"}
	cache := &mapCache{getErr: errors.New("read"), setErr: errors.New("write")}
	cached := NewCachedGenerator(gen, cache, zap.New(core))

	out, err := cached.GenerateContent(context.Background(), "", "msg")
	if err != nil {
		t.Fatalf("GenerateContent returned error: %v", err)
	}
	if out != "ok" {
		t.Fatalf("unexpected output %q", out)
	}
	if logs.Len() != 2 {
		t.Fatalf("expected 2 warnings, got %d", logs.Len())
	}
}
