package cmd

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

// setConfig overrides viper keys for one test and restores them afterwards.
func setConfig(t *testing.T, values map[string]any) {
	t.Helper()
	for key, value := range values {
		prev, had := viper.Get(key), viper.IsSet(key)
		viper.Set(key, value)
		t.Cleanup(func() {
			if had {
				viper.Set(key, prev)
				return
			}
			viper.Set(key, nil)
		})
	}
}

func TestRunEncodeReturnsEmbeddingFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"model not loaded"}}`, http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	setConfig(t, map[string]any{
		"repository":          filepath.Join("..", "data", "repository.json"),
		"store":               filepath.Join(t.TempDir(), "store"),
		"embeddings.provider": "openai",
		"embeddings.base-url": srv.URL,
	})

	if err := runEncode(encodeCmd); err == nil {
		t.Fatalf("expected encode to fail when the embedding service fails")
	}
}

func TestRunEncodeReturnsSetupFailure(t *testing.T) {
	setConfig(t, map[string]any{
		"repository": filepath.Join(t.TempDir(), "missing.json"),
	})

	if err := runEncode(encodeCmd); err == nil {
		t.Fatalf("expected encode to fail without a repository file")
	}
}

func TestEncodeCommandPropagatesErrors(t *testing.T) {
	if encodeCmd.RunE == nil || encodeCmd.Run != nil {
		t.Fatalf("encode must report failures through RunE")
	}
}
