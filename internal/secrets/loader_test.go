package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "key")
	if err := os.WriteFile(keyFile, []byte("  from-file \n"), 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}
	emptyFile := filepath.Join(dir, "empty")
	if err := os.WriteFile(emptyFile, []byte("\n"), 0o600); err != nil {
		t.Fatalf("write empty key: %v", err)
	}

	t.Setenv("SKILLMAP_TEST_KEY", " from-env ")
	t.Setenv("SKILLMAP_EMPTY_KEY", "")

	tests := []struct {
		name    string
		src     Source
		want    string
		wantErr string
	}{
		{name: "file wins", src: Source{File: keyFile, Value: "inline", Env: "SKILLMAP_TEST_KEY"}, want: "from-file"},
		{name: "inline value", src: Source{Value: " inline ", Env: "SKILLMAP_TEST_KEY"}, want: "inline"},
		{name: "environment", src: Source{Env: "SKILLMAP_TEST_KEY"}, want: "from-env"},
		{name: "empty file", src: Source{Name: "api key", File: emptyFile}, wantErr: "api key file"},
		{name: "missing file", src: Source{File: filepath.Join(dir, "nope")}, wantErr: "reading secret"},
		{name: "empty env", src: Source{Name: "api key", Env: "SKILLMAP_EMPTY_KEY"}, wantErr: "SKILLMAP_EMPTY_KEY is empty"},
		{name: "nothing", src: Source{Name: "api key"}, wantErr: "api key is not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.src)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load returned error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestLoadExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if err := os.WriteFile(filepath.Join(home, ".gemini-key"), []byte("home-key"), 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}

	got, err := Load(Source{File: "~/.gemini-key"})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got != "home-key" {
		t.Fatalf("expected home-key, got %q", got)
	}
}
