package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Source describes how to load a secret value.
type Source struct {
	// Name is used in error messages to give more context about the secret.
	Name string
	// Value is an inline secret value provided via configuration or flags.
	Value string
	// File points to a file containing the secret value. When set it takes
	// precedence over Value. A leading "~/" is expanded to the home directory.
	File string
	// Env names an environment variable consulted when File and Value are empty.
	Env string
}

// Load returns the resolved secret from the provided source, trying File,
// then Value, then Env. The returned secret is always trimmed.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	file := strings.TrimSpace(src.File)
	if file != "" {
		path, err := expandHome(file)
		if err != nil {
			return "", fmt.Errorf("resolving %s file %q: %w", name, file, err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}
		secret := strings.TrimSpace(string(data))
		if secret == "" {
			return "", fmt.Errorf("%s file %q is empty", name, file)
		}
		return secret, nil
	}

	if secret := strings.TrimSpace(src.Value); secret != "" {
		return secret, nil
	}

	if env := strings.TrimSpace(src.Env); env != "" {
		if secret := strings.TrimSpace(os.Getenv(env)); secret != "" {
			return secret, nil
		}
		return "", fmt.Errorf("%s is not configured (%s is empty)", name, env)
	}

	return "", fmt.Errorf("%s is not configured", name)
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, path[2:]), nil
}
