// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and contact addresses kept out of the
// config file. Secrets come from a directory of plain-text files (the file
// name is the key) and from a dotenv file whose SCREAMING_SNAKE names map
// to the same kebab-case keys.
//
// Known keys: semantic-scholar-api-key, crossref-mailto, openalex-email.
package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Key names understood by the CLI.
const (
	SemanticScholarAPIKey = "semantic-scholar-api-key"
	CrossrefMailto        = "crossref-mailto"
	OpenAlexEmail         = "openalex-email"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory yields an empty map. Dotfiles, subdirectories, empty
// and unreadable files are skipped.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}
	return secrets, nil
}

// LoadEnv reads a dotenv file. SEMANTIC_SCHOLAR_API_KEY becomes
// semantic-scholar-api-key. A missing file yields an empty map.
func LoadEnv(path string) (map[string]string, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	out := make(map[string]string, len(vars))
	for k, v := range vars {
		if v = strings.TrimSpace(v); v != "" {
			out[KeyName(k)] = v
		}
	}
	return out, nil
}

// KeyName converts an environment variable name to a secret key name.
func KeyName(env string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(env)), "_", "-")
}

// LoadAll merges the dotenv file at envPath with the directory dir. Files in
// dir take precedence.
func LoadAll(dir, envPath string) (map[string]string, error) {
	merged, err := LoadEnv(envPath)
	if err != nil {
		return nil, err
	}
	files, err := Load(dir)
	if err != nil {
		return nil, err
	}
	for k, v := range files {
		merged[k] = v
	}
	return merged, nil
}
