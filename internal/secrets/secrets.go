// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets reads service credentials from a directory holding one
// plain-text file per key. Credentials found there fill gaps left by the
// config file and environment; they never replace a configured value.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// Key file names read by the CLI.
const (
	KeyElsevier  = "elsevier-api-key"
	KeyOpenAI    = "openai-api-key"
	KeyAnthropic = "anthropic-api-key"
	KeyUniParser = "uniparser-token"
)

// Store maps key file names to their trimmed contents. The zero value is
// an empty store.
type Store map[string]string

// Get returns configured when it is set, else the stored value for key.
func (s Store) Get(key, configured string) string {
	if configured != "" {
		return configured
	}
	return s[key]
}

// Names returns the stored key names in sorted order, for logging which
// credentials were found without revealing them.
func (s Store) Names() []string {
	names := make([]string, 0, len(s))
	for k := range s {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Load reads every regular, non-hidden file in dir. A missing directory
// yields an empty store; empty files are skipped; unreadable files are
// logged and skipped.
func Load(dir string) (Store, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return Store{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	store := Store{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logrus.WithError(err).WithField("secret", name).Warn("could not read secret")
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			store[name] = value
		}
	}
	return store, nil
}
