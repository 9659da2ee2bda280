// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pdiddy/paper-reader/pkg/types"
)

// DefaultPaths lays out the input and output directories under dataDir.
func DefaultPaths(dataDir string) types.PathsConfig {
	in := filepath.Join(dataDir, "input")
	out := filepath.Join(dataDir, "output")
	return types.PathsConfig{
		Identifiers: filepath.Join(in, "doi.xlsx"),
		Library:     filepath.Join(in, "pdfs"),
		Parsed:      filepath.Join(out, "parsed_json"),
		Cleaned:     filepath.Join(out, "cleaned_json"),
		Info:        filepath.Join(out, "info_json"),
		Exports:     filepath.Join(out, "extracted_xlsx"),
	}
}

// EnsureDirs creates every directory of a layout.
func EnsureDirs(p types.PathsConfig) error {
	for _, dir := range []string{
		filepath.Dir(p.Identifiers),
		p.Library,
		p.Parsed,
		p.Cleaned,
		p.Info,
		p.Exports,
	} {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

// LatestExport returns the most recently modified .xlsx in dir, or ""
// when there is none.
func LatestExport(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.xlsx"))
	if err != nil {
		return "", err
	}
	type entry struct {
		path string
		mod  int64
	}
	var entries []entry
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		entries = append(entries, entry{m, info.ModTime().UnixNano()})
	}
	if len(entries) == 0 {
		return "", nil
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].mod != entries[j].mod {
			return entries[i].mod > entries[j].mod
		}
		return entries[i].path > entries[j].path
	})
	return entries[0].path, nil
}
