// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"os"
	"path/filepath"
	"strings"
)

// pdfNameChars maps an identifier to a library PDF name. Unlike SafeName it
// also folds spaces, which appear in hand-named library PDFs.
var pdfNameChars = strings.NewReplacer("/", "_", " ", "_")

// SafeName returns the filesystem-safe stem for an identifier. Every
// per-article artifact is named {SafeName(id)}{suffix}.
func SafeName(identifier string) string {
	return strings.ReplaceAll(identifier, "/", "_")
}

// ArtifactPath joins dir with the safe stem of identifier and suffix.
func ArtifactPath(dir, identifier, suffix string) string {
	return filepath.Join(dir, SafeName(identifier)+suffix)
}

// LocalPDF returns the caller-supplied PDF for identifier under
// libraryDir, or "" when there is none. Library PDFs are named with both
// slashes and spaces replaced by underscores.
func LocalPDF(identifier, libraryDir string) string {
	if libraryDir == "" {
		return ""
	}
	candidate := filepath.Join(libraryDir, pdfNameChars.Replace(identifier)+".pdf")
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return candidate
	}
	return ""
}

// Resolve picks the source the parser will read. A local PDF in the
// library wins over a fetched document. If neither exists, fallback (the
// path the fetch would have written) is returned anyway; the parser treats
// a missing source as a degraded case.
func Resolve(identifier, libraryDir string, fetched FetchResult, fallback string) string {
	if local := LocalPDF(identifier, libraryDir); local != "" {
		return local
	}
	if fetched.OK() {
		return fetched.Path
	}
	return fallback
}
