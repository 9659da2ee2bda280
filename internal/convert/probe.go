// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Format is the detected kind of a source document.
type Format string

const (
	FormatPDF     Format = "pdf"
	FormatXML     Format = "xml"
	FormatUnknown Format = "unknown"
)

// SourceInfo describes a source file before it is uploaded.
type SourceInfo struct {
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
	Size   int64  `json:"size"`
	Format Format `json:"format"`

	// Pages is the PDF page count, or 0 when unknown.
	Pages int `json:"pages"`
}

// Usable reports whether the source has content worth sending to the
// parser. Zero-byte files are the fetcher's placeholders and count as
// missing.
func (s SourceInfo) Usable() bool {
	return s.Exists && s.Size > 0
}

// Probe inspects the file at path. It never fails; unreadable files come
// back as not existing.
func Probe(path string) SourceInfo {
	info := SourceInfo{Path: path, Format: FormatUnknown}
	st, err := os.Stat(path)
	if err != nil || st.IsDir() {
		return info
	}
	info.Exists = true
	info.Size = st.Size()
	if info.Size == 0 {
		return info
	}

	info.Format = detectFormat(path)
	if info.Format == FormatPDF {
		info.Pages = pageCount(path)
	}
	return info
}

// detectFormat sniffs the leading bytes, falling back to the extension.
func detectFormat(path string) Format {
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown
	}
	defer f.Close()

	head := make([]byte, 512)
	n, _ := io.ReadFull(f, head)
	head = bytes.TrimLeft(head[:n], "\xef\xbb\xbf \t\r\n")

	switch {
	case bytes.HasPrefix(head, []byte("%PDF-")):
		return FormatPDF
	case bytes.HasPrefix(head, []byte("<")):
		return FormatXML
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return FormatPDF
	case ".xml":
		return FormatXML
	}
	return FormatUnknown
}

// pageCount returns the number of pages in a PDF, or 0 if the file cannot
// be read. The pdf reader panics on some malformed inputs.
func pageCount(path string) (pages int) {
	defer func() {
		if recover() != nil {
			pages = 0
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()
	return r.NumPage()
}
