// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the paper-reader pipeline:
// parsed and narrative documents, extraction records, degradation reasons,
// and stage configuration.
package types

import "encoding/json"

// Metadata holds the bibliographic fields a structural parser reports for
// an article. The metadata stripper drops all of them.
type Metadata struct {
	Title string `json:"title"`

	// Authors is passed through as the parser returned it (strings or objects).
	Authors []json.RawMessage `json:"authors"`

	// DOI is always populated; the pipeline injects the identifier when the
	// parser left it empty.
	DOI string `json:"doi"`
}

// Section is one block of body text in reading order.
type Section struct {
	Heading string `json:"heading,omitempty"`
	Text    string `json:"text"`
}

// Content holds the narrative parts of a parsed document.
type Content struct {
	// Sections mirror the document's reading order.
	Sections []Section `json:"sections"`

	Tables  []json.RawMessage `json:"tables"`
	Figures []json.RawMessage `json:"figures"`
}

// StructuredDocument is the output of the structural parser.
type StructuredDocument struct {
	Metadata Metadata `json:"metadata"`
	Content  Content  `json:"content"`
}

// PlaceholderDocument returns the well-formed empty structure used whenever
// the parser cannot produce real output.
func PlaceholderDocument(doi string) StructuredDocument {
	return StructuredDocument{
		Metadata: Metadata{
			Title:   "",
			Authors: []json.RawMessage{},
			DOI:     doi,
		},
		Content: Content{
			Sections: []Section{},
			Tables:   []json.RawMessage{},
			Figures:  []json.RawMessage{},
		},
	}
}

// NarrativeDocument is a metadata-free view of a StructuredDocument:
// concatenated section text plus the tables and figures.
type NarrativeDocument struct {
	Text    string            `json:"text"`
	Tables  []json.RawMessage `json:"tables"`
	Figures []json.RawMessage `json:"figures"`
}
