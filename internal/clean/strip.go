// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package clean reduces a structured document to the narrative an LLM
// should read: body text, tables, and figures, with every bibliographic
// field left behind.
package clean

import (
	"encoding/json"
	"strings"

	"github.com/pdiddy/paper-reader/pkg/types"
)

// Strip returns the narrative view of doc. Sections are rendered in order
// as "# heading\ntext", "# heading", or bare text, skipping empty ones,
// and joined with blank lines. Tables and figures are copied into new
// slices; doc is not modified.
func Strip(doc types.StructuredDocument) types.NarrativeDocument {
	return types.NarrativeDocument{
		Text:    joinSections(doc.Content.Sections),
		Tables:  copyRaw(doc.Content.Tables),
		Figures: copyRaw(doc.Content.Figures),
	}
}

func joinSections(sections []types.Section) string {
	blocks := make([]string, 0, len(sections))
	for _, s := range sections {
		switch {
		case s.Heading != "" && s.Text != "":
			blocks = append(blocks, "# "+s.Heading+"\n"+s.Text)
		case s.Heading != "":
			blocks = append(blocks, "# "+s.Heading)
		case s.Text != "":
			blocks = append(blocks, s.Text)
		}
	}
	return strings.Join(blocks, "\n\n")
}

// copyRaw returns a new slice holding the same elements. A nil input
// yields an empty slice so the JSON form is always an array.
func copyRaw(in []json.RawMessage) []json.RawMessage {
	out := make([]json.RawMessage, len(in))
	copy(out, in)
	return out
}
