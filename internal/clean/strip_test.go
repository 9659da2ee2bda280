// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package clean

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-reader/internal/extract"
	"github.com/pdiddy/paper-reader/internal/logging"
	"github.com/pdiddy/paper-reader/pkg/types"
)

func TestStripSections(t *testing.T) {
	tests := []struct {
		name     string
		sections []types.Section
		want     string
	}{
		{"none", nil, ""},
		{"heading and text", []types.Section{{Heading: "Intro", Text: "Body"}}, "# Intro\nBody"},
		{"heading only", []types.Section{{Heading: "Methods"}}, "# Methods"},
		{"text only", []types.Section{{Text: "Loose paragraph"}}, "Loose paragraph"},
		{"empty skipped", []types.Section{{}, {Text: "a"}, {}, {Text: "b"}}, "a\n\nb"},
		{
			name: "mixed in order",
			sections: []types.Section{
				{Heading: "Intro", Text: "Perovskite."},
				{Heading: "Results"},
				{Text: "PCE 22%."},
			},
			want: "# Intro\nPerovskite.\n\n# Results\n\nPCE 22%.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := types.PlaceholderDocument("10.1/abc")
			doc.Content.Sections = tt.sections
			assert.Equal(t, tt.want, Strip(doc).Text)
		})
	}
}

func TestStripDropsMetadata(t *testing.T) {
	doc := types.StructuredDocument{
		Metadata: types.Metadata{
			Title:   "Secret Title",
			Authors: []json.RawMessage{json.RawMessage(`"Jane Roe"`)},
			DOI:     "10.1/abc",
		},
		Content: types.Content{
			Sections: []types.Section{{Heading: "Intro", Text: "Body"}},
			Tables:   []json.RawMessage{json.RawMessage(`{"caption":"T1"}`)},
			Figures:  []json.RawMessage{json.RawMessage(`{"caption":"F1"}`)},
		},
	}

	out := Strip(doc)
	data, err := json.Marshal(out)
	require.NoError(t, err)

	var keys map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &keys))
	assert.Len(t, keys, 3)
	for _, k := range []string{"metadata", "title", "authors", "doi"} {
		assert.NotContains(t, keys, k)
	}
	assert.NotContains(t, string(data), "Secret Title")
	assert.NotContains(t, string(data), "Jane Roe")
	assert.Equal(t, doc.Content.Tables, out.Tables)
	assert.Equal(t, doc.Content.Figures, out.Figures)
}

func TestStripIsPure(t *testing.T) {
	doc := types.PlaceholderDocument("10.1/abc")
	doc.Content.Sections = []types.Section{{Heading: "H", Text: "T"}}
	doc.Content.Tables = []json.RawMessage{json.RawMessage(`1`), json.RawMessage(`2`)}

	first := Strip(doc)
	first.Tables[0] = json.RawMessage(`"mutated"`)
	first.Tables = append(first.Tables, json.RawMessage(`3`))

	assert.Equal(t, json.RawMessage(`1`), doc.Content.Tables[0], "input slice shares no backing array")
	assert.Len(t, doc.Content.Tables, 2)

	second := Strip(doc)
	assert.Equal(t, "# H\nT", second.Text)
	assert.Len(t, second.Tables, 2)
}

func TestStripNilSlicesBecomeEmpty(t *testing.T) {
	out := Strip(types.StructuredDocument{})
	assert.NotNil(t, out.Tables)
	assert.NotNil(t, out.Figures)
	assert.Empty(t, out.Text)
}

// --- LLMCleaner ---

type replyCompleter struct {
	reply string
	err   error
	calls int
}

func (r *replyCompleter) Complete(context.Context, []extract.Message, float64) (string, error) {
	r.calls++
	return r.reply, r.err
}

func quietLogger() logrus.FieldLogger {
	return logging.Discard()
}

func newCleaner(c extract.ChatCompleter) *LLMCleaner {
	log := quietLogger()
	return NewLLMCleaner(extract.NewEngine(c, nil, log), log)
}

func TestLLMCleanerClean(t *testing.T) {
	const xml = "<article><body><p>Perovskite</p></body></article>"

	tests := []struct {
		name      string
		input     string
		reply     string
		err       error
		wantText  string
		wantWhy   types.Degradation
		wantCalls int
	}{
		{
			name:      "json reply",
			input:     xml,
			reply:     `{"text": "Perovskite", "tables": [{"caption": "T1"}], "figures": []}`,
			wantText:  "Perovskite",
			wantCalls: 1,
		},
		{
			name:      "plain reply kept as text",
			input:     xml,
			reply:     "Perovskite body text",
			wantText:  "Perovskite body text",
			wantWhy:   types.DegradedMalformedResponse,
			wantCalls: 1,
		},
		{
			name:      "empty reply falls back to xml",
			input:     xml,
			reply:     "",
			wantText:  xml,
			wantWhy:   types.DegradedMalformedResponse,
			wantCalls: 1,
		},
		{
			name:      "fenced json reply",
			input:     xml,
			reply:     "```json\n{\"text\": \"body\", \"tables\": [], \"figures\": []}\n```",
			wantText:  "body",
			wantCalls: 1,
		},
		{
			name:      "null reply falls back to reply text",
			input:     xml,
			reply:     "null",
			wantText:  "null",
			wantWhy:   types.DegradedMalformedResponse,
			wantCalls: 1,
		},
		{
			name:      "array reply is not an object",
			input:     xml,
			reply:     `[{"text": "x"}]`,
			wantText:  `[{"text": "x"}]`,
			wantWhy:   types.DegradedMalformedResponse,
			wantCalls: 1,
		},
		{
			name:      "call failure keeps xml",
			input:     xml,
			err:       errors.New("503"),
			wantText:  xml,
			wantWhy:   types.DegradedLLMError,
			wantCalls: 1,
		},
		{
			name:      "blank input makes no call",
			input:     "  \n",
			wantText:  "",
			wantCalls: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &replyCompleter{reply: tt.reply, err: tt.err}
			out, why := newCleaner(c).Clean(context.Background(), tt.input)

			assert.Equal(t, tt.wantText, out.Text)
			assert.Equal(t, tt.wantWhy, why)
			assert.Equal(t, tt.wantCalls, c.calls)
			assert.NotNil(t, out.Tables)
			assert.NotNil(t, out.Figures)
		})
	}
}

func TestNewLLMCleanerNilLogger(t *testing.T) {
	c := &replyCompleter{reply: "plain text"}
	out, why := NewLLMCleaner(extract.NewEngine(c, nil, nil), nil).Clean(context.Background(), "<article/>")
	assert.Equal(t, "plain text", out.Text)
	assert.Equal(t, types.DegradedMalformedResponse, why)
}
