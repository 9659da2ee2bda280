// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package clean

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/paper-reader/internal/extract"
	"github.com/pdiddy/paper-reader/pkg/types"
)

// maxCleanInput caps the XML sent to the model.
const maxCleanInput = 200_000

// LLMCleaner recovers a narrative from raw XML with a language model. It is
// the fallback for XML sources whose parsed sections came back empty.
type LLMCleaner struct {
	engine *extract.Engine
	log    logrus.FieldLogger
}

// NewLLMCleaner creates a cleaner that sends its prompts through engine. A
// nil logger uses the logrus standard logger.
func NewLLMCleaner(engine *extract.Engine, log logrus.FieldLogger) *LLMCleaner {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LLMCleaner{engine: engine, log: log}
}

type cleanReply struct {
	Text    string            `json:"text"`
	Tables  []json.RawMessage `json:"tables"`
	Figures []json.RawMessage `json:"figures"`
}

// Clean asks the model for {text, tables, figures}. Fenced replies are
// accepted. A reply that is not a JSON object is kept as the text, or the
// raw XML when the reply is blank; a failed call keeps the raw XML.
func (c *LLMCleaner) Clean(ctx context.Context, rawXML string) (types.NarrativeDocument, types.Degradation) {
	out := types.NarrativeDocument{Tables: []json.RawMessage{}, Figures: []json.RawMessage{}}
	if strings.TrimSpace(rawXML) == "" {
		return out, types.DegradedNone
	}
	if len(rawXML) > maxCleanInput {
		rawXML = strings.ToValidUTF8(rawXML[:maxCleanInput], "")
	}

	messages, err := extract.CleanPrompt(rawXML)
	if err != nil {
		c.log.WithError(err).Error("rendering clean prompt")
		out.Text = rawXML
		return out, types.DegradedLLMError
	}

	reply, reason := c.engine.Complete(ctx, messages)
	if reason.Degraded() {
		out.Text = rawXML
		return out, reason
	}

	parsed, err := decodeReply(reply)
	if err != nil {
		c.log.WithError(err).Warn("clean reply is not a JSON object, using raw reply text")
		out.Text = reply
		if strings.TrimSpace(reply) == "" {
			out.Text = rawXML
		}
		return out, types.DegradedMalformedResponse
	}

	out.Text = parsed.Text
	out.Tables = copyRaw(parsed.Tables)
	out.Figures = copyRaw(parsed.Figures)
	return out, types.DegradedNone
}

// decodeReply reads the {text, tables, figures} object out of a reply.
func decodeReply(reply string) (cleanReply, error) {
	var parsed cleanReply
	obj, err := extract.ParseObject(reply)
	if err != nil {
		return parsed, err
	}
	body, err := json.Marshal(obj)
	if err != nil {
		return parsed, err
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return parsed, fmt.Errorf("decoding clean reply: %w", err)
	}
	return parsed, nil
}
