// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/paper-reader/pkg/types"
)

// DefaultTemperature is the sampling temperature for every extraction call.
const DefaultTemperature = 0.2

// StubReply is returned by the stub completer. It is valid JSON that carries
// none of the expected keys, so extraction degrades to null values.
const StubReply = `{"note": "LLM stub response; please configure OPENAI_API_KEY."}`

const (
	defaultOpenAIModel    = "gpt-4o-mini"
	defaultDeepSeekModel  = "deepseek-chat"
	defaultAnthropicModel = "claude-sonnet-4-5"
	defaultChatTimeout    = 60 * time.Second
)

// Message is one turn of a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompleter sends a conversation to a language model and returns the
// text of its reply.
type ChatCompleter interface {
	Complete(ctx context.Context, messages []Message, temperature float64) (string, error)
}

// StubClient answers every request with StubReply. It is selected when no
// API key is configured.
type StubClient struct{}

// Complete returns StubReply.
func (StubClient) Complete(context.Context, []Message, float64) (string, error) {
	return StubReply, nil
}

// NewChatCompleter selects a completer for cfg. Without an API key the stub
// is returned and a warning logged; otherwise the configured provider's
// client, with the model defaulted from the base URL.
func NewChatCompleter(cfg types.AIConfig, log logrus.FieldLogger) ChatCompleter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if cfg.APIKey == "" {
		log.Warn("no LLM API key configured, using stub completer")
		return StubClient{}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultChatTimeout
	}
	client := &http.Client{Timeout: timeout}
	model := cfg.Model

	switch cfg.Provider {
	case types.ProviderAnthropic:
		if model == "" {
			model = defaultAnthropicModel
		}
		return &AnthropicClient{APIKey: cfg.APIKey, Model: model, BaseURL: cfg.BaseURL, Client: client}
	default:
		if model == "" {
			model = DefaultModel(cfg.BaseURL)
		}
		return NewOpenAIClient(cfg.APIKey, model, cfg.BaseURL, client)
	}
}

// DefaultModel picks the model used when none is configured for an
// OpenAI-compatible endpoint.
func DefaultModel(baseURL string) string {
	if strings.Contains(strings.ToLower(baseURL), "deepseek") {
		return defaultDeepSeekModel
	}
	return defaultOpenAIModel
}
