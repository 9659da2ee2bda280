// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient calls an OpenAI-compatible chat completions endpoint
// (OpenAI, DeepSeek, vLLM) through the go-openai SDK.
type OpenAIClient struct {
	Model string

	client *openai.Client
}

// NewOpenAIClient creates a client for apiKey. An empty baseURL keeps the
// SDK's OpenAI default; a nil httpClient keeps the SDK's client.
func NewOpenAIClient(apiKey, model, baseURL string, httpClient *http.Client) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &OpenAIClient{Model: model, client: openai.NewClientWithConfig(cfg)}
}

// Complete sends messages and returns the content of the first choice.
func (c *OpenAIClient) Complete(ctx context.Context, messages []Message, temperature float64) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.Model,
		Messages:    make([]openai.ChatCompletionMessage, len(messages)),
		Temperature: float32(temperature),
	}
	for i, m := range messages {
		req.Messages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("calling chat API: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat API returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
