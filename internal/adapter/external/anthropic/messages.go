// Package anthropic содержит клиент Messages API Anthropic
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"llmexec/internal/llm"
	"llmexec/internal/platform/httpclient"
)

const (
	// DefaultBaseURL адрес API Anthropic по умолчанию
	DefaultBaseURL = "https://api.anthropic.com/v1"
	// APIVersion значение заголовка anthropic-version
	APIVersion = "2023-06-01"
	// DefaultMaxTokens используется, если лимит не задан: поле обязательно для API
	DefaultMaxTokens = 1024
)

// Messages вызывает модель через /messages
type Messages struct {
	client  *httpclient.Client
	baseURL string
	model   string
	apiKey  string
	params  llm.Params
}

// NewMessages создаёт клиент Messages API
func NewMessages(c *httpclient.Client, baseURL, model, apiKey string, params llm.Params) *Messages {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if params.MaxTokens <= 0 {
		params.MaxTokens = DefaultMaxTokens
	}
	return &Messages{client: c, baseURL: strings.TrimRight(baseURL, "/"), model: model, apiKey: apiKey, params: params}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature *float64  `json:"temperature,omitempty"`
}

type messagesResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Invoke отправляет диалог. Системные сообщения переносятся в поле system,
// блоки ответа возвращаются как []llm.ContentPart.
func (m *Messages) Invoke(ctx context.Context, in llm.Input) (*llm.Response, error) {
	turns := in.Turns()
	req := messagesRequest{
		Model:       m.model,
		System:      in.SystemPrompt(),
		Messages:    make([]message, 0, len(turns)),
		MaxTokens:   m.params.MaxTokens,
		Temperature: m.params.Temperature,
	}
	for _, t := range turns {
		req.Messages = append(req.Messages, message{Role: string(t.Role), Content: t.Content})
	}

	var out messagesResponse
	headers := map[string]string{
		"x-api-key":         m.apiKey,
		"anthropic-version": APIVersion,
	}
	if err := m.client.PostJSON(ctx, m.baseURL+"/messages", headers, req, &out); err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	parts := make([]llm.ContentPart, 0, len(out.Content))
	for _, c := range out.Content {
		parts = append(parts, llm.ContentPart{Type: c.Type, Text: c.Text})
	}
	return &llm.Response{
		Content:    parts,
		Model:      out.Model,
		StopReason: out.StopReason,
		Usage:      llm.Usage{InputTokens: out.Usage.InputTokens, OutputTokens: out.Usage.OutputTokens},
	}, nil
}
