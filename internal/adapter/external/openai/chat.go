// Package openai содержит клиент Chat Completions API OpenAI (и совместимых с ним сервисов)
package openai

import (
	"context"
	"fmt"
	"strings"

	"llmexec/internal/llm"
	"llmexec/internal/platform/httpclient"
)

// DefaultBaseURL адрес API OpenAI по умолчанию
const DefaultBaseURL = "https://api.openai.com/v1"

// Chat вызывает модель через /chat/completions
type Chat struct {
	client  *httpclient.Client
	baseURL string
	model   string
	apiKey  string
	params  llm.Params
}

// NewChat создаёт клиент чата
func NewChat(c *httpclient.Client, baseURL, model, apiKey string, params llm.Params) *Chat {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Chat{client: c, baseURL: strings.TrimRight(baseURL, "/"), model: model, apiKey: apiKey, params: params}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Invoke отправляет диалог и возвращает ответ модели.
// Если в ответе нет вариантов или content равен null, Content остаётся nil.
func (c *Chat) Invoke(ctx context.Context, in llm.Input) (*llm.Response, error) {
	req := chatRequest{
		Model:       c.model,
		Messages:    make([]chatMessage, 0, len(in.Messages)+1),
		Temperature: c.params.Temperature,
		MaxTokens:   c.params.MaxTokens,
	}
	if in.System != "" {
		req.Messages = append(req.Messages, chatMessage{Role: string(llm.RoleSystem), Content: in.System})
	}
	for _, m := range in.Messages {
		req.Messages = append(req.Messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}

	var out chatResponse
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	if err := c.client.PostJSON(ctx, c.baseURL+"/chat/completions", headers, req, &out); err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}

	resp := &llm.Response{
		Model: out.Model,
		Usage: llm.Usage{InputTokens: out.Usage.PromptTokens, OutputTokens: out.Usage.CompletionTokens},
	}
	if len(out.Choices) > 0 {
		ch := out.Choices[0]
		resp.StopReason = ch.FinishReason
		if ch.Message.Content != nil {
			resp.Content = *ch.Message.Content
		}
	}
	return resp, nil
}
