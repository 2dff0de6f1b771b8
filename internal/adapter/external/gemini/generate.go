// Package gemini содержит клиент generateContent API Google Gemini
package gemini

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"llmexec/internal/llm"
	"llmexec/internal/platform/httpclient"
)

// DefaultBaseURL адрес Generative Language API по умолчанию
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Generate вызывает модель через models/{model}:generateContent
type Generate struct {
	client  *httpclient.Client
	baseURL string
	model   string
	apiKey  string
	params  llm.Params
}

// NewGenerate создаёт клиент Gemini
func NewGenerate(c *httpclient.Client, baseURL, model, apiKey string, params llm.Params) *Generate {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Generate{client: c, baseURL: strings.TrimRight(baseURL, "/"), model: model, apiKey: apiKey, params: params}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

type generateRequest struct {
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	Contents          []content         `json:"contents"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
	ModelVersion string `json:"modelVersion"`
}

// роль assistant в Gemini называется model
func role(r llm.Role) string {
	if r == llm.RoleAssistant {
		return "model"
	}
	return string(r)
}

// Invoke отправляет диалог. Без кандидатов в ответе Content остаётся nil.
func (g *Generate) Invoke(ctx context.Context, in llm.Input) (*llm.Response, error) {
	turns := in.Turns()
	req := generateRequest{Contents: make([]content, 0, len(turns))}
	if sp := in.SystemPrompt(); sp != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: sp}}}
	}
	for _, t := range turns {
		req.Contents = append(req.Contents, content{Role: role(t.Role), Parts: []part{{Text: t.Content}}})
	}
	if g.params.Temperature != nil || g.params.MaxTokens > 0 {
		req.GenerationConfig = &generationConfig{Temperature: g.params.Temperature, MaxOutputTokens: g.params.MaxTokens}
	}

	var out generateResponse
	endpoint := g.baseURL + "/models/" + url.PathEscape(g.model) + ":generateContent"
	headers := map[string]string{"x-goog-api-key": g.apiKey}
	if err := g.client.PostJSON(ctx, endpoint, headers, req, &out); err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}

	resp := &llm.Response{
		Model: out.ModelVersion,
		Usage: llm.Usage{InputTokens: out.UsageMetadata.PromptTokenCount, OutputTokens: out.UsageMetadata.CandidatesTokenCount},
	}
	if resp.Model == "" {
		resp.Model = g.model
	}
	if len(out.Candidates) > 0 {
		c := out.Candidates[0]
		resp.StopReason = c.FinishReason
		parts := make([]llm.ContentPart, 0, len(c.Content.Parts))
		for _, p := range c.Content.Parts {
			parts = append(parts, llm.ContentPart{Type: "text", Text: p.Text})
		}
		resp.Content = parts
	}
	return resp, nil
}
