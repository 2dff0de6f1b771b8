// Package provider выбирает клиент модели по имени провайдера из конфигурации
package provider

import (
	"fmt"
	"strings"

	"llmexec/internal/adapter/external/anthropic"
	"llmexec/internal/adapter/external/gemini"
	"llmexec/internal/adapter/external/openai"
	"llmexec/internal/llm"
	"llmexec/internal/platform/httpclient"
)

// Имена поддерживаемых провайдеров
const (
	OpenAI    = "openai"
	Anthropic = "anthropic"
	Gemini    = "gemini"
)

// Settings параметры подключения к провайдеру
type Settings struct {
	Name    string
	BaseURL string
	Model   string
	APIKey  string
	Params  llm.Params
}

// New возвращает llm.Client для указанного провайдера
func New(hc *httpclient.Client, s Settings) (llm.Client, error) {
	if hc == nil {
		hc = httpclient.New()
	}
	if s.Model == "" {
		return nil, fmt.Errorf("provider %q: model is required", s.Name)
	}
	switch strings.ToLower(s.Name) {
	case OpenAI:
		return openai.NewChat(hc, s.BaseURL, s.Model, s.APIKey, s.Params), nil
	case Anthropic:
		return anthropic.NewMessages(hc, s.BaseURL, s.Model, s.APIKey, s.Params), nil
	case Gemini:
		return gemini.NewGenerate(hc, s.BaseURL, s.Model, s.APIKey, s.Params), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", s.Name)
	}
}
