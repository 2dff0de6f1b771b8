package openai_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"llmexec/internal/adapter/external/openai"
	"llmexec/internal/llm"
	"llmexec/internal/platform/httpclient"
	"llmexec/internal/shared"
)

type rtFunc func(*http.Request) (*http.Response, error)

func (f rtFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{StatusCode: status, Header: http.Header{}, Body: io.NopCloser(strings.NewReader(body))}
}

func newClient(rt rtFunc) *httpclient.Client {
	return httpclient.New(
		httpclient.WithTransport(rt),
		httpclient.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func TestInvoke_OK(t *testing.T) {
	temp := 0.2
	rt := rtFunc(func(r *http.Request) (*http.Response, error) {
		if r.Method != http.MethodPost {
			t.Fatalf("method=%s", r.Method)
		}
		if !strings.HasSuffix(r.URL.Path, "/v1/chat/completions") {
			t.Fatalf("path=%s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Fatalf("authorization=%q", got)
		}
		var body struct {
			Model       string   `json:"model"`
			Temperature *float64 `json:"temperature"`
			MaxTokens   int      `json:"max_tokens"`
			Messages    []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Model != "gpt-4o-mini" || body.MaxTokens != 256 || body.Temperature == nil || *body.Temperature != 0.2 {
			t.Fatalf("unexpected body: %+v", body)
		}
		if len(body.Messages) != 2 || body.Messages[0].Role != "system" || body.Messages[1].Content != "Good morning" {
			t.Fatalf("messages=%+v", body.Messages)
		}
		return jsonResponse(200, `{"model":"gpt-4o-mini-2024","choices":[{"message":{"role":"assistant","content":"Bonjour"},"finish_reason":"stop"}],"usage":{"prompt_tokens":12,"completion_tokens":3}}`), nil
	})

	chat := openai.NewChat(newClient(rt), "https://api.openai.com/v1/", "gpt-4o-mini", "secret", llm.Params{Temperature: &temp, MaxTokens: 256})
	resp, err := chat.Invoke(context.Background(), llm.Input{
		System:   "Translate to French.",
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "Good morning"}},
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if resp.Content != "Bonjour" {
		t.Fatalf("content=%v", resp.Content)
	}
	if resp.StopReason != "stop" || resp.Model != "gpt-4o-mini-2024" {
		t.Fatalf("meta=%+v", resp)
	}
	if resp.Usage.InputTokens != 12 || resp.Usage.OutputTokens != 3 {
		t.Fatalf("usage=%+v", resp.Usage)
	}
}

func TestInvoke_NullContent(t *testing.T) {
	rt := rtFunc(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"choices":[{"message":{"content":null},"finish_reason":"content_filter"}]}`), nil
	})
	resp, err := openai.NewChat(newClient(rt), "", "m", "k", llm.Params{}).Invoke(context.Background(), llm.Text("hi"))
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if _, err := llm.Normalize(resp); err == nil {
		t.Fatalf("expected normalization error for null content")
	}
}

func TestInvoke_NoChoices(t *testing.T) {
	rt := rtFunc(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"choices":[]}`), nil
	})
	resp, err := openai.NewChat(newClient(rt), "", "m", "k", llm.Params{}).Invoke(context.Background(), llm.Text("hi"))
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if resp.Content != nil {
		t.Fatalf("content=%v", resp.Content)
	}
}

func TestInvoke_ErrorStatus(t *testing.T) {
	rt := rtFunc(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(401, `{"error":{"message":"Incorrect API key provided"}}`), nil
	})
	_, err := openai.NewChat(newClient(rt), "", "m", "bad", llm.Params{}).Invoke(context.Background(), llm.Text("hi"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !shared.IsUnauthorized(err) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "openai: ") {
		t.Fatalf("err=%v", err)
	}
}

func TestInvoke_DefaultBaseURL(t *testing.T) {
	rt := rtFunc(func(r *http.Request) (*http.Response, error) {
		if r.URL.String() != openai.DefaultBaseURL+"/chat/completions" {
			t.Fatalf("url=%s", r.URL)
		}
		return jsonResponse(200, `{"choices":[{"message":{"content":"ok"}}]}`), nil
	})
	if _, err := openai.NewChat(newClient(rt), "", "m", "k", llm.Params{}).Invoke(context.Background(), llm.Text("hi")); err != nil {
		t.Fatalf("err=%v", err)
	}
}
