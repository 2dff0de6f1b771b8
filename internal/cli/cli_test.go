package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llmexec/internal/app"
	"llmexec/internal/llm"
	"llmexec/internal/shared"
)

func TestLoadInput_Args(t *testing.T) {
	in, err := LoadInput([]string{"hello", "world"}, "", "be brief", strings.NewReader("ignored"))
	require.NoError(t, err)
	assert.Equal(t, "be brief", in.System)
	require.Len(t, in.Messages, 1)
	assert.Equal(t, llm.RoleUser, in.Messages[0].Role)
	assert.Equal(t, "hello world", in.Messages[0].Content)
}

func TestLoadInput_Stdin(t *testing.T) {
	in, err := LoadInput(nil, "", "", strings.NewReader("  summarize this\n"))
	require.NoError(t, err)
	assert.Equal(t, "summarize this", in.Messages[0].Content)

	_, err = LoadInput(nil, "", "", strings.NewReader(" \n"))
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestLoadInput_File(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "conv.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`system: Translate to German.
messages:
  - role: user
    content: Good morning
  - role: assistant
    content: Guten Morgen
  - role: user
    content: Good night
`), 0o600))

	in, err := LoadInput(nil, yamlPath, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "Translate to German.", in.System)
	require.Len(t, in.Messages, 3)
	assert.Equal(t, llm.RoleAssistant, in.Messages[1].Role)

	jsonPath := filepath.Join(dir, "conv.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"messages":[{"role":"user","content":"hi"}]}`), 0o600))
	in, err = LoadInput(nil, jsonPath, "override", nil)
	require.NoError(t, err)
	assert.Equal(t, "override", in.System)
	assert.Equal(t, "hi", in.Messages[0].Content)

	in, err = LoadInput(nil, "-", "", strings.NewReader(`messages: [{role: user, content: piped}]`))
	require.NoError(t, err)
	assert.Equal(t, "piped", in.Messages[0].Content)
}

func TestLoadInput_FileErrors(t *testing.T) {
	_, err := LoadInput([]string{"x"}, "conv.yaml", "", nil)
	assert.Error(t, err)

	_, err = LoadInput(nil, filepath.Join(t.TempDir(), "missing.yaml"), "", nil)
	assert.Error(t, err)

	_, err = LoadInput(nil, "-", "", strings.NewReader(`system: only`))
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitOK, ExitCode(nil))
	assert.Equal(t, ExitFailure, ExitCode(errors.New("boom")))
	assert.Equal(t, ExitConfig, ExitCode(&ExitError{Code: ExitConfig, Err: errors.New("bad")}))
	assert.Equal(t, ExitCanceled, ExitCode(context.Canceled))
}

type harness struct {
	env    map[string]string
	client llm.Client
	stdin  string
	stdout bytes.Buffer
	stderr bytes.Buffer
}

func newHarness(client llm.Client) *harness {
	return &harness{
		client: client,
		env: map[string]string{
			"LLMEXEC_MODEL":          "test-model",
			"LLMEXEC_API_KEY":        "sk-test",
			"LLMEXEC_RETRY_INTERVAL": "0s",
		},
	}
}

func (h *harness) run(args ...string) int {
	h.stdout.Reset()
	h.stderr.Reset()
	return Run(context.Background(), append(args, "--no-color"),
		WithIO(strings.NewReader(h.stdin), &h.stdout, &h.stderr),
		WithEnvironment(h.env),
		WithAppOptions(app.WithClient(h.client)),
	)
}

func TestRun_RequestRetriesThenPrints(t *testing.T) {
	var calls atomic.Int32
	h := newHarness(llm.ClientFunc(func(ctx context.Context, in llm.Input) (*llm.Response, error) {
		if calls.Add(1) == 1 {
			return nil, shared.MarkKind(errors.New("overloaded"), shared.KindUnavailable)
		}
		return &llm.Response{Content: "Bonjour"}, nil
	}))

	code := h.run("request", "Translate", "good", "morning")

	assert.Equal(t, ExitOK, code, h.stderr.String())
	assert.Equal(t, "Bonjour\n", h.stdout.String())
	assert.Contains(t, h.stderr.String(), "[OK] 2 attempt(s)")
	assert.EqualValues(t, 2, calls.Load())
}

func TestRun_RequestJSON(t *testing.T) {
	h := newHarness(llm.ClientFunc(func(ctx context.Context, in llm.Input) (*llm.Response, error) {
		return &llm.Response{Content: []llm.ContentPart{{Type: "text", Text: "a"}, {Type: "text", Text: "b"}}}, nil
	}))
	h.stdin = "from stdin"

	code := h.run("request", "--json")
	require.Equal(t, ExitOK, code, h.stderr.String())

	var out struct {
		ID       string `json:"id"`
		Result   string `json:"result"`
		Attempts int    `json:"attempts"`
	}
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &out))
	assert.Equal(t, "ab", out.Result)
	assert.Equal(t, 1, out.Attempts)
	assert.NotEmpty(t, out.ID)
}

func TestRun_RequestFatalFailure(t *testing.T) {
	var calls atomic.Int32
	h := newHarness(llm.ClientFunc(func(ctx context.Context, in llm.Input) (*llm.Response, error) {
		calls.Add(1)
		return nil, shared.MarkKind(errors.New("bad key"), shared.KindUnauthorized)
	}))

	code := h.run("request", "hi")

	assert.Equal(t, ExitFailure, code)
	assert.Empty(t, h.stdout.String())
	assert.Contains(t, h.stderr.String(), "[ERROR] Unauthorized after 1 attempt(s)")
	assert.Equal(t, 1, strings.Count(h.stderr.String(), "[ERROR]"))
	assert.EqualValues(t, 1, calls.Load())
}

func TestRun_RequestRetryOverride(t *testing.T) {
	var calls atomic.Int32
	h := newHarness(llm.ClientFunc(func(ctx context.Context, in llm.Input) (*llm.Response, error) {
		calls.Add(1)
		return nil, shared.MarkKind(errors.New("slow down"), shared.KindRateLimited)
	}))

	code := h.run("request", "--retry-times", "1", "hi")

	assert.Equal(t, ExitFailure, code)
	assert.EqualValues(t, 2, calls.Load())
}

func TestRun_UsageAndConfigErrors(t *testing.T) {
	h := newHarness(llm.ClientFunc(func(ctx context.Context, in llm.Input) (*llm.Response, error) {
		t.Fatal("client must not be called")
		return nil, nil
	}))

	assert.Equal(t, ExitUsage, h.run("request", "--no-such-flag", "hi"))
	assert.Equal(t, ExitUsage, h.run("request"))
	assert.Equal(t, ExitUsage, h.run("journal", "--limit", "0"))

	delete(h.env, "LLMEXEC_MODEL")
	assert.Equal(t, ExitConfig, h.run("request", "hi"))
	assert.Contains(t, h.stderr.String(), "[ERROR]")
}

func TestRun_JournalListsRequests(t *testing.T) {
	h := newHarness(llm.ClientFunc(func(ctx context.Context, in llm.Input) (*llm.Response, error) {
		if in.Messages[0].Content == "fail" {
			return nil, shared.MarkKind(errors.New("denied"), shared.KindUnauthorized)
		}
		return &llm.Response{Content: "ok"}, nil
	}))
	h.env["LLMEXEC_JOURNAL_DRIVER"] = "sqlite"
	h.env["LLMEXEC_JOURNAL_DSN"] = filepath.Join(t.TempDir(), "journal.db")

	require.Equal(t, ExitOK, h.run("request", "hi"), h.stderr.String())
	require.Equal(t, ExitFailure, h.run("request", "fail"))

	code := h.run("journal", "-n", "5")
	require.Equal(t, ExitOK, code, h.stderr.String())

	lines := strings.Split(strings.TrimSpace(h.stdout.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "STATUS")
	assert.Contains(t, h.stdout.String(), "openai/test-model")
	assert.Contains(t, h.stdout.String(), "failed")
	assert.Contains(t, h.stdout.String(), "ok")
}

func TestRun_JournalDisabled(t *testing.T) {
	h := newHarness(nil)
	code := h.run("journal")
	assert.Equal(t, ExitOK, code)
	assert.Contains(t, h.stderr.String(), "journal is empty")
}
