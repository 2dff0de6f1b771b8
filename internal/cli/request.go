package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"llmexec/internal/config"
	"llmexec/internal/llm"
	"llmexec/internal/shared"
)

// ErrEmptyPrompt is returned when neither arguments, a file nor stdin carry a prompt.
var ErrEmptyPrompt = errors.New("empty prompt")

type requestFlags struct {
	system        string
	file          string
	json          bool
	provider      string
	model         string
	retryTimes    int
	retryInterval time.Duration
	timeout       time.Duration
}

func newRequestCmd(rt *runtime) *cobra.Command {
	var f requestFlags
	cmd := &cobra.Command{
		Use:   "request [prompt...]",
		Short: "Send one prompt and print the response",
		Long: `Send one prompt and print the response text to stdout.

The prompt is taken from the arguments, from --file (YAML or JSON with
"system" and "messages") or from stdin when no arguments are given.`,
		Example: `  llmexec request "Translate to French: good morning"
  echo "Summarize this" | llmexec request --system "Be brief"
  llmexec request -f conversation.yaml --retry-times 5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd, rt, &f, args)
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.system, "system", "s", "", "System prompt")
	fl.StringVarP(&f.file, "file", "f", "", "Read the conversation from a YAML or JSON file (- for stdin)")
	fl.BoolVar(&f.json, "json", false, "Print the result as JSON")
	fl.StringVar(&f.provider, "provider", "", "Override LLMEXEC_PROVIDER")
	fl.StringVar(&f.model, "model", "", "Override LLMEXEC_MODEL")
	fl.IntVar(&f.retryTimes, "retry-times", 0, "Override LLMEXEC_RETRY_TIMES")
	fl.DurationVar(&f.retryInterval, "retry-interval", 0, "Override LLMEXEC_RETRY_INTERVAL")
	fl.DurationVar(&f.timeout, "timeout", 0, "Override LLMEXEC_TIMEOUT")
	return cmd
}

func runRequest(cmd *cobra.Command, rt *runtime, f *requestFlags, args []string) error {
	in, err := LoadInput(args, f.file, f.system, cmd.InOrStdin())
	if err != nil {
		return &ExitError{Code: ExitUsage, Err: err}
	}

	fl := cmd.Flags()
	a, _, cleanup, err := rt.open(cmd, func(c *config.Config) {
		if f.provider != "" {
			c.Provider.Name = strings.ToLower(f.provider)
		}
		if f.model != "" {
			c.Provider.Model = f.model
		}
		if fl.Changed("retry-times") {
			c.Executor.RetryTimes = f.retryTimes
		}
		if fl.Changed("retry-interval") {
			c.Executor.RetryInterval = f.retryInterval
		}
		if fl.Changed("timeout") {
			c.Executor.Timeout = f.timeout
		}
	})
	if err != nil {
		return err
	}
	defer cleanup()

	p := rt.printer()
	res, err := a.Service().Complete(cmd.Context(), in)
	if err != nil {
		if shared.IsCanceled(err) || cmd.Context().Err() != nil {
			p.Warn(fmt.Sprintf("canceled after %d attempt(s)", res.Attempts))
			return &ExitError{Code: ExitCanceled, Err: err, reported: true}
		}
		p.Error(fmt.Sprintf("%s after %d attempt(s): %v", shared.KindOf(err), res.Attempts, err))
		return &ExitError{Code: ExitFailure, Err: err, reported: true}
	}

	out := cmd.OutOrStdout()
	if f.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			ID         string `json:"id"`
			Result     string `json:"result"`
			Attempts   int    `json:"attempts"`
			DurationMS int64  `json:"duration_ms"`
		}{res.ID.String(), res.Text, res.Attempts, res.Duration.Milliseconds()})
	}
	fmt.Fprintln(out, res.Text)
	p.Success(fmt.Sprintf("%d attempt(s) in %s", res.Attempts, res.Duration.Round(time.Millisecond)))
	return nil
}

// LoadInput builds the prompt. A file ("-" reads stdin) is decoded as YAML,
// which also accepts JSON. Otherwise the arguments are joined into one user
// message, or stdin is read when there are none. A non-empty system
// overrides the one from the file.
func LoadInput(args []string, file, system string, stdin io.Reader) (llm.Input, error) {
	var in llm.Input
	switch {
	case file != "":
		if len(args) > 0 {
			return llm.Input{}, errors.New("--file and prompt arguments are mutually exclusive")
		}
		var (
			data []byte
			err  error
		)
		if file == "-" {
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(file)
		}
		if err != nil {
			return llm.Input{}, fmt.Errorf("read prompt file: %w", err)
		}
		if err := yaml.Unmarshal(data, &in); err != nil {
			return llm.Input{}, fmt.Errorf("decode prompt file: %w", err)
		}
		if len(in.Messages) == 0 {
			return llm.Input{}, ErrEmptyPrompt
		}
	case len(args) > 0:
		prompt := strings.Join(args, " ")
		if strings.TrimSpace(prompt) == "" {
			return llm.Input{}, ErrEmptyPrompt
		}
		in = llm.Text(prompt)
	default:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return llm.Input{}, fmt.Errorf("read stdin: %w", err)
		}
		prompt := strings.TrimSpace(string(data))
		if prompt == "" {
			return llm.Input{}, ErrEmptyPrompt
		}
		in = llm.Text(prompt)
	}
	if system != "" {
		in.System = system
	}
	return in, nil
}
