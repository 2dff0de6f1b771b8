// Package cli implements the llmexec command line: one-shot requests, the
// long-running server and journal inspection.
package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"

	"llmexec/internal/app"
	"llmexec/internal/config"
	"llmexec/internal/platform/logger"
	"llmexec/internal/shared"
)

// Exit codes returned by Run.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitUsage    = 2
	ExitConfig   = 3
	ExitCanceled = 130
)

// ExitError carries a process exit code.
type ExitError struct {
	Code int
	Err  error
	// reported is set when the command already printed the failure.
	reported bool
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode maps an error returned by a command to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	if shared.IsCanceled(err) || errors.Is(err, context.Canceled) {
		return ExitCanceled
	}
	return ExitFailure
}

// Option customizes the command tree. Tests use it to swap IO and the
// environment.
type Option func(*runtime)

type runtime struct {
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
	environ  map[string]string
	appOpts  []app.Option
	envFiles []string
	verbose  bool
	noColor  bool
}

// WithIO replaces the standard streams.
func WithIO(in io.Reader, out, errOut io.Writer) Option {
	return func(r *runtime) { r.stdin, r.stdout, r.stderr = in, out, errOut }
}

// WithEnvironment makes configuration come from vars instead of the process
// environment and .env files.
func WithEnvironment(vars map[string]string) Option {
	return func(r *runtime) { r.environ = vars }
}

// WithAppOptions passes options through to app.New.
func WithAppOptions(opts ...app.Option) Option {
	return func(r *runtime) { r.appOpts = append(r.appOpts, opts...) }
}

// Run executes the command line and returns the process exit code.
func Run(ctx context.Context, args []string, opts ...Option) int {
	rt := &runtime{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	for _, o := range opts {
		o(rt)
	}
	cmd := newRootCmd(rt)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err != nil {
		var ee *ExitError
		if !errors.As(err, &ee) || !ee.reported {
			rt.printer().Error(err.Error())
		}
	}
	return ExitCode(err)
}

// newRootCmd builds the command tree.
func newRootCmd(rt *runtime) *cobra.Command {
	root := &cobra.Command{
		Use:   "llmexec",
		Short: "Execute LLM requests with retry and response normalization",
		Long: `llmexec sends prompts to an LLM provider, retrying transient failures
(timeouts, rate limits, outages, malformed responses) and returning the
response as plain text.

Configuration is read from LLMEXEC_* environment variables and an optional
.env file.

Exit Codes:
  0   - Success
  1   - Request failed
  2   - CLI usage error
  3   - Invalid configuration
  130 - Interrupted`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(rt.stdin)
	root.SetOut(rt.stdout)
	root.SetErr(rt.stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: ExitUsage, Err: err}
	})

	root.PersistentFlags().BoolVarP(&rt.verbose, "verbose", "v", false, "Log at debug level")
	root.PersistentFlags().BoolVar(&rt.noColor, "no-color", false, "Disable colored output")
	root.PersistentFlags().StringSliceVar(&rt.envFiles, "env-file", nil, "Load variables from these files instead of .env")

	root.AddCommand(newRequestCmd(rt), newServeCmd(rt), newJournalCmd(rt))
	return root
}

func (rt *runtime) loadConfig() (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if rt.environ != nil {
		cfg, err = config.Parse(env.Options{Environment: rt.environ})
	} else {
		cfg, err = config.Load(rt.envFiles...)
	}
	if err != nil {
		return config.Config{}, &ExitError{Code: ExitConfig, Err: err}
	}
	if rt.verbose {
		cfg.Log.ConsoleLevel = "debug"
	}
	return cfg, nil
}

func (rt *runtime) logger(cfg config.Config) *slog.Logger {
	return logger.New(logger.Options{
		Env:          cfg.Env,
		ConsoleLevel: cfg.Log.ConsoleLevel,
		FileLevel:    cfg.Log.FileLevel,
		File:         cfg.Log.File,
		App:          "llmexec",
		Console:      rt.stderr,
	})
}

// open loads configuration and builds the application. The returned cleanup
// closes the journal and the log file.
func (rt *runtime) open(cmd *cobra.Command, mutate func(*config.Config)) (*app.App, *slog.Logger, func(), error) {
	cfg, err := rt.loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	if mutate != nil {
		mutate(&cfg)
	}
	log := rt.logger(cfg)
	a, err := app.New(cmd.Context(), cfg, log, rt.appOpts...)
	if err != nil {
		_ = logger.Close(log)
		return nil, nil, nil, &ExitError{Code: ExitConfig, Err: err}
	}
	cleanup := func() {
		if err := a.Close(); err != nil {
			log.Warn("close journal", slog.Any("err", err))
		}
		_ = logger.Close(log)
	}
	return a, log, cleanup, nil
}
