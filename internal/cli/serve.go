package cli

import (
	"github.com/spf13/cobra"
)

func newServeCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the Telegram bot",
		Long: `Run the long-lived surfaces until interrupted:

  - the HTTP API when LLMEXEC_HTTP_ADDR is set
  - the Telegram bot when LLMEXEC_TELEGRAM_TOKEN is set
  - journal pruning when LLMEXEC_JOURNAL_DRIVER is not none`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, _, cleanup, err := rt.open(cmd, nil)
			if err != nil {
				return err
			}
			defer cleanup()
			return a.Serve(cmd.Context())
		},
	}
}
