package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"llmexec/internal/journal"
)

func newJournalCmd(rt *runtime) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List recent requests from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit < 1 || limit > 1000 {
				return &ExitError{Code: ExitUsage, Err: fmt.Errorf("--limit must be between 1 and 1000, got %d", limit)}
			}
			a, _, cleanup, err := rt.open(cmd, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			entries, err := a.Service().Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				rt.printer().Info("journal is empty (is LLMEXEC_JOURNAL_DRIVER set?)")
				return nil
			}
			printEntries(rt, cmd, entries)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	return cmd
}

func printEntries(rt *runtime, cmd *cobra.Command, entries []journal.Entry) {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSTATUS\tATTEMPTS\tDURATION\tMODEL\tERROR")
	for _, e := range entries {
		status := string(e.Status)
		if !rt.noColor {
			status = statusColor(status).Sprint(status)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
			e.CreatedAt.Local().Format(time.DateTime),
			status,
			e.Attempts,
			e.Duration.Round(time.Millisecond),
			e.Provider+"/"+e.Model,
			e.Error,
		)
	}
	_ = tw.Flush()
}
