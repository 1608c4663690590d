package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"liftdb/internal/ingest"
	"liftdb/internal/notifications"
)

func newReprocessCommand(ctx *commandContext) *cobra.Command {
	reprocessCmd := &cobra.Command{
		Use:   "reprocess",
		Short: "Inspect and retry rows that failed during a batch",
	}
	reprocessCmd.AddCommand(newReprocessListCommand(ctx))
	reprocessCmd.AddCommand(newReprocessRetryCommand(ctx))
	return reprocessCmd
}

func newReprocessListCommand(ctx *commandContext) *cobra.Command {
	var includeRetried bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued rows awaiting a retry",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			entries, err := st.ListReprocess(cmd.Context(), includeRetried)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "Reprocess queue is empty")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				retried := ""
				if entry.RetriedAt != nil {
					retried = entry.RetriedAt.Format("2006-01-02 15:04")
				}
				rows = append(rows, []string{
					entry.ID,
					entry.BatchID,
					entry.CreatedAt.Format("2006-01-02 15:04"),
					retried,
					entry.ErrorMessage,
				})
			}
			fmt.Fprintln(out, renderTable(out,
				[]string{"ID", "Batch", "Queued", "Retried", "Error"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&includeRetried, "all", false, "Include rows that were already retried")
	return cmd
}

func newReprocessRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <row-id>",
		Short: "Retry one queued row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			if id == "" {
				return fmt.Errorf("empty row id")
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			res, err := ctx.buildResolver(st)
			if err != nil {
				return err
			}
			runner := ingest.NewRunner(st, res,
				ingest.WithRunnerLogger(logger),
				ingest.WithNotifier(notifications.NewService(cfg)),
			)

			outcome, err := runner.Retry(cmd.Context(), id)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Row %s for %q stored against lifter %d (%s)\n",
				id, outcome.Row.Name, outcome.LifterID, outcome.Outcome)
			return nil
		},
	}
}
