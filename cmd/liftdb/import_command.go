package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"liftdb/internal/ingest"
	"liftdb/internal/notifications"
	"liftdb/internal/resolver"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var meetID string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import <results.csv>",
		Short: "Resolve and store every row of a result feed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			// One import session per host; the external sources tolerate
			// exactly one crawler.
			lock := flock.New(cfg.LockPath())
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire import lock: %w", err)
			}
			if !locked {
				return errors.New("another import session is already running")
			}
			defer lock.Unlock()

			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open feed: %w", err)
			}
			defer file.Close()

			rows, err := ingest.ReadFeed(file)
			if err != nil {
				return err
			}
			if meetID != "" {
				for i := range rows {
					rows[i].MeetID = meetID
				}
			}

			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			var repo resolver.Repository = st
			if dryRun {
				repo = ingest.NewReadOnlyRepository(st)
			}
			res, err := ctx.buildResolver(repo)
			if err != nil {
				return err
			}

			runner := ingest.NewRunner(st, res,
				ingest.WithRunnerLogger(logger),
				ingest.WithNotifier(notifications.NewService(cfg)),
				ingest.WithDryRun(dryRun),
			)
			report, err := runner.Run(cmd.Context(), rows)
			if report != nil {
				printReport(cmd, report)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&meetID, "meet-id", "", "Override the meet id for every row in the feed")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview resolution without writing to the database")
	return cmd
}

func printReport(cmd *cobra.Command, report *ingest.Report) {
	out := cmd.OutOrStdout()

	rows := make([][]string, 0, len(report.Rows))
	for _, row := range report.Rows {
		detail := row.Reason
		if row.Error != "" {
			detail = row.Error
		}
		rows = append(rows, []string{
			strconv.Itoa(row.Row.Line),
			row.Row.Name,
			row.Row.Date,
			string(row.Status),
			formatLifterID(row.LifterID, report.DryRun),
			string(row.Outcome),
			detail,
		})
	}
	fmt.Fprintln(out, renderTable(out,
		[]string{"Line", "Name", "Date", "Status", "Lifter", "Outcome", "Detail"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	))

	label := "Batch"
	if report.DryRun {
		label = "Dry run"
	}
	fmt.Fprintf(out, "%s %s: %d resolved, %d created, %d queued, %d conflicts in %s\n",
		label, report.BatchID, report.Resolved, report.Created, report.Queued, report.Conflicts,
		report.Duration().Round(time.Millisecond))
}

func formatLifterID(id int64, dryRun bool) string {
	if id == 0 {
		if dryRun {
			return "(new)"
		}
		return ""
	}
	return strconv.FormatInt(id, 10)
}
