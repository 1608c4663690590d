package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newDBCommand(ctx *commandContext) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database diagnostics",
	}
	dbCmd.AddCommand(newDBHealthCommand(ctx))
	dbCmd.AddCommand(newDBStatsCommand(ctx))
	return dbCmd
}

func newDBHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check database file health",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			health, err := st.CheckHealth(cmd.Context())
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Database: %s\n", health.DBPath)
			fmt.Fprintf(out, "Exists: %s\n", yesNo(health.DatabaseExists))
			fmt.Fprintf(out, "Readable: %s\n", yesNo(health.DatabaseReadable))
			fmt.Fprintf(out, "Schema version: %d\n", health.SchemaVersion)
			if len(health.TablesPresent) > 0 {
				fmt.Fprintf(out, "Tables present: %s\n", strings.Join(health.TablesPresent, ", "))
			}
			if len(health.MissingTables) > 0 {
				fmt.Fprintf(out, "Tables missing: %s\n", strings.Join(health.MissingTables, ", "))
			}
			fmt.Fprintf(out, "Integrity check: %s\n", yesNo(health.IntegrityCheck))
			if health.Error != "" {
				fmt.Fprintf(out, "Error: %s\n", health.Error)
			}
			return err
		},
	}
}

func newDBStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show roster and queue counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			stats, err := st.Stats(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Lifters: %d\n", stats.Lifters)
			fmt.Fprintf(out, "Lifters with stable id: %d\n", stats.LiftersWithID)
			fmt.Fprintf(out, "Results: %d\n", stats.Results)
			fmt.Fprintf(out, "Reprocess pending: %d\n", stats.ReprocessPending)
			return nil
		},
	}
}
