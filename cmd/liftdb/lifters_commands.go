package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"liftdb/internal/names"
	"liftdb/internal/store"
)

func newLiftersCommand(ctx *commandContext) *cobra.Command {
	liftersCmd := &cobra.Command{
		Use:   "lifters",
		Short: "Inspect the lifter roster",
	}
	liftersCmd.AddCommand(newLiftersListCommand(ctx))
	liftersCmd.AddCommand(newLiftersShowCommand(ctx))
	return liftersCmd
}

func newLiftersListCommand(ctx *commandContext) *cobra.Command {
	var nameFilter string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List lifters, optionally filtered by name",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			var lifters []store.Lifter
			if strings.TrimSpace(nameFilter) != "" {
				lifters, err = st.GetByName(cmd.Context(), names.Normalize(nameFilter))
			} else {
				lifters, err = st.ListLifters(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(lifters) == 0 {
				fmt.Fprintln(out, "No lifters found")
				return nil
			}

			rows := make([][]string, 0, len(lifters))
			for _, lifter := range lifters {
				rows = append(rows, []string{
					strconv.FormatInt(lifter.ID, 10),
					lifter.NormalizedName,
					lifter.StableID,
					lifter.Gender,
					formatBirthYear(lifter.BirthYear),
					lifter.CountryCode,
				})
			}
			fmt.Fprintln(out, renderTable(out,
				[]string{"ID", "Name", "Stable ID", "Gender", "Born", "Country"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&nameFilter, "name", "", "Exact name to look up (normalized before matching)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum lifters to list (0 for all)")
	return cmd
}

func newLiftersShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <lifter-id>",
		Short: "Show one lifter and their stored results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid lifter id %q", args[0])
			}

			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			lifter, err := st.GetLifterByID(cmd.Context(), id)
			if err != nil {
				return err
			}
			results, err := st.ResultsForLifter(cmd.Context(), id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Lifter %d: %s\n", lifter.ID, lifter.NormalizedName)
			if lifter.StableID != "" {
				fmt.Fprintf(out, "Stable id: %s\n", lifter.StableID)
			}
			if lifter.MembershipNumber != "" {
				fmt.Fprintf(out, "Membership: %s\n", lifter.MembershipNumber)
			}
			if lifter.Gender != "" {
				fmt.Fprintf(out, "Gender: %s\n", lifter.Gender)
			}
			if lifter.BirthYear > 0 {
				fmt.Fprintf(out, "Born: %d\n", lifter.BirthYear)
			}
			if lifter.CountryName != "" {
				fmt.Fprintf(out, "Country: %s\n", lifter.CountryName)
			}

			if len(results) == 0 {
				fmt.Fprintln(out, "No stored results")
				return nil
			}
			rows := make([][]string, 0, len(results))
			for _, result := range results {
				rows = append(rows, []string{
					result.Date.Format("2006-01-02"),
					result.MeetName,
					result.AgeCategory,
					result.WeightClass,
					formatKg(result.BodyweightKg),
					formatKg(result.TotalKg),
					result.OutcomeCode,
				})
			}
			fmt.Fprintln(out, renderTable(out,
				[]string{"Date", "Meet", "Category", "Class", "BW", "Total", "Outcome"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func formatBirthYear(year int) string {
	if year <= 0 {
		return ""
	}
	return strconv.Itoa(year)
}

func formatKg(value float64) string {
	if value <= 0 {
		return ""
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
