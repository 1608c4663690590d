package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"liftdb/internal/ingest"
	"liftdb/internal/resolver"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var (
		name        string
		meetID      string
		meetName    string
		dateFlag    string
		gender      string
		ageCategory string
		weightClass string
		bodyweight  float64
		total       float64
		stableID    string
		membership  string
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Preview how one result row would resolve, without writing",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			res, err := ctx.buildResolver(ingest.NewReadOnlyRepository(st))
			if err != nil {
				return err
			}

			var date time.Time
			if dateFlag != "" {
				date, err = time.Parse("2006-01-02", dateFlag)
				if err != nil {
					return fmt.Errorf("parse --date: %w", err)
				}
			}

			resolution, err := res.Resolve(cmd.Context(), resolver.Request{
				Name:             name,
				MeetID:           meetID,
				MeetName:         meetName,
				Date:             date,
				Gender:           gender,
				AgeCategory:      ageCategory,
				WeightClass:      weightClass,
				BodyweightKg:     bodyweight,
				TotalKg:          total,
				StableID:         stableID,
				MembershipNumber: membership,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if resolution.Created {
				fmt.Fprintf(out, "Would create a new lifter %q\n", resolution.Lifter.NormalizedName)
			} else {
				fmt.Fprintf(out, "Resolved to lifter %d (%s)\n", resolution.Lifter.ID, resolution.Lifter.NormalizedName)
			}
			if resolution.Lifter.StableID != "" {
				fmt.Fprintf(out, "Stable id: %s\n", resolution.Lifter.StableID)
			}
			fmt.Fprintf(out, "Outcome: %s\n", resolution.Outcome)
			fmt.Fprintf(out, "Reason: %s\n", resolution.Reason)
			if resolution.Conflict {
				fmt.Fprintln(out, "Integrity conflict observed; see the log for details")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Athlete name as it appears in the feed (required)")
	cmd.Flags().StringVar(&meetID, "meet-id", "", "Meet identifier")
	cmd.Flags().StringVar(&meetName, "meet-name", "", "Meet name")
	cmd.Flags().StringVar(&dateFlag, "date", "", "Meet date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&gender, "gender", "", "Athlete gender")
	cmd.Flags().StringVar(&ageCategory, "age-category", "", "Age category, e.g. Senior")
	cmd.Flags().StringVar(&weightClass, "weight-class", "", "Weight class, e.g. 64kg")
	cmd.Flags().Float64Var(&bodyweight, "bodyweight", 0, "Bodyweight in kg")
	cmd.Flags().Float64Var(&total, "total", 0, "Competition total in kg")
	cmd.Flags().StringVar(&stableID, "stable-id", "", "Externally issued stable id, when known")
	cmd.Flags().StringVar(&membership, "membership", "", "Federation membership number, when known")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
