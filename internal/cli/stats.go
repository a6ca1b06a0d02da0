package cli

import (
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/soyeahso/sidekick/internal/store"
)

func newStatsCmd() *cobra.Command {
	var (
		days  int
		prune bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show transform and agent usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if days <= 0 {
				return fmt.Errorf("--days must be positive")
			}

			db := openStats()
			if db == nil {
				return fmt.Errorf("usage database unavailable")
			}
			defer db.Close()

			if prune {
				n, err := db.Prune(cmd.Context(), time.Now().Add(-store.DefaultRetention))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %s old rows\n\n", humanize.Comma(n))
			}

			since := time.Now().AddDate(0, 0, -days)
			sum, err := db.Summary(cmd.Context(), since)
			if err != nil {
				return err
			}
			printSummary(cmd, sum)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "number of days to summarize")
	cmd.Flags().BoolVar(&prune, "prune", false, "delete stats older than the retention window first")

	return cmd
}

func printSummary(cmd *cobra.Command, sum *store.Summary) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Since %s (%s)\n", sum.Since.Format(time.DateOnly), humanize.Time(sum.Since))
	fmt.Fprintf(out, "Transforms: %s (%s failed)\n\n",
		humanize.Comma(int64(sum.Total)), humanize.Comma(int64(sum.Failures)))

	if len(sum.Operations) > 0 {
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "OPERATION\tCOUNT\tFAILED\tIN\tOUT\tAVG")
		for _, op := range sum.Operations {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				op.Operation,
				humanize.Comma(int64(op.Count)),
				humanize.Comma(int64(op.Failures)),
				humanize.SIWithDigits(float64(op.InputChars), 1, "c"),
				humanize.SIWithDigits(float64(op.OutputChars), 1, "c"),
				op.AvgDuration.Round(time.Millisecond),
			)
		}
		tw.Flush()
		fmt.Fprintln(out)
	}

	if len(sum.Plans) > 0 {
		statuses := make([]string, 0, len(sum.Plans))
		for s := range sum.Plans {
			statuses = append(statuses, s)
		}
		sort.Strings(statuses)

		fmt.Fprintln(out, "Agent plans:")
		for _, s := range statuses {
			fmt.Fprintf(out, "  %-10s %s\n", s, humanize.Comma(int64(sum.Plans[s])))
		}
	}
}
