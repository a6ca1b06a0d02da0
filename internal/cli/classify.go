package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newClassifyCmd() *cobra.Command {
	var execute bool

	cmd := &cobra.Command{
		Use:   "classify <text...>",
		Short: "Classify free text into an agent plan",
		Long:  "Classify prints the plan proposed for the text. With --execute the plan is carried out under the configured permissions.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := newService()
			plan := svc.ClassifyIntent(strings.Join(args, " "))

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if !execute {
				return enc.Encode(plan)
			}

			db := openStats()
			if db != nil {
				defer db.Close()
			}
			svc.WithStats(db)

			res, err := svc.ExecutePlan(context.Background(), plan)
			if err != nil {
				return fmt.Errorf("executing %s: %w", plan.Action.Type, err)
			}
			return enc.Encode(res)
		},
	}

	cmd.Flags().BoolVar(&execute, "execute", false, "execute the plan after classifying")

	return cmd
}
