package cli

import (
	"mentor-matching/internal/matching"

	"github.com/spf13/cobra"
)

func newWorkloadCommand(opts *options) *cobra.Command {
	var includeInactive bool
	cmd := &cobra.Command{
		Use:   "workload",
		Short: "Report current load, capacity and activity hours per mentor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cf, err := loadCohort(opts.input)
			if err != nil {
				return err
			}

			tracker := matching.NewWorkloadTracker(cf.Mentors, cf.Ledger, cf.Activities)
			rows := []matching.MentorWorkload{}
			for _, row := range tracker.Report() {
				if row.Active || includeInactive {
					rows = append(rows, row)
				}
			}
			return opts.print(cmd, rows)
		},
	}
	cmd.Flags().BoolVar(&includeInactive, "include-inactive", false, "include inactive mentors")
	return cmd
}
