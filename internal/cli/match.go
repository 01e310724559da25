package cli

import (
	"fmt"

	"mentor-matching/internal/matching"

	"github.com/spf13/cobra"
)

func newRankCommand(opts *options) *cobra.Command {
	var k int
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Build a top-k mentor shortlist for every fellow",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatch(cmd, opts, matching.ModeGreedyTopK, k)
		},
	}
	cmd.Flags().IntVar(&k, "k", 3, "shortlist length per fellow")
	return cmd
}

func newAssignCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "assign",
		Short: "Assign one primary mentor per fellow maximizing total compatibility",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatch(cmd, opts, matching.ModeGlobalOptimal, 0)
		},
	}
}

func runMatch(cmd *cobra.Command, opts *options, mode matching.Mode, k int) error {
	cf, err := loadCohort(opts.input)
	if err != nil {
		return err
	}

	res, err := matching.NewMatcher(opts.scorerConfig(cf)).Run(matching.Request{
		Fellows:    cf.Fellows,
		Mentors:    cf.Mentors,
		Ledger:     cf.Ledger,
		Activities: cf.Activities,
		Mode:       mode,
		K:          k,
	})
	if err != nil {
		return err
	}

	digest, err := matching.Fingerprint(res)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "mode=%s fellows=%d eligible=%d matches=%d unmatched=%d digest=%s\n",
		res.Mode, res.Stats.Fellows, res.Stats.EligibleMentors, res.Stats.Matches, len(res.Unmatched), digest)
	if res.Stats.Fellows > res.Stats.EligibleMentors && mode == matching.ModeGlobalOptimal {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %d fellows but only %d eligible mentors\n",
			res.Stats.Fellows, res.Stats.EligibleMentors)
	}

	return opts.print(cmd, res)
}
