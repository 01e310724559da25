// Package cli implements matchctl, an offline front end to the matching core.
// It reads a cohort snapshot from YAML or JSON and prints results as JSON.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"mentor-matching/internal/matching"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const version = "matchctl v1.0.0"

type options struct {
	input    string
	prestige []string
	culture  []string
	compact  bool
}

// cohortFile is the on-disk snapshot format.
type cohortFile struct {
	Fellows    []matching.FellowProfile  `yaml:"fellows"`
	Mentors    []matching.MentorProfile  `yaml:"mentors"`
	Ledger     matching.CapacityLedger   `yaml:"ledger"`
	Activities []matching.MentorActivity `yaml:"activities"`
	Scorer     matching.ScorerConfig     `yaml:"scorer"`
}

// Execute runs matchctl against os.Args.
func Execute() error {
	return NewRootCommand(os.Stdout, os.Stderr).Execute()
}

// NewRootCommand builds the command tree writing results to out and
// diagnostics to errOut.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "matchctl",
		Short: "Rank and assign mentors for a fellow cohort offline",
		Long: `matchctl runs the mentor matching core against a snapshot file.

The snapshot lists fellows, mentors and optionally a capacity ledger and
mentoring activities. Results are printed as JSON.

Example:
  matchctl rank --input cohort.yaml --k 3
  matchctl assign --input cohort.yaml
  matchctl workload --input cohort.yaml`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVarP(&opts.input, "input", "i", "", "cohort snapshot file (YAML or JSON)")
	root.PersistentFlags().StringSliceVar(&opts.prestige, "prestige", nil, "prestige affiliation substrings (overrides the file)")
	root.PersistentFlags().StringSliceVar(&opts.culture, "culture", nil, "culture marker keywords (overrides the file)")
	root.PersistentFlags().BoolVar(&opts.compact, "compact", false, "print single-line JSON")

	root.AddCommand(
		newRankCommand(opts),
		newAssignCommand(opts),
		newWorkloadCommand(opts),
		newTasksCommand(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), version)
			},
		},
	)
	return root
}

func loadCohort(path string) (*cohortFile, error) {
	if path == "" {
		return nil, fmt.Errorf("--input is required")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var cf cohortFile
	// JSON documents are valid YAML, so one decoder serves both.
	if err := yaml.Unmarshal(raw, &cf); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &cf, nil
}

func (o *options) scorerConfig(cf *cohortFile) matching.ScorerConfig {
	cfg := cf.Scorer
	if len(o.prestige) > 0 {
		cfg.PrestigeAffiliations = o.prestige
	}
	if len(o.culture) > 0 {
		cfg.CultureMarkers = o.culture
	}
	return cfg
}

func (o *options) print(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	if !o.compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
