package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"mentor-matching/pkg/registry"

	"github.com/spf13/cobra"
)

func newTasksCommand(opts *options) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List the job types served by worker-manager",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.LoadRegistry(path)
			if err != nil {
				return err
			}
			if opts.compact {
				return opts.print(cmd, reg.Tasks)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TASK TYPE\tTIMEOUT\tRETRIES\tERROR CODES")
			for _, t := range reg.Tasks {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", t.TaskType, t.Timeout, t.Retries, strings.Join(t.ErrorCodes, ","))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&path, "registry", "configs/task-registry.json", "task registry file")
	return cmd
}
