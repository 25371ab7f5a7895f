package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/me/makespan/internal/bounds"
	"github.com/me/makespan/internal/problem"
)

func newBoundsCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "bounds",
		Short: "Print the trivial makespan bounds of an instance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := problem.ReadFile(path)
			if err != nil {
				return err
			}
			upper, lower := bounds.Trivial(&in.Input)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "machines: %d\n", in.MachineCount)
			fmt.Fprintf(out, "jobs:     %d\n", in.JobCount())
			fmt.Fprintf(out, "upper:    %d\n", upper)
			fmt.Fprintf(out, "lower:    %d\n", lower)
			if in.KnownOptimum > 0 {
				fmt.Fprintf(out, "optimum:  %d\n", in.KnownOptimum)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "Instance file")
	cmd.MarkFlagRequired("path")

	return cmd
}
