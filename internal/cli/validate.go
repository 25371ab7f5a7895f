package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/me/makespan/internal/bounds"
	"github.com/me/makespan/internal/problem"
	"github.com/me/makespan/internal/solution"
)

func newValidateCmd() *cobra.Command {
	var path, solutionPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check written solutions against their instance",
		Long: `Parses every solution in a solution file and checks that each job is
scheduled exactly once on an existing machine, that jobs on a machine run
back to back from time 0, and that the reported makespan matches.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := problem.ReadFile(path)
			if err != nil {
				return err
			}
			f, err := os.Open(solutionPath)
			if err != nil {
				return fmt.Errorf("open solution: %w", err)
			}
			defer f.Close()

			parsed, err := solution.ParseText(f)
			if err != nil {
				return fmt.Errorf("parse %s: %w", solutionPath, err)
			}
			if len(parsed) == 0 {
				return fmt.Errorf("%s contains no solution", solutionPath)
			}

			jobs := problem.Unsort(in, in.Jobs)
			_, lower := bounds.Trivial(&in.Input)
			out := cmd.OutOrStdout()
			invalid := 0
			for i, p := range parsed {
				if p.Unsatisfiable {
					fmt.Fprintf(out, "%d %s: unsatisfiable\n", i, p.Algorithms)
					continue
				}
				if err := solution.Verify(p, in.MachineCount, jobs); err != nil {
					invalid++
					fmt.Fprintf(out, "%d %s: INVALID: %v\n", i, p.Algorithms, err)
					continue
				}
				note := ""
				if p.CMax == lower || (in.KnownOptimum > 0 && p.CMax == in.KnownOptimum) {
					note = " (optimal)"
				}
				fmt.Fprintf(out, "%d %s: ok c_max=%d%s\n", i, p.Algorithms, p.CMax, note)
			}
			if invalid > 0 {
				return fmt.Errorf("%d of %d solutions invalid", invalid, len(parsed))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "Instance file")
	cmd.Flags().StringVar(&solutionPath, "solution", "", "Solution file written by solve")
	cmd.MarkFlagRequired("path")
	cmd.MarkFlagRequired("solution")

	return cmd
}
