package main

import (
	"fmt"

	"par/internal/appversion"

	"github.com/spf13/cobra"
)

// newRootCmd creates the root par command with all subcommands attached.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "par",
		Short:         "Parallel coding agent execution across git worktrees",
		Long:          "par runs a coding agent concurrently across multiple git worktrees.\nIt discovers and validates worktrees, executes one job per worktree under\na bounded worker pool, and aggregates the results into reports.",
		Version:       fmt.Sprintf("par %s", appversion.String()),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("{{.Version}}\n")

	cmd.AddCommand(
		newRunCmd(),
		newWorktreesCmd(),
		newPromptsCmd(),
		newResultsCmd(),
		newDoctorCmd(),
		newInitCmd(),
		newDashCmd(),
	)

	return cmd
}
