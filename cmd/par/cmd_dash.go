package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

// newDashCmd creates the "par dash" subcommand.
func newDashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dash",
		Short: "Launch the run-history dashboard",
		Long:  "Opens the par dashboard TUI showing recent runs and their results.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isStdinTTY() {
				return fmt.Errorf("par dash requires an interactive terminal (stdin is not a TTY)")
			}

			dashCmd := exec.CommandContext(cmd.Context(), "par-dash")
			dashCmd.Stdin = os.Stdin
			dashCmd.Stdout = os.Stdout
			dashCmd.Stderr = os.Stderr

			if err := dashCmd.Run(); err != nil {
				return fmt.Errorf("run par-dash: %w", err)
			}

			return nil
		},
	}
}
