package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"par/pkg/worktree"

	"github.com/spf13/cobra"
)

// worktreesConfig holds flags and dependencies for the worktrees
// command.
type worktreesConfig struct {
	strict bool
	asJSON bool

	discoverer *worktree.Discoverer
	validator  *worktree.Validator
	w          io.Writer
}

// worktreeReport is one row of the listing: the worktree plus its
// validation outcome.
type worktreeReport struct {
	worktree.Worktree
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// newWorktreesCmd creates the "par worktrees" subcommand.
func newWorktreesCmd() *cobra.Command {
	var cfg worktreesConfig

	cmd := &cobra.Command{
		Use:   "worktrees",
		Short: "List discovered worktrees and their validation status",
		RunE: func(cmd *cobra.Command, args []string) error {
			appCfg, err := loadConfig()
			if err != nil {
				return err
			}
			runner := &worktree.ExecCommandRunner{}
			cfg.discoverer = worktree.NewDiscoverer(appCfg.Worktrees.SearchPaths, appCfg.Worktrees.ExcludePatterns, runner)
			cfg.validator = worktree.NewValidator(runner, cfg.strict)
			cfg.w = cmd.OutOrStdout()
			return runWorktrees(cmd.Context(), &cfg)
		},
	}

	cmd.Flags().BoolVar(&cfg.strict, "strict", false, "treat dirty worktrees as invalid")
	cmd.Flags().BoolVar(&cfg.asJSON, "json", false, "emit JSON instead of a table")

	return cmd
}

// runWorktrees discovers, validates, and prints every worktree.
func runWorktrees(ctx context.Context, cfg *worktreesConfig) error {
	found, err := cfg.discoverer.Discover(ctx)
	if err != nil {
		return fmt.Errorf("discover worktrees: %w", err)
	}

	reports := make([]worktreeReport, len(found))
	for i := range found {
		res := cfg.validator.Validate(ctx, &found[i])
		reports[i] = worktreeReport{
			Worktree: found[i],
			Errors:   res.Errors,
			Warnings: res.Warnings,
		}
	}

	if cfg.asJSON {
		enc := json.NewEncoder(cfg.w)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}

	formatWorktreeTable(cfg.w, reports)
	return nil
}

// formatWorktreeTable writes a human-readable listing of worktree
// reports to w.
func formatWorktreeTable(w io.Writer, reports []worktreeReport) {
	if len(reports) == 0 {
		fmt.Fprintln(w, "No worktrees found.")
		return
	}

	fmt.Fprintf(w, "%-24s %-20s %-8s %s\n", "Name", "Branch", "Status", "Path")
	fmt.Fprintf(w, "%-24s %-20s %-8s %s\n", "----", "------", "------", "----")

	valid := 0
	for i := range reports {
		r := &reports[i]
		branch := r.Branch
		if branch == "" {
			branch = "-"
		}
		fmt.Fprintf(w, "%-24s %-20s %-8s %s\n", r.Label(), branch, worktreeStatus(r), r.Path)
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  ! %s\n", e)
		}
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  ~ %s\n", warn)
		}
		if r.IsValid {
			valid++
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d worktrees, %d valid.\n", len(reports), valid)
}

// worktreeStatus condenses a report into a single status word.
func worktreeStatus(r *worktreeReport) string {
	switch {
	case !r.IsValid:
		return "invalid"
	case r.IsDirty:
		return "dirty"
	default:
		return "ok"
	}
}
