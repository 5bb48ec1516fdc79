package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"par/pkg/config"
	"par/pkg/results"

	"github.com/spf13/cobra"
)

// resultsDeps holds dependencies shared by the results subcommands.
type resultsDeps struct {
	storage     *results.Storage
	historyPath string
	w           io.Writer
}

// newResultsDeps builds production dependencies for results commands.
func newResultsDeps(w io.Writer) (*resultsDeps, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	historyPath, err := config.HistoryPath()
	if err != nil {
		historyPath = ""
	}
	return &resultsDeps{
		storage:     results.NewStorage(cfg.Defaults.OutputDir),
		historyPath: historyPath,
		w:           w,
	}, nil
}

// newResultsCmd creates the "par results" subcommand tree.
func newResultsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Inspect and clean saved run results",
	}

	cmd.AddCommand(
		newResultsListCmd(),
		newResultsShowCmd(),
		newResultsCleanCmd(),
	)

	return cmd
}

func newResultsListCmd() *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs from the history index",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := newResultsDeps(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return runResultsList(cmd.Context(), deps, limit, asJSON)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "max runs to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON instead of a table")

	return cmd
}

func newResultsShowCmd() *cobra.Command {
	var detailed bool

	cmd := &cobra.Command{
		Use:   "show <report>",
		Short: "Re-render a saved run summary",
		Long:  "Renders a saved run from its JSON report file, as listed by\n'par results list'.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := newResultsDeps(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return runResultsShow(deps, args[0], detailed)
		},
	}

	cmd.Flags().BoolVar(&detailed, "detailed", false, "include per-job detail blocks")

	return cmd
}

func newResultsCleanCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "clean [report]",
		Short: "Delete saved run artifacts",
		Long:  "Deletes one run's artifacts when a report name is given, or every run\nolder than --older-than.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := newResultsDeps(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return runResultsClean(deps, name, olderThan)
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "delete runs older than this age (e.g. 168h)")

	return cmd
}

// runResultsList prints recent runs from the history database.
func runResultsList(ctx context.Context, deps *resultsDeps, limit int, asJSON bool) error {
	if deps.historyPath == "" {
		return errors.New("run history location could not be resolved")
	}
	h, err := results.OpenHistory(deps.historyPath)
	if err != nil {
		return fmt.Errorf("open run history: %w", err)
	}
	defer func() { _ = h.Close() }()

	records, err := h.Recent(ctx, limit)
	if err != nil {
		return fmt.Errorf("query run history: %w", err)
	}

	if asJSON {
		enc := json.NewEncoder(deps.w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if len(records) == 0 {
		fmt.Fprintln(deps.w, "No runs recorded.")
		return nil
	}

	fmt.Fprintf(deps.w, "%-17s %-20s %5s %4s %5s %4s %4s %10s  %s\n",
		"Started", "Instruction", "Jobs", "OK", "Fail", "T/O", "Cxl", "Duration", "Report")
	for _, r := range records {
		fmt.Fprintf(deps.w, "%-17s %-20s %5d %4d %5d %4d %4d %10s  %s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			truncateTo(r.Instruction, 20),
			r.TotalJobs, r.Successful, r.Failed, r.TimedOut, r.Cancelled,
			r.Duration.Round(100*time.Millisecond),
			r.ReportPath)
	}
	return nil
}

// runResultsShow re-renders a saved summary from its report file.
func runResultsShow(deps *resultsDeps, name string, detailed bool) error {
	if !strings.HasSuffix(name, ".json") {
		name += ".json"
	}
	summary, err := deps.storage.LoadSummary(name)
	if err != nil {
		return fmt.Errorf("load report %s: %w", name, err)
	}

	var renderer results.Renderer = &results.ConsoleRenderer{Color: isStdoutTTY()}
	if detailed {
		renderer = &results.DetailedRenderer{}
	}
	rendered, err := renderer.Render(summary)
	if err != nil {
		return err
	}
	fmt.Fprintln(deps.w, rendered)
	return nil
}

// runResultsClean deletes one named run or every run past the
// retention age.
func runResultsClean(deps *resultsDeps, name string, olderThan time.Duration) error {
	switch {
	case name != "":
		if !strings.HasSuffix(name, ".json") {
			name += ".json"
		}
		if err := deps.storage.DeleteRun(name); err != nil {
			return err
		}
		fmt.Fprintf(deps.w, "Deleted run %s.\n", name)
		return nil
	case olderThan > 0:
		removed, err := deps.storage.CleanOld(olderThan)
		if err != nil {
			return err
		}
		fmt.Fprintf(deps.w, "Removed %d entries older than %s.\n", removed, olderThan)
		return nil
	default:
		return errors.New("specify a report name or --older-than")
	}
}

// truncateTo shortens s for fixed-width table columns.
func truncateTo(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
