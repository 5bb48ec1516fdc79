package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"par/pkg/config"
	"par/pkg/executor"
	"par/pkg/job"
	"par/pkg/prompt"
	"par/pkg/results"
	"par/pkg/worktree"

	"github.com/spf13/cobra"
)

// runConfig holds parsed flags for the run command.
type runConfig struct {
	promptName      string
	instructionText string
	jobs            int
	timeout         time.Duration
	worktreeFilters []string
	directories     []string
	vars            []string
	outputDir       string
	dryRun          bool
	sequential      bool
	strict          bool
	noSave          bool
	noOutputs       bool
}

// newRunCmd creates the "par run" subcommand.
func newRunCmd() *cobra.Command {
	var cfg runConfig

	cmd := &cobra.Command{
		Use:   "run [prompt]",
		Short: "Run an instruction across worktrees in parallel",
		Long: `Discovers git worktrees, validates them, and runs the coding agent once
per worktree under a bounded worker pool. Takes a stored prompt name or
an inline instruction via --instruction-text.

Job failures do not affect the exit code; read the summary. Exit code 2
means the agent binary failed its pre-flight check and nothing ran.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				cfg.promptName = args[0]
			}
			return runRun(cmd, &cfg)
		},
	}

	cmd.Flags().IntVar(&cfg.jobs, "jobs", 0, "max concurrent jobs (default from config)")
	cmd.Flags().DurationVar(&cfg.timeout, "timeout", 0, "per-job timeout (default from config)")
	cmd.Flags().StringSliceVar(&cfg.worktreeFilters, "worktrees", nil, "glob patterns selecting worktrees by name")
	cmd.Flags().StringSliceVar(&cfg.directories, "directories", nil, "explicit worktree paths, bypassing discovery")
	cmd.Flags().StringArrayVar(&cfg.vars, "var", nil, "template variable key=value (repeatable)")
	cmd.Flags().StringVar(&cfg.instructionText, "instruction-text", "", "inline instruction instead of a stored prompt")
	cmd.Flags().StringVar(&cfg.outputDir, "output", "", "results directory (default from config)")
	cmd.Flags().BoolVar(&cfg.dryRun, "dry-run", false, "print the execution plan without running")
	cmd.Flags().BoolVar(&cfg.sequential, "sequential", false, "run jobs one at a time")
	cmd.Flags().BoolVar(&cfg.strict, "strict", false, "treat dirty worktrees as invalid")
	cmd.Flags().BoolVar(&cfg.noSave, "no-save", false, "skip persisting reports")
	cmd.Flags().BoolVar(&cfg.noOutputs, "no-outputs", false, "skip per-job transcript files")

	return cmd
}

// runDeps holds injectable dependencies for testability.
type runDeps struct {
	cfg         *config.Config
	discoverer  *worktree.Discoverer
	validator   *worktree.Validator
	store       *prompt.Store
	runner      executor.Runner
	preflight   func(context.Context) error
	historyPath string
	w           io.Writer
	color       bool
}

// newProductionDeps creates real dependencies from the loaded config.
func newProductionDeps(cfg *config.Config, rc *runConfig) *runDeps {
	runner := &worktree.ExecCommandRunner{}
	agent := executor.NewAgent(cfg.Agent.BinaryPath, cfg.Agent.DefaultArgs, nil)

	historyPath, err := config.HistoryPath()
	if err != nil {
		historyPath = ""
	}

	return &runDeps{
		cfg:         cfg,
		discoverer:  worktree.NewDiscoverer(cfg.Worktrees.SearchPaths, cfg.Worktrees.ExcludePatterns, runner),
		validator:   worktree.NewValidator(runner, rc.strict),
		store:       prompt.NewStore(cfg.Prompts.StorageDir),
		runner:      agent,
		preflight:   agent.Preflight,
		historyPath: historyPath,
		w:           os.Stdout,
		color:       isStdoutTTY(),
	}
}

// runRun wires production dependencies and hands off to executeRun.
func runRun(cmd *cobra.Command, rc *runConfig) error {
	// Set up signal handling for graceful shutdown.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	deps := newProductionDeps(cfg, rc)
	deps.w = cmd.OutOrStdout()
	return executeRun(ctx, rc, deps)
}

// executeRun is the testable core of the run command.
func executeRun(ctx context.Context, rc *runConfig, deps *runDeps) error {
	// Step 1: Resolve the instruction.
	vars, err := prompt.ParseVars(rc.vars)
	if err != nil {
		return err
	}
	instructionName, instructionText, err := resolveInstruction(rc, deps.store, vars)
	if err != nil {
		return err
	}

	// Step 2: Discover and validate worktrees.
	candidates, err := gatherWorktrees(ctx, rc, deps)
	if err != nil {
		return err
	}
	valid, reports := deps.validator.FilterValid(ctx, candidates)
	for i := range candidates {
		res := reports[candidates[i].Path]
		if !res.IsValid {
			logStep("Skipping %s: %s", candidates[i].Label(), strings.Join(res.Errors, "; "))
		}
	}
	if len(valid) == 0 {
		return errors.New("no valid worktrees matched")
	}
	logStep("Discovered %d worktrees, %d valid", len(candidates), len(valid))

	// Step 3: Build the plan.
	workers := rc.jobs
	if workers < 1 {
		workers = deps.cfg.Defaults.Jobs
	}
	timeout := rc.timeout
	if timeout <= 0 {
		timeout = deps.cfg.Timeout()
	}
	jobs := make([]*job.Job, len(valid))
	for i, wt := range valid {
		jobs[i] = job.New(wt, instructionText, instructionName, timeout, vars)
	}
	plan := job.NewPlan(jobs, instructionName, workers, timeout, rc.dryRun)

	if rc.dryRun {
		printPlan(deps.w, plan)
		return nil
	}

	// Step 4: Pre-flight the agent before scheduling anything.
	logStep("Checking agent availability...")
	if err := deps.preflight(ctx); err != nil {
		return fmt.Errorf("pre-flight: %w", err)
	}

	// Step 5: Execute.
	logStep("Running %d jobs across %d workers (timeout %s)", plan.TotalJobs, workers, timeout)
	var done atomic.Int64
	pool := executor.NewPool(deps.runner, executor.Config{
		Workers:    workers,
		Sequential: rc.sequential,
		OnResult: func(r job.Result) {
			logStep("[%d/%d] %s: %s (%s)",
				done.Add(1), plan.TotalJobs, r.WorktreeLabel, r.Status, r.Duration.Round(100*time.Millisecond))
		},
	})
	resList, err := pool.Execute(ctx, plan)
	if err != nil {
		return fmt.Errorf("execute plan: %w", err)
	}

	// Step 6: Aggregate and report.
	summary := results.Aggregate(plan.ID, resList)
	console := &results.ConsoleRenderer{Color: deps.color}
	rendered, err := console.Render(summary)
	if err != nil {
		return fmt.Errorf("render summary: %w", err)
	}
	fmt.Fprintln(deps.w, rendered)

	// Step 7: Persist. The summary above is already out, so storage
	// errors surface without discarding execution data.
	if rc.noSave {
		return nil
	}
	outputDir := rc.outputDir
	if outputDir == "" {
		outputDir = deps.cfg.Defaults.OutputDir
	}
	storage := results.NewStorage(outputDir)
	prefix := results.RunPrefix(time.Now(), plan.ID)
	if err := storage.SaveRun(summary, prefix); err != nil {
		return fmt.Errorf("save results: %w", err)
	}
	if !rc.noOutputs {
		if err := storage.SaveTranscripts(summary, prefix); err != nil {
			return fmt.Errorf("save transcripts: %w", err)
		}
	}
	logStep("Results saved to %s", storage.Dir())

	recordHistory(deps.historyPath, summary, instructionName, prefix+".json")
	return nil
}

// resolveInstruction produces the final instruction text from either a
// stored prompt or the --instruction-text flag, with template
// variables expanded.
func resolveInstruction(rc *runConfig, store *prompt.Store, vars map[string]string) (name, text string, err error) {
	switch {
	case rc.instructionText != "" && rc.promptName != "":
		return "", "", errors.New("provide a prompt name or --instruction-text, not both")
	case rc.instructionText != "":
		p := &prompt.Prompt{Name: "inline", Content: rc.instructionText}
		text, err = p.Expand(vars)
		return "inline", text, err
	case rc.promptName != "":
		p, loadErr := store.Load(rc.promptName)
		if loadErr != nil {
			return "", "", loadErr
		}
		text, err = p.Expand(vars)
		return p.Name, text, err
	default:
		return "", "", errors.New("provide a prompt name or --instruction-text")
	}
}

// gatherWorktrees returns the candidate worktrees: explicit paths when
// --directories is set, otherwise discovery filtered by --worktrees
// name globs.
func gatherWorktrees(ctx context.Context, rc *runConfig, deps *runDeps) ([]worktree.Worktree, error) {
	if len(rc.directories) > 0 {
		return deps.discoverer.FromDirs(ctx, rc.directories), nil
	}

	found, err := deps.discoverer.Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover worktrees: %w", err)
	}
	if len(rc.worktreeFilters) == 0 {
		return found, nil
	}

	var filtered []worktree.Worktree
	for _, wt := range found {
		if matchesAny(wt.Name, rc.worktreeFilters) {
			filtered = append(filtered, wt)
		}
	}
	return filtered, nil
}

// matchesAny reports whether name matches at least one glob pattern.
func matchesAny(name string, patterns []string) bool {
	for _, pat := range patterns {
		if ok, err := path.Match(pat, name); err == nil && ok {
			return true
		}
	}
	return false
}

// printPlan writes the dry-run execution plan.
func printPlan(w io.Writer, plan *job.Plan) {
	fmt.Fprintln(w, "Dry run: no jobs executed")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Instruction: %s\n", plan.InstructionName)
	fmt.Fprintf(w, "Workers:     %d\n", plan.MaxWorkers)
	fmt.Fprintf(w, "Timeout:     %s\n", plan.Timeout)
	fmt.Fprintf(w, "Jobs (%d):\n", plan.TotalJobs)
	for _, jb := range plan.Jobs {
		fmt.Fprintf(w, "  - %s (%s)\n", jb.Worktree.Label(), jb.Worktree.Path)
	}
}

// recordHistory indexes the run in the history database. Failures are
// warnings; the report files are the source of truth.
func recordHistory(path string, summary *results.Summary, instruction, reportPath string) {
	if path == "" {
		return
	}
	h, err := results.OpenHistory(path)
	if err != nil {
		logStep("Warning: run history unavailable: %v", err)
		return
	}
	defer func() { _ = h.Close() }()

	// Recording happens after shutdown may have begun, so it gets its
	// own context.
	if err := h.Record(context.Background(), summary, instruction, reportPath); err != nil {
		logStep("Warning: failed to record run history: %v", err)
	}
}

// loadConfig resolves the config path and loads the configuration.
func loadConfig() (*config.Config, error) {
	path, err := config.DefaultPath()
	if err != nil {
		return nil, err
	}
	return config.Load(path)
}

// logStep prints progress to stderr, keeping stdout clean for reports.
func logStep(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}
