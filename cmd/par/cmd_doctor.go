package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"par/pkg/config"
	"par/pkg/executor"
	"par/pkg/results"

	"github.com/spf13/cobra"
)

// Check status constants.
const (
	statusOK   = "OK"
	statusFail = "FAIL"
)

// checkResult holds the outcome of one doctor check.
type checkResult struct {
	Name   string
	Status string
	Detail string
}

// doctorDeps holds injectable dependencies for the doctor command.
type doctorDeps struct {
	configPath  string
	historyPath string
	preflight   func(context.Context) error
	binaryPath  string
	w           io.Writer
}

// newDoctorCmd creates the "par doctor" subcommand.
func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that par can run on this machine",
		Long:  "Verifies the agent binary, git, the configuration file, and the data\ndirectories without executing any jobs.",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := config.DefaultPath()
			if err != nil {
				return err
			}
			historyPath, err := config.HistoryPath()
			if err != nil {
				return err
			}

			deps := &doctorDeps{
				configPath:  configPath,
				historyPath: historyPath,
				w:           cmd.OutOrStdout(),
			}
			return runDoctor(cmd.Context(), deps)
		},
	}
}

// runDoctor executes every check and prints the table. Any failed
// check makes the command fail.
func runDoctor(ctx context.Context, deps *doctorDeps) error {
	var checks []checkResult

	// Config first: later checks depend on its paths.
	cfg, err := config.Load(deps.configPath)
	if err != nil {
		checks = append(checks, checkResult{Name: "config", Status: statusFail, Detail: err.Error()})
		formatDoctorTable(deps.w, checks)
		return fmt.Errorf("1 check failed")
	}
	checks = append(checks, checkResult{Name: "config", Status: statusOK, Detail: deps.configPath})

	checks = append(checks, checkGit(ctx))
	checks = append(checks, checkAgent(ctx, deps, cfg))
	checks = append(checks, checkWritableDir("results dir", cfg.Defaults.OutputDir))
	checks = append(checks, checkWritableDir("prompts dir", cfg.Prompts.StorageDir))
	checks = append(checks, checkHistory(deps.historyPath))

	formatDoctorTable(deps.w, checks)

	failed := 0
	for _, c := range checks {
		if c.Status != statusOK {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d checks failed", failed)
	}
	return nil
}

// checkGit verifies git is installed and answering.
func checkGit(ctx context.Context) checkResult {
	if _, err := exec.LookPath("git"); err != nil {
		return checkResult{Name: "git", Status: statusFail, Detail: "git not found in PATH"}
	}
	out, err := exec.CommandContext(ctx, "git", "--version").Output()
	if err != nil {
		return checkResult{Name: "git", Status: statusFail, Detail: err.Error()}
	}
	return checkResult{Name: "git", Status: statusOK, Detail: strings.TrimSpace(string(out))}
}

// checkAgent runs the agent pre-flight probe.
func checkAgent(ctx context.Context, deps *doctorDeps, cfg *config.Config) checkResult {
	preflight := deps.preflight
	binary := deps.binaryPath
	if preflight == nil {
		agent := executor.NewAgent(cfg.Agent.BinaryPath, cfg.Agent.DefaultArgs, nil)
		preflight = agent.Preflight
		binary = cfg.Agent.BinaryPath
	}
	if err := preflight(ctx); err != nil {
		return checkResult{Name: "agent", Status: statusFail, Detail: err.Error()}
	}
	return checkResult{Name: "agent", Status: statusOK, Detail: binary}
}

// checkWritableDir verifies the directory exists (creating it) and
// accepts writes.
func checkWritableDir(name, dir string) checkResult {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return checkResult{Name: name, Status: statusFail, Detail: err.Error()}
	}
	probe, err := os.CreateTemp(dir, ".par-doctor-*")
	if err != nil {
		return checkResult{Name: name, Status: statusFail, Detail: fmt.Sprintf("not writable: %v", err)}
	}
	_ = probe.Close()
	_ = os.Remove(probe.Name())
	return checkResult{Name: name, Status: statusOK, Detail: dir}
}

// checkHistory verifies the run-history database opens.
func checkHistory(path string) checkResult {
	h, err := results.OpenHistory(path)
	if err != nil {
		return checkResult{Name: "history db", Status: statusFail, Detail: err.Error()}
	}
	_ = h.Close()
	return checkResult{Name: "history db", Status: statusOK, Detail: path}
}

// formatDoctorTable writes a human-readable table of check results.
func formatDoctorTable(w io.Writer, checks []checkResult) {
	fmt.Fprintf(w, "%-14s %-8s %s\n", "Check", "Status", "Detail")
	fmt.Fprintf(w, "%-14s %-8s %s\n", "-----", "------", "------")
	for _, c := range checks {
		fmt.Fprintf(w, "%-14s %-8s %s\n", c.Name, c.Status, c.Detail)
	}
}
