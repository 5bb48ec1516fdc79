package integration_test

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// buildParBinary compiles the par binary into a temp directory and
// returns the path to the compiled binary. Build failure is a hard
// fatal (not a skip), so CI catches regressions immediately.
func buildParBinary(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping CLI binary smoke tests in short mode")
	}

	root := integrationProjectRoot(t)

	binDir := t.TempDir()
	binPath := filepath.Join(binDir, "par")

	build := exec.Command("go", "build", "-o", binPath, "./cmd/par") //nolint:gosec // test-only, args are constant
	build.Dir = root
	out, err := build.CombinedOutput()
	if err != nil {
		t.Fatalf("go build ./cmd/par failed: %v\n%s", err, out)
	}

	return binPath
}

// integrationProjectRoot walks up from the package directory to find go.mod.
func integrationProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// writeParConfig writes a minimal config pointing par at the given
// agent binary and search root, with all state confined to home.
func writeParConfig(t *testing.T, home, agentPath, searchRoot string) string {
	t.Helper()

	cfgPath := filepath.Join(home, "config.yaml")
	cfg := fmt.Sprintf(`defaults:
  jobs: 2
  timeout: 2m
  output_dir: %s
agent:
  binary_path: %s
worktrees:
  search_paths:
    - %s
prompts:
  storage_dir: %s
`, filepath.Join(home, "results"), agentPath, searchRoot, filepath.Join(home, "prompts"))
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath
}

// parEnv returns the environment for a par invocation with config and
// state isolated to the test's directories.
func parEnv(cfgPath, home string) []string {
	return append(os.Environ(),
		"PAR_CONFIG="+cfgPath,
		"PAR_HOME="+home,
	)
}

// TestParBinary_AllSubcommandsHelp verifies that every subcommand
// responds to --help with exit code 0 and non-empty stdout.
func TestParBinary_AllSubcommandsHelp(t *testing.T) {
	binPath := buildParBinary(t)

	subcommands := [][]string{
		{"--help"},
		{"run", "--help"},
		{"worktrees", "--help"},
		{"prompts", "--help"},
		{"prompts", "list", "--help"},
		{"prompts", "show", "--help"},
		{"prompts", "add", "--help"},
		{"prompts", "remove", "--help"},
		{"results", "--help"},
		{"results", "list", "--help"},
		{"results", "show", "--help"},
		{"results", "clean", "--help"},
		{"doctor", "--help"},
		{"init", "--help"},
		{"dash", "--help"},
	}

	for _, args := range subcommands {
		name := strings.Join(args, " ")
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cmd := exec.Command(binPath, args...) //nolint:gosec // test-only
			out, err := cmd.Output()
			if err != nil {
				var exitErr *exec.ExitError
				if errors.As(err, &exitErr) {
					t.Fatalf("par %s exited non-zero (%d)\nstdout: %s\nstderr: %s",
						name, exitErr.ExitCode(), out, exitErr.Stderr)
				}
				t.Fatalf("par %s failed: %v\nstdout: %s", name, err, out)
			}
			if len(out) == 0 {
				t.Errorf("par %s: expected non-empty stdout, got empty", name)
			}
		})
	}
}

// TestParBinary_RunDryRun verifies the plan is printed without
// invoking the agent: the stub agent leaves a marker file when run,
// and a dry run must not produce one.
func TestParBinary_RunDryRun(t *testing.T) {
	binPath := buildParBinary(t)

	root := t.TempDir()
	home := t.TempDir()
	_, wtAuth, wtFail := setupWorktrees(t, root)
	agentPath := writeStubAgent(t, home)
	cfgPath := writeParConfig(t, home, agentPath, root)

	cmd := exec.Command(binPath, "run", //nolint:gosec // test-only
		"--instruction-text", "say hello",
		"--directories", wtAuth+","+wtFail,
		"--dry-run",
	)
	cmd.Env = parEnv(cfgPath, home)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("par run --dry-run failed: %v\n%s", err, out)
	}

	output := string(out)
	if !strings.Contains(output, "Dry run: no jobs executed") {
		t.Errorf("missing dry-run banner, got:\n%s", output)
	}
	if !strings.Contains(output, filepath.Base(wtAuth)) {
		t.Errorf("plan does not list %s:\n%s", filepath.Base(wtAuth), output)
	}
	if !strings.Contains(output, "Workers:") {
		t.Errorf("plan does not show worker count:\n%s", output)
	}
}

// TestParBinary_RunFullPipeline runs par against the stub agent and
// verifies the exit code, the console summary, the persisted report
// files, and the history database.
func TestParBinary_RunFullPipeline(t *testing.T) {
	binPath := buildParBinary(t)

	root := t.TempDir()
	home := t.TempDir()
	_, wtAuth, wtFail := setupWorktrees(t, root)
	agentPath := writeStubAgent(t, home)
	cfgPath := writeParConfig(t, home, agentPath, root)
	outDir := filepath.Join(home, "reports")

	cmd := exec.Command(binPath, "run", //nolint:gosec // test-only
		"--instruction-text", "apply the fix",
		"--directories", wtAuth+","+wtFail,
		"--output", outDir,
	)
	cmd.Env = parEnv(cfgPath, home)
	out, err := cmd.CombinedOutput()
	// One job fails inside the run, but job failures are reported in
	// the summary, not the exit code.
	if err != nil {
		t.Fatalf("par run failed: %v\n%s", err, out)
	}

	output := string(out)
	for _, want := range []string{filepath.Base(wtAuth), filepath.Base(wtFail), "Successful", "Failed"} {
		if !strings.Contains(output, want) {
			t.Errorf("summary missing %q:\n%s", want, output)
		}
	}

	reports, err := filepath.Glob(filepath.Join(outDir, "par_results_*.json"))
	if err != nil || len(reports) != 1 {
		t.Fatalf("expected 1 JSON report in %s, got %v (err %v)", outDir, reports, err)
	}
	prefix := strings.TrimSuffix(filepath.Base(reports[0]), ".json")
	for _, suffix := range []string{".txt", "_detailed.txt", ".csv"} {
		if _, err := os.Stat(filepath.Join(outDir, prefix+suffix)); err != nil {
			t.Errorf("missing report %s%s: %v", prefix, suffix, err)
		}
	}

	// Transcripts: one per job with captured output.
	transcripts, err := filepath.Glob(filepath.Join(outDir, "outputs_*", "*.txt"))
	if err != nil || len(transcripts) != 2 {
		t.Errorf("expected 2 transcripts, got %v (err %v)", transcripts, err)
	}

	// The run lands in the history database under PAR_HOME.
	if _, err := os.Stat(filepath.Join(home, "history.db")); err != nil {
		t.Errorf("history database not created: %v", err)
	}

	// results list must show the recorded run.
	listCmd := exec.Command(binPath, "results", "list") //nolint:gosec // test-only
	listCmd.Env = parEnv(cfgPath, home)
	listOut, err := listCmd.CombinedOutput()
	if err != nil {
		t.Fatalf("par results list failed: %v\n%s", err, listOut)
	}
	if !strings.Contains(string(listOut), "inline") {
		t.Errorf("results list missing the run's instruction, got:\n%s", listOut)
	}
}

// TestParBinary_PreflightFailureExitsTwo verifies a missing agent
// binary aborts the run before any job with exit code 2.
func TestParBinary_PreflightFailureExitsTwo(t *testing.T) {
	binPath := buildParBinary(t)

	root := t.TempDir()
	home := t.TempDir()
	_, wtAuth, _ := setupWorktrees(t, root)
	missingAgent := filepath.Join(home, "no-such-agent")
	cfgPath := writeParConfig(t, home, missingAgent, root)

	cmd := exec.Command(binPath, "run", //nolint:gosec // test-only
		"--instruction-text", "anything",
		"--directories", wtAuth,
	)
	cmd.Env = parEnv(cfgPath, home)
	out, err := cmd.CombinedOutput()
	if err == nil {
		t.Fatalf("expected pre-flight failure, got success:\n%s", out)
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected exit error, got %v", err)
	}
	if exitErr.ExitCode() != 2 {
		t.Errorf("exit code = %d, want 2\noutput: %s", exitErr.ExitCode(), out)
	}
	if !strings.Contains(strings.ToLower(string(out)), "pre-flight") {
		t.Errorf("error output should mention pre-flight, got:\n%s", out)
	}
}
