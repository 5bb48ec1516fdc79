package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTestFile writes content creating parent directories.
func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// newTestDoctorDeps points every doctor path at a temp data home with
// a stubbed agent probe.
func newTestDoctorDeps(t *testing.T, preflightErr error) (*doctorDeps, *bytes.Buffer) {
	t.Helper()
	base := t.TempDir()
	t.Setenv("PAR_HOME", base)

	out := &bytes.Buffer{}
	return &doctorDeps{
		configPath:  filepath.Join(base, "config.yaml"),
		historyPath: filepath.Join(base, "history.db"),
		preflight:   func(context.Context) error { return preflightErr },
		binaryPath:  "agent",
		w:           out,
	}, out
}

// TestRunDoctor_AllChecksPass verifies the healthy path prints OK for
// every check.
func TestRunDoctor_AllChecksPass(t *testing.T) {
	deps, out := newTestDoctorDeps(t, nil)

	if err := runDoctor(context.Background(), deps); err != nil {
		t.Fatalf("runDoctor: %v\n%s", err, out.String())
	}
	for _, want := range []string{"config", "git", "agent", "results dir", "prompts dir", "history db"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing check %q", want)
		}
	}
	if strings.Contains(out.String(), statusFail) {
		t.Errorf("unexpected FAIL:\n%s", out.String())
	}
}

// TestRunDoctor_AgentFailure verifies a failing probe is reported and
// makes the command fail.
func TestRunDoctor_AgentFailure(t *testing.T) {
	deps, out := newTestDoctorDeps(t, errors.New("binary missing"))

	err := runDoctor(context.Background(), deps)
	if err == nil || !strings.Contains(err.Error(), "1 checks failed") {
		t.Fatalf("got %v", err)
	}
	if !strings.Contains(out.String(), "binary missing") {
		t.Errorf("failure detail not shown:\n%s", out.String())
	}
}

// TestRunDoctor_BadConfig verifies an invalid config short-circuits
// the remaining checks.
func TestRunDoctor_BadConfig(t *testing.T) {
	deps, out := newTestDoctorDeps(t, nil)
	writeTestFile(t, deps.configPath, "defaults:\n  jobs: 0\n")

	err := runDoctor(context.Background(), deps)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(out.String(), statusFail) {
		t.Errorf("config failure not shown:\n%s", out.String())
	}
	if strings.Contains(out.String(), "history db") {
		t.Error("later checks ran despite config failure")
	}
}
