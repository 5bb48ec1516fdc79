package main

import (
	"os"
	"strings"
	"testing"
)

func TestREADMEDocumentsAllCommands(t *testing.T) {
	content, err := os.ReadFile("README.md")
	if err != nil {
		t.Fatalf("Failed to read README.md: %v", err)
	}

	readmeText := string(content)

	// Check for required section headers
	requiredSections := []string{
		"## Installation",
		"## Quick start",
		"## Commands",
		"## Configuration",
		"## Results",
		"## Dashboard",
		"## Exit codes",
	}
	for _, section := range requiredSections {
		if !strings.Contains(readmeText, section) {
			t.Errorf("README.md missing %s section", section)
		}
	}

	// Every shipped subcommand must be documented
	requiredCommands := []string{
		"par run",
		"par worktrees",
		"par prompts",
		"par results",
		"par doctor",
		"par init",
		"par dash",
	}
	for _, cmd := range requiredCommands {
		if !strings.Contains(readmeText, cmd) {
			t.Errorf("README.md missing documentation for %q", cmd)
		}
	}

	// The exit code contract is part of the CLI surface
	for _, code := range []string{"| 0 |", "| 1 |", "| 2 |"} {
		if !strings.Contains(readmeText, code) {
			t.Errorf("README.md exit code table missing row %s", code)
		}
	}
}
