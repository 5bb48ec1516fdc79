package main

import (
	"strings"
	"testing"
)

// TestNewRootCmd_Subcommands verifies every par subcommand is
// registered.
func TestNewRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()

	want := []string{"run", "worktrees", "prompts", "results", "doctor", "init", "dash"}
	for _, name := range want {
		found := false
		for _, sub := range root.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

// TestNewRootCmd_Version verifies the version string carries the
// binary name.
func TestNewRootCmd_Version(t *testing.T) {
	root := newRootCmd()
	if !strings.HasPrefix(root.Version, "par ") {
		t.Errorf("version: %q", root.Version)
	}
}
