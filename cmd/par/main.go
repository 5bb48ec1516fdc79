// Package main is the entry point for the par CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"par/pkg/executor"
)

// Exit codes for par run.
const (
	exitCodePreflight = 2
	exitCodeError     = 1
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if errors.Is(err, executor.ErrAgentUnavailable) {
			os.Exit(exitCodePreflight)
		}
		os.Exit(exitCodeError)
	}
}
