package main

import (
	"os"

	"github.com/mattn/go-isatty"
)

// isStdinTTY reports whether stdin is attached to an interactive
// terminal.
func isStdinTTY() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// isStdoutTTY reports whether stdout is attached to an interactive
// terminal. Colored report output is gated on this.
func isStdoutTTY() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
