package main

import (
	"fmt"
	"io"
	"os"

	"par/pkg/config"

	"github.com/spf13/cobra"
)

// newInitCmd creates the "par init" subcommand.
func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a starter config and create the data directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.DefaultPath()
			if err != nil {
				return err
			}
			return runInit(cmd.OutOrStdout(), path)
		},
	}
}

// runInit writes the default config (unless one exists) and creates
// the output and prompt directories.
func runInit(w io.Writer, configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		fmt.Fprintf(w, "Config already exists at %s, leaving it untouched.\n", configPath)
	} else {
		cfg := config.Default()
		if err := cfg.Save(configPath); err != nil {
			return err
		}
		fmt.Fprintf(w, "Wrote starter config to %s.\n", configPath)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	fmt.Fprintf(w, "Results directory: %s\n", cfg.Defaults.OutputDir)
	fmt.Fprintf(w, "Prompts directory: %s\n", cfg.Prompts.StorageDir)
	return nil
}
