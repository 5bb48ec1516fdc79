// Package main implements the par-dash interactive dashboard: a
// read-only terminal view over the run history and saved reports.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"par/pkg/results"
)

// robotMode outputs a JSON snapshot of recent runs for scripting,
// instead of starting the interactive program.
func robotMode(runs []results.RunRecord) ([]byte, error) {
	snapshot := map[string]any{
		"runs": runs,
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return data, nil
}

func main() {
	asJSON := flag.Bool("json", false, "print a JSON snapshot of recent runs and exit")
	flag.Parse()

	ds, err := newDataSource()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		runs, err := ds.fetchRuns(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		data, err := robotMode(runs)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
		return
	}

	p := tea.NewProgram(newModel(ds), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running dashboard: %v\n", err)
		os.Exit(1)
	}
}
