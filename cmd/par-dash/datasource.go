package main

import (
	"context"
	"fmt"
	"time"

	"par/pkg/config"
	"par/pkg/results"
)

// fetchTimeout bounds one history query or report load.
const fetchTimeout = 5 * time.Second

// maxRuns is how many runs the dashboard keeps in its table.
const maxRuns = 50

// dataSource reads run history and saved reports. The dashboard never
// writes through it.
type dataSource struct {
	historyPath string
	storage     *results.Storage
}

// newDataSource resolves the history database and results directory
// from the par configuration.
func newDataSource() (*dataSource, error) {
	path, err := config.DefaultPath()
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	historyPath, err := config.HistoryPath()
	if err != nil {
		return nil, fmt.Errorf("resolve history path: %w", err)
	}
	return &dataSource{
		historyPath: historyPath,
		storage:     results.NewStorage(cfg.Defaults.OutputDir),
	}, nil
}

// resultsDir returns the directory the watcher observes for new
// reports.
func (ds *dataSource) resultsDir() string {
	return ds.storage.Dir()
}

// fetchRuns returns the most recent runs, newest first. The history
// database is opened per fetch so the dashboard never holds a write
// lock against a running par.
func (ds *dataSource) fetchRuns(ctx context.Context) ([]results.RunRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	h, err := results.OpenHistory(ds.historyPath)
	if err != nil {
		return nil, fmt.Errorf("open run history: %w", err)
	}
	defer func() { _ = h.Close() }()

	runs, err := h.Recent(ctx, maxRuns)
	if err != nil {
		return nil, fmt.Errorf("query run history: %w", err)
	}
	return runs, nil
}

// loadRun reads one run's full summary back from its persisted JSON
// report.
func (ds *dataSource) loadRun(rec results.RunRecord) (*results.Summary, error) {
	if rec.ReportPath == "" {
		return nil, fmt.Errorf("run %s has no report file recorded", rec.PlanID)
	}
	summary, err := ds.storage.LoadSummary(rec.ReportPath)
	if err != nil {
		return nil, fmt.Errorf("load report for run %s: %w", rec.PlanID, err)
	}
	return summary, nil
}
