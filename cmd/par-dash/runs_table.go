package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"par/pkg/results"
)

// runsTableHeight is the default visible row count before the first
// window size message arrives.
const runsTableHeight = 12

// newRunsTable builds the runs table with par-dash styling applied.
func newRunsTable(theme Theme) table.Model {
	columns := []table.Column{
		{Title: "Started", Width: 16},
		{Title: "Instruction", Width: 22},
		{Title: "Jobs", Width: 5},
		{Title: "OK", Width: 4},
		{Title: "Fail", Width: 4},
		{Title: "T/O", Width: 4},
		{Title: "Cxl", Width: 4},
		{Title: "Rate", Width: 5},
		{Title: "Duration", Width: 10},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(runsTableHeight),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(theme.Muted).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#ffffff")).
		Background(theme.Primary).
		Bold(false)
	t.SetStyles(s)

	return t
}

// runRows converts history records into table rows, one per run,
// preserving the records' order (newest first).
func runRows(records []results.RunRecord) []table.Row {
	rows := make([]table.Row, len(records))
	for i, rec := range records {
		rows[i] = table.Row{
			rec.StartedAt.Local().Format("2006-01-02 15:04"),
			truncate(rec.Instruction, 22),
			fmt.Sprintf("%d", rec.TotalJobs),
			fmt.Sprintf("%d", rec.Successful),
			fmt.Sprintf("%d", rec.Failed),
			fmt.Sprintf("%d", rec.TimedOut),
			fmt.Sprintf("%d", rec.Cancelled),
			successRate(rec),
			fmtDuration(rec.Duration),
		}
	}
	return rows
}

// successRate renders successful/total as a percentage, dash for an
// empty run.
func successRate(rec results.RunRecord) string {
	if rec.TotalJobs == 0 {
		return "-"
	}
	return fmt.Sprintf("%.0f%%", float64(rec.Successful)/float64(rec.TotalJobs)*100)
}

// fmtDuration renders a duration at report precision: ms under a
// second, seconds under a minute, minutes above.
func fmtDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
}

// truncate shortens s to fit a fixed-width table column.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
