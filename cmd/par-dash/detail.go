package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"par/pkg/job"
	"par/pkg/results"
)

// outputPreviewLines caps how much of a failed job's captured output
// the Failures tab shows; the transcript file has the rest.
const outputPreviewLines = 12

// DetailModel represents the drilldown view for a single run.
type DetailModel struct {
	record    results.RunRecord
	summary   *results.Summary
	loadErr   error
	activeTab int
	tabs      []string
}

// newDetailModel creates a DetailModel for the given run. A nil
// summary with a non-nil err renders the load failure instead of the
// tabs.
func newDetailModel(rec results.RunRecord, summary *results.Summary, err error) DetailModel {
	return DetailModel{
		record:  rec,
		summary: summary,
		loadErr: err,
		tabs:    []string{"Overview", "Jobs", "Failures"},
	}
}

// nextTab moves to the next tab, wrapping around to the first tab at
// the end.
func (d DetailModel) nextTab() DetailModel {
	d.activeTab = (d.activeTab + 1) % len(d.tabs)
	return d
}

// prevTab moves to the previous tab, wrapping around to the last tab
// at the start.
func (d DetailModel) prevTab() DetailModel {
	d.activeTab = (d.activeTab - 1 + len(d.tabs)) % len(d.tabs)
	return d
}

// View renders the detail view with tabs.
func (d DetailModel) View() string {
	theme := DefaultTheme()

	if d.loadErr != nil {
		errorStyle := lipgloss.NewStyle().Foreground(theme.Error)
		hintStyle := lipgloss.NewStyle().Foreground(theme.Muted)
		return lipgloss.JoinVertical(
			lipgloss.Left,
			errorStyle.Render("Could not load this run's report: "+d.loadErr.Error()),
			hintStyle.Render("The report files may have been cleaned. Esc to go back."),
		)
	}

	var tabHeaders []string
	for i, tab := range d.tabs {
		if i == d.activeTab {
			style := lipgloss.NewStyle().Foreground(theme.Primary).Bold(true)
			tabHeaders = append(tabHeaders, style.Render("["+tab+"]"))
		} else {
			style := lipgloss.NewStyle().Foreground(theme.Muted)
			tabHeaders = append(tabHeaders, style.Render(tab))
		}
	}
	header := strings.Join(tabHeaders, " ")

	var content string
	switch d.activeTab {
	case 0:
		content = d.renderOverviewTab()
	case 1:
		content = d.renderJobsTab()
	case 2:
		content = d.renderFailuresTab()
	default:
		content = "Unknown tab"
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		"",
		content,
	)
}

// renderOverviewTab renders the run's aggregate numbers.
func (d DetailModel) renderOverviewTab() string {
	theme := DefaultTheme()
	s := d.summary

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.Primary)
	lines := []string{
		titleStyle.Render("Instruction: ") + d.record.Instruction,
		"Plan: " + s.PlanID,
		"Started: " + s.StartTime.Local().Format(time.RFC1123),
		"",
		fmt.Sprintf("Jobs: %d   Successful: %d   Failed: %d   Timed Out: %d   Cancelled: %d",
			s.TotalJobs, s.Successful, s.Failed, s.TimedOut, s.Cancelled),
		fmt.Sprintf("Success Rate: %.1f%%", s.SuccessRate()*100),
		fmt.Sprintf("Total Duration: %s   Average Job: %s", fmtDuration(s.Duration), fmtDuration(s.AverageDuration())),
	}

	if fastest, slowest := s.Fastest(), s.Slowest(); fastest != nil && slowest != nil {
		lines = append(lines,
			fmt.Sprintf("Fastest: %s (%s)   Slowest: %s (%s)",
				fastest.WorktreeLabel, fmtDuration(fastest.Duration),
				slowest.WorktreeLabel, fmtDuration(slowest.Duration)))
	}

	if d.record.ReportPath != "" {
		mutedStyle := lipgloss.NewStyle().Foreground(theme.Muted)
		lines = append(lines, "", mutedStyle.Render("Report: "+d.record.ReportPath))
	}

	return strings.Join(lines, "\n")
}

// renderJobsTab renders one line per job with its colored status.
func (d DetailModel) renderJobsTab() string {
	theme := DefaultTheme()

	if len(d.summary.Results) == 0 {
		dimStyle := lipgloss.NewStyle().Foreground(theme.Muted).Italic(true)
		return dimStyle.Render("No jobs in this run")
	}

	var sb strings.Builder
	headerStyle := lipgloss.NewStyle().Bold(true)
	sb.WriteString(headerStyle.Render(fmt.Sprintf("%-32s %-10s %10s  %s", "WORKTREE", "STATUS", "DURATION", "ERROR")))
	sb.WriteString("\n")
	for _, res := range d.summary.Results {
		sb.WriteString(fmt.Sprintf("%-32s %-10s %10s  %s\n",
			truncate(res.WorktreeLabel, 32),
			theme.renderStatus(res.Status),
			fmtDuration(res.Duration),
			truncate(res.ErrorMessage, 40)))
	}
	return sb.String()
}

// renderFailuresTab renders each non-success job with an output
// preview.
func (d DetailModel) renderFailuresTab() string {
	theme := DefaultTheme()

	failed := d.summary.FailedResults()
	if len(failed) == 0 {
		dimStyle := lipgloss.NewStyle().Foreground(theme.Muted).Italic(true)
		return dimStyle.Render("No failures in this run")
	}

	var blocks []string
	for _, res := range failed {
		blocks = append(blocks, d.renderFailureBlock(theme, res))
	}
	return strings.Join(blocks, "\n\n")
}

// renderFailureBlock renders one failed job: label, status, error, and
// the tail of its captured output.
func (d DetailModel) renderFailureBlock(theme Theme, res job.Result) string {
	labelStyle := lipgloss.NewStyle().Bold(true)

	lines := []string{
		labelStyle.Render(res.WorktreeLabel) + "  " + theme.renderStatus(res.Status) +
			"  (" + fmtDuration(res.Duration) + ")",
	}
	if res.ErrorMessage != "" {
		errorStyle := lipgloss.NewStyle().Foreground(theme.Error)
		lines = append(lines, errorStyle.Render(res.ErrorMessage))
	}
	if res.Output != "" {
		mutedStyle := lipgloss.NewStyle().Foreground(theme.Muted)
		lines = append(lines, mutedStyle.Render(outputTail(res.Output, outputPreviewLines)))
	}
	return strings.Join(lines, "\n")
}

// outputTail returns the last n lines of text, prefixed with an
// ellipsis marker when anything was cut.
func outputTail(text string, n int) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines) <= n {
		return strings.Join(lines, "\n")
	}
	tail := lines[len(lines)-n:]
	return "... (" + fmt.Sprintf("%d", len(lines)-n) + " more lines in transcript)\n" + strings.Join(tail, "\n")
}
