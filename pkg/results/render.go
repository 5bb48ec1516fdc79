package results

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"par/pkg/job"
)

// Renderer turns one Summary into one output document. The format set
// is fixed: console, detailed, JSON, and CSV are the only
// implementations.
type Renderer interface {
	Render(s *Summary) (string, error)
}

// Status colors, shared with the dashboard's palette.
var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// ConsoleRenderer produces the short human-readable run summary.
// Color should be enabled only when writing to a terminal; persisted
// copies are rendered with Color off.
type ConsoleRenderer struct {
	Color bool
}

func (r *ConsoleRenderer) Render(s *Summary) (string, error) {
	paint := func(style lipgloss.Style, text string) string {
		if !r.Color {
			return text
		}
		return style.Render(text)
	}

	var sb strings.Builder
	sb.WriteString("Par Execution Summary\n")
	sb.WriteString("=====================\n")
	fmt.Fprintf(&sb, "Total Jobs: %d\n", s.TotalJobs)
	fmt.Fprintf(&sb, "Successful: %s\n", paint(successStyle, fmt.Sprintf("%d", s.Successful)))
	fmt.Fprintf(&sb, "Failed: %s\n", paint(errorStyle, fmt.Sprintf("%d", s.Failed)))
	fmt.Fprintf(&sb, "Timed Out: %s\n", paint(warnStyle, fmt.Sprintf("%d", s.TimedOut)))
	fmt.Fprintf(&sb, "Cancelled: %s\n", paint(mutedStyle, fmt.Sprintf("%d", s.Cancelled)))
	fmt.Fprintf(&sb, "Success Rate: %.1f%%\n", s.SuccessRate()*100)
	fmt.Fprintf(&sb, "Total Duration: %s\n", formatDuration(s.Duration))
	fmt.Fprintf(&sb, "Average Job Duration: %s\n", formatDuration(s.AverageDuration()))

	if s.HasFailures() {
		sb.WriteString("\nFailed Jobs:\n")
		for _, res := range s.FailedResults() {
			line := fmt.Sprintf("- %s: %s", res.WorktreeLabel, failureReason(res))
			if res.ErrorMessage != "" {
				line += fmt.Sprintf(" (%s)", res.ErrorMessage)
			}
			sb.WriteString(paint(errorStyle, line))
			sb.WriteString("\n")
		}
	}

	if len(s.Results) > 0 {
		fastest, slowest := s.Fastest(), s.Slowest()
		sb.WriteString("\nPerformance:\n")
		fmt.Fprintf(&sb, "Fastest: %s (%s)\n", fastest.WorktreeLabel, formatDuration(fastest.Duration))
		fmt.Fprintf(&sb, "Slowest: %s (%s)\n", slowest.WorktreeLabel, formatDuration(slowest.Duration))
	}
	return sb.String(), nil
}

// DetailedRenderer produces the per-job report: the console summary,
// a row per job, then each job's captured output.
type DetailedRenderer struct{}

func (r *DetailedRenderer) Render(s *Summary) (string, error) {
	console, err := (&ConsoleRenderer{}).Render(s)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(console)

	if len(s.Results) == 0 {
		return sb.String(), nil
	}

	sb.WriteString("\nJobs:\n")
	fmt.Fprintf(&sb, "%-32s %-10s %10s  %s\n", "WORKTREE", "STATUS", "DURATION", "ERROR")
	for _, res := range s.Results {
		fmt.Fprintf(&sb, "%-32s %-10s %10s  %s\n",
			truncate(res.WorktreeLabel, 32),
			res.Status,
			formatDuration(res.Duration),
			truncate(res.ErrorMessage, 60))
	}

	sb.WriteString("\nDetailed Results:\n")
	sb.WriteString("=================\n")
	for _, res := range s.Results {
		fmt.Fprintf(&sb, "\nJob: %s\n", res.JobID)
		fmt.Fprintf(&sb, "Worktree: %s\n", res.WorktreeLabel)
		fmt.Fprintf(&sb, "Status: %s\n", res.Status)
		fmt.Fprintf(&sb, "Duration: %s\n", formatDuration(res.Duration))
		fmt.Fprintf(&sb, "Start Time: %s\n", res.StartTime.Format(time.RFC3339))
		fmt.Fprintf(&sb, "End Time: %s\n", res.EndTime.Format(time.RFC3339))
		if res.ErrorMessage != "" {
			fmt.Fprintf(&sb, "Error: %s\n", res.ErrorMessage)
		}
		if res.Output != "" {
			sb.WriteString("Output:\n")
			sb.WriteString(indent(res.Output, "  "))
			sb.WriteString("\n")
		}
		sb.WriteString(strings.Repeat("-", 50) + "\n")
	}
	return sb.String(), nil
}

// JSONRenderer marshals the full Summary for machine consumption.
type JSONRenderer struct{}

func (r *JSONRenderer) Render(s *Summary) (string, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal summary: %w", err)
	}
	return string(data), nil
}

// CSVRenderer produces one row per job for spreadsheet analysis.
type CSVRenderer struct{}

func (r *CSVRenderer) Render(s *Summary) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	header := []string{"job_id", "worktree", "status", "duration_ms", "start_time", "end_time", "error_message"}
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}
	for _, res := range s.Results {
		row := []string{
			res.JobID,
			res.WorktreeLabel,
			string(res.Status),
			fmt.Sprintf("%d", res.Duration.Milliseconds()),
			res.StartTime.Format(time.RFC3339),
			res.EndTime.Format(time.RFC3339),
			res.ErrorMessage,
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("write csv row for %s: %w", res.JobID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}
	return sb.String(), nil
}

// failureReason summarizes why a result is listed under failed jobs.
func failureReason(r job.Result) string {
	switch r.Status {
	case job.StatusTimeout:
		return "timeout"
	case job.StatusCancelled:
		return "cancelled"
	case job.StatusFailed:
		if r.ExitCode != 0 {
			return fmt.Sprintf("exit code %d", r.ExitCode)
		}
		return "execution failed"
	default:
		return "unknown failure"
	}
}

// formatDuration renders a duration at the precision a human scanning
// a report wants: ms under a second, seconds under a minute, minutes
// above.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func indent(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
