package main

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"

	"par/pkg/results"
)

// pollInterval is the fallback refresh cadence. The fsnotify watcher
// usually refreshes sooner; polling covers the case where the results
// directory cannot be watched.
const pollInterval = 2 * time.Second

// tickMsg is sent by Bubble Tea on every poll interval.
type tickMsg time.Time

// runsMsg carries a fetched run listing, or the error that prevented
// it.
type runsMsg struct {
	runs []results.RunRecord
	err  error
}

// runDetailMsg carries one run's loaded summary for the detail view.
type runDetailMsg struct {
	record  results.RunRecord
	summary *results.Summary
	err     error
}

// tickCmd returns a command that sends a tickMsg after the poll
// interval.
func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// ViewType represents different views in the dashboard.
type ViewType int

const (
	// RunsView shows the run-history table.
	RunsView ViewType = iota
	// DetailView shows a single run's summary.
	DetailView
)

// Model is the Bubble Tea model for the par dashboard.
type Model struct {
	activeView ViewType

	ds      *dataSource
	watcher *fsnotify.Watcher

	// Data fetched from the history database
	records  []results.RunRecord
	fetchErr error

	// UI state
	runsTable   table.Model
	spinner     spinner.Model
	loading     bool
	lastRefresh time.Time
	width       int
	height      int

	// Detail view state
	detailModel *DetailModel
}

// newModel creates a Model initialized with RunsView active. The
// watcher may be nil; the dashboard then refreshes by polling only.
func newModel(ds *dataSource) Model {
	theme := DefaultTheme()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(theme.Primary)

	return Model{
		activeView: RunsView,
		ds:         ds,
		watcher:    initWatcher(ds.resultsDir()),
		runsTable:  newRunsTable(theme),
		spinner:    s,
		loading:    true,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchRunsCmd(), m.spinner.Tick, tickCmd(), waitForChange(m.watcher))
}

// fetchRunsCmd returns a tea.Cmd that fetches the run listing.
func (m Model) fetchRunsCmd() tea.Cmd {
	ds := m.ds
	return func() tea.Msg {
		runs, err := ds.fetchRuns(context.Background())
		return runsMsg{runs: runs, err: err}
	}
}

// loadRunCmd returns a tea.Cmd that loads one run's summary from its
// persisted report.
func (m Model) loadRunCmd(rec results.RunRecord) tea.Cmd {
	ds := m.ds
	return func() tea.Msg {
		summary, err := ds.loadRun(rec)
		return runDetailMsg{record: rec, summary: summary, err: err}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.runsTable.SetWidth(msg.Width)
		if h := msg.Height - 6; h > 3 {
			m.runsTable.SetHeight(h)
		}

	case runsMsg:
		m.loading = false
		m.fetchErr = msg.err
		if msg.err == nil {
			m.records = msg.runs
			m.runsTable.SetRows(runRows(msg.runs))
			m.lastRefresh = time.Now()
		}

	case runDetailMsg:
		dm := newDetailModel(msg.record, msg.summary, msg.err)
		m.detailModel = &dm
		m.activeView = DetailView

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case tickMsg:
		m.loading = true
		return m, tea.Batch(m.fetchRunsCmd(), m.spinner.Tick, tickCmd())

	case fsChangeMsg:
		// A run just wrote its reports; refresh now and keep watching.
		m.loading = true
		return m, tea.Batch(m.fetchRunsCmd(), m.spinner.Tick, waitForChange(m.watcher))
	}

	return m, nil
}

// handleKeyPress processes keyboard input and returns the updated
// model with an optional command.
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	// Global keys work in every view.
	if key == "ctrl+c" || key == "q" {
		return m, tea.Quit
	}

	switch m.activeView {
	case DetailView:
		return m.handleDetailViewKeys(key)
	default: // RunsView
		return m.handleRunsViewKeys(key, msg)
	}
}

// handleDetailViewKeys processes keyboard input in DetailView.
func (m Model) handleDetailViewKeys(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "esc", "backspace":
		m.activeView = RunsView
		m.detailModel = nil
	case "tab":
		if m.detailModel != nil {
			*m.detailModel = m.detailModel.nextTab()
		}
	case "shift+tab":
		if m.detailModel != nil {
			*m.detailModel = m.detailModel.prevTab()
		}
	}
	return m, nil
}

// handleRunsViewKeys processes keyboard input in RunsView. Unhandled
// keys go to the table, which owns cursor movement.
func (m Model) handleRunsViewKeys(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case "enter":
		if rec, ok := m.selectedRun(); ok {
			return m, m.loadRunCmd(rec)
		}
		return m, nil
	case "r":
		m.loading = true
		return m, tea.Batch(m.fetchRunsCmd(), m.spinner.Tick)
	}

	var cmd tea.Cmd
	m.runsTable, cmd = m.runsTable.Update(msg)
	return m, cmd
}

// selectedRun returns the record under the table cursor.
func (m Model) selectedRun() (results.RunRecord, bool) {
	idx := m.runsTable.Cursor()
	if idx < 0 || idx >= len(m.records) {
		return results.RunRecord{}, false
	}
	return m.records[idx], true
}

// View implements tea.Model.
func (m Model) View() string {
	statusBar := m.renderStatusBar()

	switch m.activeView {
	case DetailView:
		if m.detailModel != nil {
			return statusBar + "\n\n" + m.detailModel.View() + "\n\n" + m.renderHelp()
		}
		return statusBar + "\n\n" + m.renderRunsView() + "\n" + m.renderHelp()
	default:
		return statusBar + "\n\n" + m.renderRunsView() + "\n" + m.renderHelp()
	}
}

// renderRunsView renders the table, or a hint when history is empty or
// unreadable.
func (m Model) renderRunsView() string {
	theme := DefaultTheme()

	if m.fetchErr != nil {
		errorStyle := lipgloss.NewStyle().Foreground(theme.Error)
		return errorStyle.Render("Could not read run history: " + m.fetchErr.Error())
	}
	if len(m.records) == 0 {
		dimStyle := lipgloss.NewStyle().Foreground(theme.Muted).Italic(true)
		return dimStyle.Render("No runs recorded yet. Start one with: par run <prompt>")
	}
	return m.runsTable.View()
}

// renderStatusBar renders run totals, the refresh mode, and the
// loading spinner.
func (m Model) renderStatusBar() string {
	theme := DefaultTheme()

	var ok, failed int
	for _, rec := range m.records {
		ok += rec.Successful
		failed += rec.Failed + rec.TimedOut + rec.Cancelled
	}

	title := lipgloss.NewStyle().Bold(true).Foreground(theme.Primary).Render("par runs")

	mode := "watching"
	if m.watcher == nil {
		mode = "polling"
	}

	refresh := "never"
	if !m.lastRefresh.IsZero() {
		refresh = m.lastRefresh.Format("15:04:05")
	}

	bar := lipgloss.JoinHorizontal(
		lipgloss.Left,
		title,
		lipgloss.NewStyle().Render(fmt.Sprintf(" | Runs: %d", len(m.records))),
		lipgloss.NewStyle().Render(" | Jobs OK: "),
		lipgloss.NewStyle().Foreground(theme.Success).Render(fmt.Sprintf("%d", ok)),
		lipgloss.NewStyle().Render(" | Not OK: "),
		lipgloss.NewStyle().Foreground(theme.Error).Render(fmt.Sprintf("%d", failed)),
		lipgloss.NewStyle().Foreground(theme.Muted).Render(fmt.Sprintf(" | %s, refreshed %s", mode, refresh)),
	)
	if m.loading {
		bar += " " + m.spinner.View()
	}
	return bar
}

// renderHelp renders the key hints for the active view.
func (m Model) renderHelp() string {
	theme := DefaultTheme()
	helpStyle := lipgloss.NewStyle().Foreground(theme.Muted)

	if m.activeView == DetailView {
		return helpStyle.Render("tab: switch tab · esc: back · q: quit")
	}
	return helpStyle.Render("enter: view run · r: refresh · q: quit")
}
