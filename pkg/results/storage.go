package results

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// runFilePrefix is the common prefix of all persisted report files.
const runFilePrefix = "par_results_"

// transcriptDirPrefix is the prefix of per-run transcript directories.
const transcriptDirPrefix = "outputs_"

// RunPrefix builds the shared base name for one run's report files,
// combining a wall-clock stamp with the first 8 characters of the
// session ID. Compute it once per run so the four reports and the
// transcript directory never disagree.
func RunPrefix(now time.Time, sessionID string) string {
	short := sessionID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("%s%s_%s", runFilePrefix, now.Format("20060102_150405"), short)
}

// Storage persists run reports under one output directory.
type Storage struct {
	outputDir string
}

// NewStorage creates a Storage rooted at outputDir. The directory is
// created lazily on first save.
func NewStorage(outputDir string) *Storage {
	return &Storage{outputDir: outputDir}
}

// Dir returns the output directory path.
func (s *Storage) Dir() string { return s.outputDir }

// SaveRun writes the four report files for a run: <prefix>.json,
// <prefix>.txt, <prefix>_detailed.txt, and <prefix>.csv. The summary
// is already fully computed in memory, so a write failure loses no
// execution data.
func (s *Storage) SaveRun(summary *Summary, prefix string) error {
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir %s: %w", s.outputDir, err)
	}

	reports := []struct {
		suffix   string
		renderer Renderer
	}{
		{".json", &JSONRenderer{}},
		{".txt", &ConsoleRenderer{}},
		{"_detailed.txt", &DetailedRenderer{}},
		{".csv", &CSVRenderer{}},
	}
	for _, rep := range reports {
		text, err := rep.renderer.Render(summary)
		if err != nil {
			return fmt.Errorf("render %s report: %w", rep.suffix, err)
		}
		path := filepath.Join(s.outputDir, prefix+rep.suffix)
		if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
			return fmt.Errorf("save %s report: %w", rep.suffix, err)
		}
	}
	return nil
}

// SaveTranscripts writes one file per job with captured output into
// the run's transcript directory, each with a header block followed by
// the raw output. Jobs with no output are skipped.
func (s *Storage) SaveTranscripts(summary *Summary, prefix string) error {
	dir := filepath.Join(s.outputDir, transcriptDirFor(prefix))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create transcript dir %s: %w", dir, err)
	}

	for _, res := range summary.Results {
		if res.Output == "" {
			continue
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Job ID: %s\n", res.JobID)
		fmt.Fprintf(&sb, "Worktree: %s\n", res.WorktreeLabel)
		fmt.Fprintf(&sb, "Status: %s\n", res.Status)
		fmt.Fprintf(&sb, "Duration: %s\n", res.Duration)
		fmt.Fprintf(&sb, "Start Time: %s\n", res.StartTime.Format(time.RFC3339))
		fmt.Fprintf(&sb, "End Time: %s\n", res.EndTime.Format(time.RFC3339))
		sb.WriteString("\n" + strings.Repeat("=", 50) + "\n\n")
		sb.WriteString(res.Output)

		name := sanitizeFilename(res.WorktreeLabel) + ".txt"
		if err := os.WriteFile(filepath.Join(dir, name), []byte(sb.String()), 0o644); err != nil {
			return fmt.Errorf("save transcript for %s: %w", res.WorktreeLabel, err)
		}
	}
	return nil
}

// ListRuns returns the saved summary file names, newest first.
func (s *Storage) ListRuns() ([]string, error) {
	entries, err := os.ReadDir(s.outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read output dir %s: %w", s.outputDir, err)
	}

	var runs []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, runFilePrefix) && filepath.Ext(name) == ".json" {
			runs = append(runs, name)
		}
	}
	// The fixed-width timestamp in the name makes lexicographic order
	// chronological.
	slices.Sort(runs)
	slices.Reverse(runs)
	return runs, nil
}

// LoadSummary reads one saved summary by file name.
func (s *Storage) LoadSummary(filename string) (*Summary, error) {
	path := filepath.Join(s.outputDir, filepath.Base(filename))
	data, err := os.ReadFile(path) //nolint:gosec // confined to the output dir
	if err != nil {
		return nil, fmt.Errorf("read summary %s: %w", filename, err)
	}
	var summary Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("parse summary %s: %w", filename, err)
	}
	return &summary, nil
}

// CleanOld removes report files and transcript directories whose
// modification time is older than maxAge. Returns how many entries
// were removed; individual removal failures are skipped.
func (s *Storage) CleanOld(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read output dir %s: %w", s.outputDir, err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, runFilePrefix) && !strings.HasPrefix(name, transcriptDirPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.outputDir, name)); err == nil {
			removed++
		}
	}
	return removed, nil
}

// DeleteRun removes every file belonging to one run: the four reports
// and the transcript directory.
func (s *Storage) DeleteRun(summaryFilename string) error {
	prefix := strings.TrimSuffix(filepath.Base(summaryFilename), ".json")
	if !strings.HasPrefix(prefix, runFilePrefix) {
		return fmt.Errorf("not a run summary file: %s", summaryFilename)
	}

	for _, suffix := range []string{".json", ".txt", "_detailed.txt", ".csv"} {
		path := filepath.Join(s.outputDir, prefix+suffix)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", prefix+suffix, err)
		}
	}
	dir := filepath.Join(s.outputDir, transcriptDirFor(prefix))
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove transcripts %s: %w", dir, err)
	}
	return nil
}

// transcriptDirFor maps a run prefix to its transcript directory name.
func transcriptDirFor(prefix string) string {
	return strings.Replace(prefix, runFilePrefix, transcriptDirPrefix, 1)
}

// sanitizeFilename replaces characters that are unsafe in file names.
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
		"\"", "_", "<", "_", ">", "_", "|", "_",
	)
	return replacer.Replace(name)
}
