package results //nolint:testpackage // shares the summary fixture across test files

import (
	"testing"
	"time"

	"par/pkg/job"
)

var aggBase = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

// mkResult builds a terminal result starting at aggBase+offset.
func mkResult(label string, status job.Status, offset, dur time.Duration) job.Result {
	start := aggBase.Add(offset)
	return job.Result{
		JobID:         "job-" + label,
		WorktreeLabel: label,
		Status:        status,
		StartTime:     start,
		EndTime:       start.Add(dur),
		Duration:      dur,
	}
}

// TestAggregate_PartitionAndSpan verifies the status partition
// invariant and that the run duration is the span of the overlapping
// jobs, not the sum.
func TestAggregate_PartitionAndSpan(t *testing.T) {
	results := []job.Result{
		mkResult("a", job.StatusSuccess, 0, 10*time.Second),
		mkResult("b", job.StatusSuccess, 1*time.Second, 30*time.Second),
		mkResult("c", job.StatusFailed, 2*time.Second, 5*time.Second),
		mkResult("d", job.StatusTimeout, 0, 60*time.Second),
		mkResult("e", job.StatusCancelled, 3*time.Second, 1*time.Second),
	}

	s := Aggregate("plan-1", results)

	if s.PlanID != "plan-1" {
		t.Errorf("plan id: got %q", s.PlanID)
	}
	if s.TotalJobs != 5 {
		t.Fatalf("total: got %d, want 5", s.TotalJobs)
	}
	if got := s.Successful + s.Failed + s.TimedOut + s.Cancelled; got != s.TotalJobs {
		t.Errorf("partition broken: %d+%d+%d+%d != %d", s.Successful, s.Failed, s.TimedOut, s.Cancelled, s.TotalJobs)
	}
	if s.Successful != 2 || s.Failed != 1 || s.TimedOut != 1 || s.Cancelled != 1 {
		t.Errorf("counts: %d/%d/%d/%d", s.Successful, s.Failed, s.TimedOut, s.Cancelled)
	}

	if !s.StartTime.Equal(aggBase) {
		t.Errorf("start: got %s, want %s", s.StartTime, aggBase)
	}
	wantEnd := aggBase.Add(60 * time.Second)
	if !s.EndTime.Equal(wantEnd) {
		t.Errorf("end: got %s, want %s", s.EndTime, wantEnd)
	}
	if s.Duration != 60*time.Second {
		t.Errorf("span: got %s, want 60s (sum of durations is 106s)", s.Duration)
	}
}

// TestAggregate_Empty verifies that zero results yield an empty
// summary with zeroed metrics, not an error or a panic.
func TestAggregate_Empty(t *testing.T) {
	s := Aggregate("plan-empty", nil)

	if s.TotalJobs != 0 || s.Duration != 0 {
		t.Errorf("empty summary not zeroed: %+v", s)
	}
	if s.SuccessRate() != 0 {
		t.Errorf("success rate: got %f, want 0", s.SuccessRate())
	}
	if s.AverageDuration() != 0 {
		t.Errorf("average duration: got %s, want 0", s.AverageDuration())
	}
	if s.Slowest() != nil || s.Fastest() != nil {
		t.Error("extremes of an empty run must be nil")
	}
}

// TestAggregate_Idempotent verifies that aggregating the same result
// list twice yields identical counts and span.
func TestAggregate_Idempotent(t *testing.T) {
	results := []job.Result{
		mkResult("a", job.StatusSuccess, 0, 5*time.Second),
		mkResult("b", job.StatusFailed, 1*time.Second, 2*time.Second),
	}

	first := Aggregate("p", results)
	second := Aggregate("p", results)

	if first.Successful != second.Successful || first.Failed != second.Failed ||
		first.TimedOut != second.TimedOut || first.Cancelled != second.Cancelled {
		t.Errorf("counts differ: %+v vs %+v", first, second)
	}
	if first.Duration != second.Duration || !first.StartTime.Equal(second.StartTime) || !first.EndTime.Equal(second.EndTime) {
		t.Errorf("span differs: %s/%s vs %s/%s", first.StartTime, first.EndTime, second.StartTime, second.EndTime)
	}
}

// TestSummary_DerivedMetrics verifies success rate, mean duration, and
// the first-encountered tie rule for the extremes.
func TestSummary_DerivedMetrics(t *testing.T) {
	s := Aggregate("p", []job.Result{
		mkResult("fast", job.StatusSuccess, 0, 2*time.Second),
		mkResult("slow", job.StatusSuccess, 0, 10*time.Second),
		mkResult("slow-tie", job.StatusSuccess, 0, 10*time.Second),
		mkResult("bad", job.StatusFailed, 0, 6*time.Second),
	})

	if got := s.SuccessRate(); got != 0.75 {
		t.Errorf("success rate: got %f, want 0.75", got)
	}
	if got := s.AverageDuration(); got != 7*time.Second {
		t.Errorf("average: got %s, want 7s", got)
	}
	if got := s.Fastest(); got.WorktreeLabel != "fast" {
		t.Errorf("fastest: got %s", got.WorktreeLabel)
	}
	if got := s.Slowest(); got.WorktreeLabel != "slow" {
		t.Errorf("slowest tie must pick first encountered: got %s", got.WorktreeLabel)
	}
}

// TestSummary_FailedResults verifies the non-success listing keeps
// arrival order and excludes successes.
func TestSummary_FailedResults(t *testing.T) {
	s := Aggregate("p", []job.Result{
		mkResult("ok", job.StatusSuccess, 0, time.Second),
		mkResult("t", job.StatusTimeout, 0, time.Second),
		mkResult("f", job.StatusFailed, 0, time.Second),
		mkResult("c", job.StatusCancelled, 0, time.Second),
	})

	failed := s.FailedResults()
	if len(failed) != 3 {
		t.Fatalf("got %d failed results, want 3", len(failed))
	}
	for i, want := range []string{"t", "f", "c"} {
		if failed[i].WorktreeLabel != want {
			t.Errorf("failed[%d]: got %s, want %s", i, failed[i].WorktreeLabel, want)
		}
	}
	if !s.HasFailures() {
		t.Error("HasFailures: got false")
	}
}
