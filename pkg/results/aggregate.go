// Package results turns the per-job results of a run into an
// aggregate summary and renders and persists that summary: console,
// detailed, JSON, and CSV reports plus per-job transcript files, with
// an optional sqlite run history.
package results

import (
	"time"

	"par/pkg/job"
)

// Summary is the aggregated outcome of one execution plan. Counts
// always partition the total: every result lands in exactly one
// bucket.
type Summary struct {
	PlanID     string        `json:"plan_id"`
	TotalJobs  int           `json:"total_jobs"`
	Successful int           `json:"successful"`
	Failed     int           `json:"failed"`
	TimedOut   int           `json:"timed_out"`
	Cancelled  int           `json:"cancelled"`
	Duration   time.Duration `json:"duration"`
	Results    []job.Result  `json:"results"`
	StartTime  time.Time     `json:"start_time"`
	EndTime    time.Time     `json:"end_time"`
}

// Aggregate folds a run's results into a Summary. Start and end are
// the min start and max end across results, and Duration is that span,
// not the sum of job durations, since jobs overlap. Aggregating the
// same results twice yields identical counts and span.
func Aggregate(planID string, results []job.Result) *Summary {
	s := &Summary{
		PlanID:    planID,
		TotalJobs: len(results),
		Results:   results,
	}
	if len(results) == 0 {
		now := time.Now()
		s.StartTime, s.EndTime = now, now
		return s
	}

	s.StartTime = results[0].StartTime
	s.EndTime = results[0].EndTime
	for _, r := range results {
		if r.StartTime.Before(s.StartTime) {
			s.StartTime = r.StartTime
		}
		if r.EndTime.After(s.EndTime) {
			s.EndTime = r.EndTime
		}

		switch r.Status {
		case job.StatusSuccess:
			s.Successful++
		case job.StatusTimeout:
			s.TimedOut++
		case job.StatusCancelled:
			s.Cancelled++
		case job.StatusFailed:
			s.Failed++
		default:
			// A result that never reached a proper terminal state
			// still has to land in a bucket.
			s.Failed++
		}
	}
	s.Duration = s.EndTime.Sub(s.StartTime)
	return s
}

// SuccessRate returns successful/total as a fraction in [0, 1], zero
// for an empty run.
func (s *Summary) SuccessRate() float64 {
	if s.TotalJobs == 0 {
		return 0
	}
	return float64(s.Successful) / float64(s.TotalJobs)
}

// HasFailures reports whether any job ended non-success.
func (s *Summary) HasFailures() bool {
	return s.Failed+s.TimedOut+s.Cancelled > 0
}

// FailedResults returns the results that ended non-success, in
// arrival order.
func (s *Summary) FailedResults() []job.Result {
	var failed []job.Result
	for _, r := range s.Results {
		if r.Status != job.StatusSuccess {
			failed = append(failed, r)
		}
	}
	return failed
}

// AverageDuration returns the arithmetic mean of job durations.
func (s *Summary) AverageDuration() time.Duration {
	if s.TotalJobs == 0 {
		return 0
	}
	var total time.Duration
	for _, r := range s.Results {
		total += r.Duration
	}
	return total / time.Duration(s.TotalJobs)
}

// Slowest returns the longest-running result, ties resolved by first
// encountered. Nil for an empty run.
func (s *Summary) Slowest() *job.Result {
	if len(s.Results) == 0 {
		return nil
	}
	slowest := &s.Results[0]
	for i := range s.Results[1:] {
		if s.Results[i+1].Duration > slowest.Duration {
			slowest = &s.Results[i+1]
		}
	}
	return slowest
}

// Fastest returns the shortest-running result, ties resolved by first
// encountered. Nil for an empty run.
func (s *Summary) Fastest() *job.Result {
	if len(s.Results) == 0 {
		return nil
	}
	fastest := &s.Results[0]
	for i := range s.Results[1:] {
		if s.Results[i+1].Duration < fastest.Duration {
			fastest = &s.Results[i+1]
		}
	}
	return fastest
}
