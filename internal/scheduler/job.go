package scheduler

import (
	"context"
	"fmt"
	"time"
)

// historySize is the number of runs kept per job
const historySize = 100

// Job is a periodic study or snapshot task
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만 정의
type Job interface {
	Name() string

	// Run executes the job once and reports what it produced
	Run(ctx context.Context) (Outcome, error)

	// Schedule returns a standard five-field cron expression,
	// e.g. "0 6 1 * *" for monthly studies
	Schedule() string
}

// Outcome is what a successful run reports: the study run id and its
// transition count, or the as-of date and bond count of a snapshot
type Outcome struct {
	RunID       string `json:"run_id,omitempty"`
	AsOf        string `json:"as_of,omitempty"`
	Bonds       int    `json:"bonds"`
	Transitions int    `json:"transitions,omitempty"`
	Files       int    `json:"files,omitempty"`
}

// String renders the outcome for CLI listings
func (o Outcome) String() string {
	switch {
	case o.RunID != "":
		return fmt.Sprintf("run %s (%d transitions, %d bonds)", o.RunID, o.Transitions, o.Bonds)
	case o.AsOf != "":
		return fmt.Sprintf("as of %s (%d bonds)", o.AsOf, o.Bonds)
	default:
		return "-"
	}
}

// JobResult is one execution of a job, retries included
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Outcome   Outcome       `json:"outcome"`
	Error     string        `json:"error,omitempty"`
}

// JobHistory keeps the latest results of one job
type JobHistory struct {
	Results []JobResult
}

// AddResult appends a result, dropping the oldest beyond historySize
func (h *JobHistory) AddResult(result JobResult) {
	h.Results = append(h.Results, result)
	if len(h.Results) > historySize {
		h.Results = h.Results[len(h.Results)-historySize:]
	}
}

// GetLatestResults returns the latest N results
func (h *JobHistory) GetLatestResults(n int) []JobResult {
	if n > len(h.Results) {
		n = len(h.Results)
	}
	if n == 0 {
		return []JobResult{}
	}
	return h.Results[len(h.Results)-n:]
}

// LastSuccess returns the most recent successful result
func (h *JobHistory) LastSuccess() (JobResult, bool) {
	for i := len(h.Results) - 1; i >= 0; i-- {
		if h.Results[i].Success {
			return h.Results[i], true
		}
	}
	return JobResult{}, false
}

// GetFailedResults returns all failed results
func (h *JobHistory) GetFailedResults() []JobResult {
	failed := make([]JobResult, 0)
	for _, result := range h.Results {
		if !result.Success {
			failed = append(failed, result)
		}
	}
	return failed
}

// GetSuccessRate returns the success rate (0.0 - 1.0)
func (h *JobHistory) GetSuccessRate() float64 {
	if len(h.Results) == 0 {
		return 0.0
	}

	successCount := 0
	for _, result := range h.Results {
		if result.Success {
			successCount++
		}
	}
	return float64(successCount) / float64(len(h.Results))
}
