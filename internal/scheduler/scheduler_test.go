package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/acr/pkg/logger"
)

type stubJob struct {
	name     string
	schedule string
	failures int32 // number of leading runs that fail
	calls    atomic.Int32
}

func (j *stubJob) Name() string     { return j.name }
func (j *stubJob) Schedule() string { return j.schedule }

func (j *stubJob) Run(ctx context.Context) (Outcome, error) {
	n := j.calls.Add(1)
	if n <= j.failures {
		return Outcome{}, errors.New("feed not ready")
	}
	return Outcome{RunID: "run-" + j.name, Bonds: 2, Transitions: int(n)}, nil
}

func newTestScheduler(retries int) *Scheduler {
	return New(logger.Nop(), WithRetry(retries, time.Millisecond))
}

func TestAddJob(t *testing.T) {
	s := newTestScheduler(0)

	require.NoError(t, s.AddJob(&stubJob{name: "study_a", schedule: "0 6 1 * *"}))
	require.NoError(t, s.AddJob(&stubJob{name: "composite_snapshot", schedule: "@daily"}))
	assert.Equal(t, []string{"composite_snapshot", "study_a"}, s.GetAllJobs())

	err := s.AddJob(&stubJob{name: "study_a", schedule: "@daily"})
	assert.Error(t, err)
}

func TestAddJob_InvalidSchedule(t *testing.T) {
	s := newTestScheduler(0)

	// six-field specs are rejected by the standard parser
	err := s.AddJob(&stubJob{name: "bad", schedule: "0 0 6 1 * *"})
	assert.Error(t, err)
	assert.Empty(t, s.GetAllJobs())
}

func TestRunNow_RetriesUntilSuccess(t *testing.T) {
	s := newTestScheduler(3)
	job := &stubJob{name: "study_a", schedule: "@daily", failures: 2}
	require.NoError(t, s.AddJob(job))

	res, err := s.RunNow(context.Background(), "study_a")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, int32(3), job.calls.Load())
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, "run-study_a", res.Outcome.RunID)
	assert.Equal(t, 3, res.Outcome.Transitions)

	history, err := s.GetJobHistory("study_a")
	require.NoError(t, err)
	require.Len(t, history.Results, 1)
	assert.InDelta(t, 1.0, history.GetSuccessRate(), 1e-12)
}

func TestRunNow_FailsAfterRetries(t *testing.T) {
	s := newTestScheduler(1)
	job := &stubJob{name: "study_a", schedule: "@daily", failures: 10}
	require.NoError(t, s.AddJob(job))

	res, err := s.RunNow(context.Background(), "study_a")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "feed not ready", res.Error)
	assert.Equal(t, int32(2), job.calls.Load())
	assert.Empty(t, res.Outcome.RunID)

	stats := s.GetJobStats()["study_a"]
	assert.Equal(t, 1, stats.FailureCount)
	assert.NotNil(t, stats.LastFailure)
	assert.Nil(t, stats.LastSuccess)
	assert.Nil(t, stats.LastOutcome)
}

func TestJobStats_KeepLastSuccessfulOutcome(t *testing.T) {
	s := newTestScheduler(0)
	job := &stubJob{name: "study_a", schedule: "@daily"}
	require.NoError(t, s.AddJob(job))

	_, err := s.RunNow(context.Background(), "study_a")
	require.NoError(t, err)

	// every later run fails
	job.failures = 100
	_, err = s.RunNow(context.Background(), "study_a")
	require.NoError(t, err)

	stats := s.GetJobStats()["study_a"]
	assert.Equal(t, 2, stats.TotalRuns)
	require.NotNil(t, stats.LastOutcome)
	assert.Equal(t, "run-study_a", stats.LastOutcome.RunID)
	assert.NotNil(t, stats.LastSuccess)
	assert.NotNil(t, stats.LastFailure)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "run 7f3a (12 transitions, 40 bonds)", Outcome{RunID: "7f3a", Transitions: 12, Bonds: 40}.String())
	assert.Equal(t, "as of 2020-01-31 (40 bonds)", Outcome{AsOf: "2020-01-31", Bonds: 40}.String())
	assert.Equal(t, "-", Outcome{}.String())
}

func TestRunNow_CancelStopsRetries(t *testing.T) {
	s := New(logger.Nop(), WithRetry(5, time.Hour))
	job := &stubJob{name: "study_a", schedule: "@daily", failures: 10}
	require.NoError(t, s.AddJob(job))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := s.RunNow(ctx, "study_a")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, int32(1), job.calls.Load())
	assert.Equal(t, context.Canceled.Error(), res.Error)
}

func TestRemoveJob(t *testing.T) {
	s := newTestScheduler(0)
	require.NoError(t, s.AddJob(&stubJob{name: "study_a", schedule: "@daily"}))

	require.NoError(t, s.RemoveJob("study_a"))
	assert.Empty(t, s.GetAllJobs())
	assert.Error(t, s.RemoveJob("study_a"))

	_, err := s.RunNow(context.Background(), "study_a")
	assert.Error(t, err)
}

func TestNextRun(t *testing.T) {
	s := newTestScheduler(0)
	require.NoError(t, s.AddJob(&stubJob{name: "study_a", schedule: "@daily"}))

	s.Start()
	defer s.Stop()

	next, err := s.NextRun("study_a")
	require.NoError(t, err)
	assert.True(t, next.After(time.Now()))

	_, err = s.NextRun("missing")
	assert.Error(t, err)
}

func TestJobHistory_Trim(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < 120; i++ {
		h.AddResult(JobResult{Success: i%2 == 0})
	}
	assert.Len(t, h.Results, 100)
	assert.Len(t, h.GetLatestResults(5), 5)
	assert.Len(t, h.GetFailedResults(), 50)
	assert.InDelta(t, 0.5, h.GetSuccessRate(), 1e-12)

	last, ok := h.LastSuccess()
	assert.True(t, ok)
	assert.True(t, last.Success)

	_, ok = (&JobHistory{}).LastSuccess()
	assert.False(t, ok)
}
