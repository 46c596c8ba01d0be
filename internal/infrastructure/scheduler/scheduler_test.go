package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/inventory"
)

type recordingExecutor struct {
	mu       sync.Mutex
	jobs     []*Job
	err      error
	failOnce bool
	done     chan struct{}
}

func newRecordingExecutor(expected int) *recordingExecutor {
	return &recordingExecutor{done: make(chan struct{}, expected)}
}

func (e *recordingExecutor) Execute(_ context.Context, job *Job) error {
	e.mu.Lock()
	e.jobs = append(e.jobs, job)
	err := e.err
	if e.failOnce {
		e.err = nil
	}
	e.mu.Unlock()

	e.done <- struct{}{}
	return err
}

func (e *recordingExecutor) executed() []*Job {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Job(nil), e.jobs...)
}

func waitFor(t *testing.T, ch chan struct{}, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-ch:
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for execution %d of %d", i+1, n)
		}
	}
}

func testSchedulerConfig() SchedulerConfig {
	cfg := DefaultSchedulerConfig()
	cfg.MaxConcurrentJobs = 1
	cfg.RetryDelay = 10 * time.Millisecond
	return cfg
}

func TestSchedulerExecutesSubmittedJob(t *testing.T) {
	exec := newRecordingExecutor(1)
	s := NewScheduler(testSchedulerConfig(), exec, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop(context.Background()) }()

	job := NewSnapshotRebuildJob(time.Date(2026, 1, 15, 0, 30, 0, 0, time.UTC), 0)
	require.NoError(t, s.SubmitJob(job))

	waitFor(t, exec.done, 1)
	require.Len(t, exec.executed(), 1)
	assert.Equal(t, JobTypeSnapshotRebuild, exec.executed()[0].Type)
}

func TestSchedulerRetriesFailedJob(t *testing.T) {
	exec := newRecordingExecutor(4)
	exec.err = errors.New("transient")
	exec.failOnce = true
	s := NewScheduler(testSchedulerConfig(), exec, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop(context.Background()) }()

	job := NewDriftCheckJob(inventory.ScopeProd, 2)
	require.NoError(t, s.SubmitJob(job))

	// First attempt fails, retry succeeds
	waitFor(t, exec.done, 2)
	assert.Equal(t, 1, job.RetryCount)
}

func TestSchedulerSubmitWhenNotRunning(t *testing.T) {
	s := NewScheduler(testSchedulerConfig(), newRecordingExecutor(0), zap.NewNop())

	err := s.SubmitJob(NewDriftCheckJob(inventory.ScopeProd, 0))
	assert.ErrorIs(t, err, ErrSchedulerNotRunning)
}

func TestScheduleNightlyMaintenance(t *testing.T) {
	exec := newRecordingExecutor(3)
	s := NewScheduler(testSchedulerConfig(), exec, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop(context.Background()) }()

	require.NoError(t, s.ScheduleNightlyMaintenance())
	waitFor(t, exec.done, 3)

	jobs := exec.executed()
	require.Len(t, jobs, 3)

	var snapshots, drifts int
	scopes := map[inventory.Scope]bool{}
	for _, job := range jobs {
		switch job.Type {
		case JobTypeSnapshotRebuild:
			snapshots++
			assert.False(t, job.Cut.IsZero())
		case JobTypeDriftCheck:
			drifts++
			scopes[job.Scope] = true
		}
	}
	assert.Equal(t, 1, snapshots)
	assert.Equal(t, 2, drifts)
	assert.True(t, scopes[inventory.ScopeProd])
	assert.True(t, scopes[inventory.ScopeDrill])
}

func TestJobLifecycle(t *testing.T) {
	job := NewSnapshotRebuildJob(time.Now(), 2)
	assert.Equal(t, JobStatusPending, job.Status)

	job.Start()
	assert.Equal(t, JobStatusRunning, job.Status)
	assert.NotNil(t, job.StartedAt)

	job.Fail("boom")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "boom", job.Error)
	assert.True(t, job.ShouldRetry())

	job.ScheduleRetry(time.Minute)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, 1, job.RetryCount)
	assert.NotNil(t, job.NextRetryAt)
	assert.Empty(t, job.Error)

	job.Fail("boom again")
	job.ScheduleRetry(time.Minute)
	job.Fail("boom again")
	assert.False(t, job.ShouldRetry())

	job.Complete()
	assert.Equal(t, JobStatusSuccess, job.Status)
	assert.NotNil(t, job.CompletedAt)
}
