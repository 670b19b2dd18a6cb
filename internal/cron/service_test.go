package cron

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/angelmondragon/pushrelay-backend/pkg/logger"
	"github.com/angelmondragon/pushrelay-backend/pkg/metrics"
)

type fakeLock struct {
	held     bool
	released int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.released++
	return nil
}

type testJob struct {
	name     string
	err      error
	runs     int
	deadline bool
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(ctx context.Context) error {
	t.runs++
	_, t.deadline = ctx.Deadline()
	return t.err
}

func mustRegistry(t *testing.T, jobs ...Job) *Registry {
	t.Helper()
	registry, err := NewRegistry(jobs...)
	require.NoError(t, err)
	return registry
}

func TestRunOnceRunsEveryJobAndJoinsFailures(t *testing.T) {
	ok := &testJob{name: "ok"}
	bad := &testJob{name: "bad", err: errors.New("boom")}
	after := &testJob{name: "after"}
	lock := &fakeLock{}
	service, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: mustRegistry(t, ok, bad, after),
		Lock:     lock,
	})
	require.NoError(t, err)

	err = service.RunOnce(context.Background())
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 1)
	assert.EqualError(t, err, "bad: boom")
	assert.Equal(t, []int{1, 1, 1}, []int{ok.runs, bad.runs, after.runs})
	assert.Equal(t, 1, lock.released)
	assert.False(t, lock.held)
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: RetentionJobName}
	reg := prometheus.NewRegistry()
	service, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: mustRegistry(t, job),
		Lock:     &fakeLock{held: true},
		Metrics:  metrics.NewCronJobMetrics(reg),
	})
	require.NoError(t, err)

	require.NoError(t, service.RunOnce(context.Background()))
	assert.Zero(t, job.runs)
	count, err := testutil.GatherAndCount(reg, "cron_cycles_skipped_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRunOnceRecordsJobMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	service, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: mustRegistry(t, &testJob{name: "ok"}, &testJob{name: "bad", err: errors.New("boom")}),
		Lock:     &fakeLock{},
		Metrics:  metrics.NewCronJobMetrics(reg),
		Interval: time.Minute,
	})
	require.NoError(t, err)

	require.Error(t, service.RunOnce(context.Background()))
	count, err := testutil.GatherAndCount(reg, "cron_job_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	count, err = testutil.GatherAndCount(reg, "cron_job_last_success_timestamp_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestJobTimeoutSetsDeadline(t *testing.T) {
	bounded := &testJob{name: "bounded"}
	service, err := NewService(ServiceParams{
		Logger:     logger.Nop(),
		Registry:   mustRegistry(t, bounded),
		Lock:       &fakeLock{},
		JobTimeout: time.Minute,
	})
	require.NoError(t, err)
	require.NoError(t, service.RunOnce(context.Background()))
	assert.True(t, bounded.deadline)

	unbounded := &testJob{name: "unbounded"}
	service, err = NewService(ServiceParams{Logger: logger.Nop(), Registry: mustRegistry(t, unbounded), Lock: &fakeLock{}})
	require.NoError(t, err)
	require.NoError(t, service.RunOnce(context.Background()))
	assert.False(t, unbounded.deadline)
}

func TestRunStopsOnCancelAfterFirstCycle(t *testing.T) {
	var buf bytes.Buffer
	job := &testJob{name: "retention"}
	lock := &fakeLock{}
	service, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test", Output: &buf}),
		Registry: mustRegistry(t, job),
		Lock:     lock,
		Interval: time.Hour,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = service.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, job.runs)
	assert.Equal(t, 1, lock.released)
	assert.Contains(t, buf.String(), "cron.cycle_start")
}

func TestNewServiceValidation(t *testing.T) {
	_, err := NewService(ServiceParams{Logger: logger.Nop()})
	require.ErrorContains(t, err, "lock required")
	_, err = NewService(ServiceParams{Lock: &fakeLock{}})
	require.ErrorContains(t, err, "logger required")
	_, err = NewService(ServiceParams{Logger: logger.Nop(), Lock: &fakeLock{}, JobTimeout: -time.Second})
	require.Error(t, err)

	service, err := NewService(ServiceParams{Logger: logger.Nop(), Lock: &fakeLock{}})
	require.NoError(t, err)
	assert.Equal(t, defaultInterval, service.interval)
	require.NoError(t, service.RunOnce(context.Background()))
}
