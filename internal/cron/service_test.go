package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropmart/dropmart-backend/pkg/logger"
	"github.com/dropmart/dropmart-backend/pkg/metrics"
)

type fakeLock struct {
	acquired bool
	releases int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.acquired {
		return false, nil
	}
	f.acquired = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.acquired = false
	f.releases++
	return nil
}

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func mustRegistry(t *testing.T, jobs ...Job) *Registry {
	t.Helper()
	registry, err := NewRegistry(jobs...)
	require.NoError(t, err)
	return registry
}

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	ok := &testJob{name: "success"}
	broken := &testJob{name: "fail", err: errors.New("boom")}
	lock := &fakeLock{}
	registry, err := NewRegistry(ok, broken)
	require.NoError(t, err)
	service, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(reg),
	})
	require.NoError(t, err)
	assert.Equal(t, defaultInterval, service.interval)

	require.NoError(t, service.runCycle(context.Background()))
	assert.Equal(t, 1, ok.runs)
	assert.Equal(t, 1, broken.runs)
	assert.Equal(t, 1, lock.releases)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	found := map[string]bool{}
	for _, mf := range mfs {
		found[mf.GetName()] = true
	}
	assert.True(t, found["dropmart_cron_job_success_total"])
	assert.True(t, found["dropmart_cron_job_failure_total"])
}

func TestServiceSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "job"}
	service, err := NewService(ServiceParams{Logger: logger.Nop(), Registry: mustRegistry(t, job), Lock: &fakeLock{acquired: true}})
	require.NoError(t, err)
	require.NoError(t, service.runCycle(context.Background()))
	assert.Zero(t, job.runs)
}

func TestServiceRunStopsOnCancel(t *testing.T) {
	job := &testJob{name: "job"}
	service, err := NewService(ServiceParams{Logger: logger.Nop(), Registry: mustRegistry(t, job), Lock: &fakeLock{}, Interval: time.Hour})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, service.Run(ctx), context.Canceled)
}

func TestNewServiceRequiresLock(t *testing.T) {
	_, err := NewService(ServiceParams{Logger: logger.Nop()})
	assert.Error(t, err)
}

func TestServiceRunJobByName(t *testing.T) {
	ttl := &testJob{name: "order-ttl"}
	other := &testJob{name: "outbox-retention"}
	lock := &fakeLock{}
	service, err := NewService(ServiceParams{Logger: logger.Nop(), Registry: mustRegistry(t, ttl, other), Lock: lock})
	require.NoError(t, err)

	require.NoError(t, service.RunJob(context.Background(), "order-ttl"))
	assert.Equal(t, 1, ttl.runs)
	assert.Zero(t, other.runs)
	assert.Equal(t, 1, lock.releases)

	assert.ErrorContains(t, service.RunJob(context.Background(), "nope"), "unknown cron job")

	lock.acquired = true
	assert.ErrorContains(t, service.RunJob(context.Background(), "order-ttl"), "lock held")
	assert.Equal(t, 1, ttl.runs)
}
