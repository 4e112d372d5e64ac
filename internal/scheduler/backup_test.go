package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookshelf/internal/settingsstore"
)

type fakeSettings struct {
	mu  sync.Mutex
	cfg settingsstore.BackupConfig
}

func (f *fakeSettings) BackupConfig() settingsstore.BackupConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cfg
}

func (f *fakeSettings) set(cfg settingsstore.BackupConfig) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cfg = cfg
}

type countingJob struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (j *countingJob) run(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls++
	return j.err
}

func (j *countingJob) count() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.calls
}

func TestBackupScheduler_Disabled(t *testing.T) {
	s := NewBackupScheduler(&fakeSettings{cfg: settingsstore.BackupConfig{Schedule: "0 3 * * *"}}, (&countingJob{}).run)

	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
	assert.Nil(t, s.NextRunTime())
}

func TestBackupScheduler_InvalidSchedule(t *testing.T) {
	s := NewBackupScheduler(&fakeSettings{cfg: settingsstore.BackupConfig{Enabled: true, Schedule: "nope"}}, (&countingJob{}).run)

	assert.Error(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
}

func TestBackupScheduler_StartStop(t *testing.T) {
	settings := &fakeSettings{cfg: settingsstore.BackupConfig{Enabled: true, Schedule: "0 3 * * *"}}
	s := NewBackupScheduler(settings, (&countingJob{}).run)

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	require.NoError(t, s.Start(context.Background()), "second start is a no-op")

	next := s.NextRunTime()
	require.NotNil(t, next)
	assert.Equal(t, 3, next.Hour())
	assert.Equal(t, 0, next.Minute())

	s.Stop()
	assert.False(t, s.IsRunning())
	s.Stop()
}

func TestBackupScheduler_Reschedule(t *testing.T) {
	settings := &fakeSettings{cfg: settingsstore.BackupConfig{Enabled: true, Schedule: "0 3 * * *"}}
	s := NewBackupScheduler(settings, (&countingJob{}).run)
	ctx := context.Background()

	require.NoError(t, s.Start(ctx))

	settings.set(settingsstore.BackupConfig{Enabled: true, Schedule: "30 4 * * *"})
	require.NoError(t, s.Reschedule(ctx))
	require.True(t, s.IsRunning())

	next := s.NextRunTime()
	require.NotNil(t, next)
	assert.Equal(t, 4, next.Hour())
	assert.Equal(t, 30, next.Minute())

	// The monitor of the first run must not stop the rescheduled one.
	time.Sleep(50 * time.Millisecond)
	assert.True(t, s.IsRunning())

	settings.set(settingsstore.BackupConfig{Enabled: false, Schedule: "30 4 * * *"})
	require.NoError(t, s.Reschedule(ctx))
	assert.False(t, s.IsRunning())
}

func TestBackupScheduler_StopsWithContext(t *testing.T) {
	settings := &fakeSettings{cfg: settingsstore.BackupConfig{Enabled: true, Schedule: "0 3 * * *"}}
	s := NewBackupScheduler(settings, (&countingJob{}).run)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()

	assert.Eventually(t, func() bool { return !s.IsRunning() }, 2*time.Second, 10*time.Millisecond)
}

func TestBackupScheduler_Run(t *testing.T) {
	settings := &fakeSettings{cfg: settingsstore.BackupConfig{Enabled: true, Schedule: "0 3 * * *"}}
	job := &countingJob{}
	s := NewBackupScheduler(settings, job.run)

	s.run(context.Background())
	assert.Equal(t, 1, job.count())

	job.err = errors.New("disk full")
	s.run(context.Background())
	assert.Equal(t, 2, job.count(), "failures are logged, not retried")

	settings.set(settingsstore.BackupConfig{Enabled: false})
	s.run(context.Background())
	assert.Equal(t, 2, job.count(), "disabled settings skip the run")
}
