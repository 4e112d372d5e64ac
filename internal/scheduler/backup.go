package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/bookshelf/internal/settingsstore"
)

// BackupConfigSource provides the effective backup settings.
type BackupConfigSource interface {
	BackupConfig() settingsstore.BackupConfig
}

// Job performs (or enqueues) one backup run.
type Job func(ctx context.Context) error

// BackupScheduler triggers periodic backups on a cron schedule.
type BackupScheduler struct {
	settings BackupConfigSource
	job      Job

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewBackupScheduler creates a new scheduler instance
func NewBackupScheduler(settings BackupConfigSource, job Job) *BackupScheduler {
	return &BackupScheduler{
		settings: settings,
		job:      job,
		cron:     newCron(),
	}
}

func newCron() *cron.Cron {
	return cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)))
}

// Start begins the scheduler if backups are enabled
func (s *BackupScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	config := s.settings.BackupConfig()

	if !config.Enabled {
		log.Printf("Backup scheduler: disabled")
		return nil
	}

	if err := settingsstore.ValidateCronSchedule(config.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", config.Schedule, err)
	}

	runCtx, cancel := context.WithCancel(ctx)

	entryID, err := s.cron.AddFunc(config.Schedule, func() { s.run(runCtx) })
	if err != nil {
		cancel()
		return fmt.Errorf("failed to schedule backup job: %w", err)
	}
	s.entryID = entryID
	s.cancelFunc = cancel

	s.cron.Start()
	s.isRunning = true

	nextRun, _ := settingsstore.NextRunTime(config.Schedule, time.Now())
	log.Printf("Backup scheduler: started with schedule '%s' (%s). Next run: %v",
		config.Schedule,
		settingsstore.CronDescription(config.Schedule),
		nextRun)

	// Stop when the parent context ends; a Reschedule only cancels runCtx.
	go func() {
		<-runCtx.Done()
		if ctx.Err() != nil {
			s.Stop()
		}
	}()

	return nil
}

// Stop gracefully stops the scheduler
func (s *BackupScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	// Stop accepting new jobs and wait for running jobs to complete
	ctx := s.cron.Stop()
	<-ctx.Done()

	s.cron.Remove(s.entryID)
	s.isRunning = false
	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}

	log.Printf("Backup scheduler: stopped")
}

// Reschedule updates the schedule (call after settings change)
func (s *BackupScheduler) Reschedule(ctx context.Context) error {
	s.Stop()

	s.mu.Lock()
	s.cron = newCron()
	s.mu.Unlock()

	return s.Start(ctx)
}

// IsRunning returns whether the scheduler is active
func (s *BackupScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRunTime returns when the next backup will occur
func (s *BackupScheduler) NextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

func (s *BackupScheduler) run(ctx context.Context) {
	if !s.settings.BackupConfig().Enabled {
		log.Printf("Backup scheduler: skipped (disabled)")
		return
	}

	log.Printf("Backup scheduler: starting backup")
	if err := s.job(ctx); err != nil {
		log.Printf("Backup scheduler: backup failed: %v", err)
	}
}
