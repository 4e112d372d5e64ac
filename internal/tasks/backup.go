package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
	"gorm.io/gorm"

	"github.com/mrlokans/bookshelf/internal/backup"
	"github.com/mrlokans/bookshelf/internal/settingsstore"
)

// BackupSettings resolves the backup directory and records run outcomes.
type BackupSettings interface {
	BackupConfig() settingsstore.BackupConfig
	SetBackupStatus(status, message string) error
}

// BackupTask writes a snapshot of the library database.
type BackupTask struct {
	// Dir overrides the configured backup directory when set.
	Dir string `json:"dir,omitempty"`
}

// Config returns the queue configuration for backup tasks.
func (t BackupTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "backup",
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     10 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   7 * 24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// RunBackup exports the database, prunes old snapshots beyond keep and
// records the outcome in the settings.
func RunBackup(ctx context.Context, db *gorm.DB, settings BackupSettings, dir string, keep int) (*backup.Info, error) {
	if dir == "" {
		dir = settings.BackupConfig().Dir
	}

	info, err := backup.Export(ctx, db, dir)
	if err != nil {
		_ = settings.SetBackupStatus(settingsstore.BackupStatusFailed, err.Error())
		return nil, err
	}

	if removed, err := backup.Prune(dir, keep); err != nil {
		log.Printf("Backup: failed to prune old snapshots in %s: %v", dir, err)
	} else if removed > 0 {
		log.Printf("Backup: pruned %d old snapshots", removed)
	}

	_ = settings.SetBackupStatus(settingsstore.BackupStatusSuccess, info.Path)
	return info, nil
}

// BackupProcessor creates a processor function for BackupTask.
func BackupProcessor(db *gorm.DB, settings BackupSettings, keep int) backlite.QueueProcessor[BackupTask] {
	return func(ctx context.Context, task BackupTask) error {
		if db == nil || settings == nil {
			return fmt.Errorf("backup not configured")
		}

		info, err := RunBackup(ctx, db, settings, task.Dir, keep)
		if err != nil {
			return fmt.Errorf("backup: %w", err)
		}

		log.Printf("[TASK] Backup %s written (%d bytes)", info.ID, info.Size)
		return nil
	}
}
