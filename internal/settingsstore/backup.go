package settingsstore

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/bookshelf/internal/entities"
)

// BackupConfig represents the effective configuration for scheduled backups
type BackupConfig struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule"`
	Dir      string `json:"dir"`
}

// BackupConfigInfo includes source information for each field
type BackupConfigInfo struct {
	Enabled       bool   `json:"enabled"`
	EnabledSource Source `json:"enabled_source"`

	Schedule            string `json:"schedule"`
	ScheduleSource      Source `json:"schedule_source"`
	ScheduleDescription string `json:"schedule_description"`

	Dir       string `json:"dir"`
	DirSource Source `json:"dir_source"`
}

// BackupStatus represents the outcome of the last backup run
type BackupStatus struct {
	LastAt  *time.Time `json:"last_at,omitempty"`
	Status  string     `json:"status,omitempty"`  // "success", "failed", ""
	Message string     `json:"message,omitempty"` // Error message or file path
}

const (
	BackupStatusSuccess = "success"
	BackupStatusFailed  = "failed"
)

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true, true
	case "false", "0", "no", "off":
		return false, true
	}
	return false, false
}

func parseSchedule(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, ValidateCronSchedule(s) == nil
}

func parseDir(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != ""
}

func (s *SettingsStore) BackupConfigInfo() BackupConfigInfo {
	enabled, enabledSource := resolve(s, entities.SettingKeyBackupEnabled, EnvBackupEnabled,
		strconv.FormatBool(s.defaults.BackupEnabled), parseBool)
	schedule, scheduleSource := resolve(s, entities.SettingKeyBackupSchedule, EnvBackupSchedule,
		s.defaults.BackupSchedule, parseSchedule)
	dir, dirSource := resolve(s, entities.SettingKeyBackupDir, EnvBackupDir, s.defaults.BackupDir, parseDir)

	return BackupConfigInfo{
		Enabled:             enabled,
		EnabledSource:       enabledSource,
		Schedule:            schedule,
		ScheduleSource:      scheduleSource,
		ScheduleDescription: CronDescription(schedule),
		Dir:                 dir,
		DirSource:           dirSource,
	}
}

// BackupConfig returns the effective configuration
func (s *SettingsStore) BackupConfig() BackupConfig {
	info := s.BackupConfigInfo()
	return BackupConfig{Enabled: info.Enabled, Schedule: info.Schedule, Dir: info.Dir}
}

func (s *SettingsStore) SetBackupEnabled(enabled bool) error {
	return s.db.SetSetting(entities.SettingKeyBackupEnabled, strconv.FormatBool(enabled))
}

// SetBackupSchedule saves a five-field cron schedule.
func (s *SettingsStore) SetBackupSchedule(schedule string) error {
	schedule = strings.TrimSpace(schedule)
	if err := ValidateCronSchedule(schedule); err != nil {
		return entities.NewValidationError("backup_schedule", fmt.Sprintf("invalid cron schedule: %v", err))
	}
	return s.db.SetSetting(entities.SettingKeyBackupSchedule, schedule)
}

func (s *SettingsStore) SetBackupDir(dir string) error {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return entities.NewValidationError("backup_dir", "must not be empty")
	}
	return s.db.SetSetting(entities.SettingKeyBackupDir, dir)
}

// BackupStatus returns the last backup status
func (s *SettingsStore) BackupStatus() BackupStatus {
	status := BackupStatus{}

	if setting, err := s.db.GetSetting(entities.SettingKeyBackupLastAt); err == nil && setting.Value != "" {
		if ts, err := time.Parse(time.RFC3339, setting.Value); err == nil {
			status.LastAt = &ts
		}
	}
	if setting, err := s.db.GetSetting(entities.SettingKeyBackupLastStatus); err == nil {
		status.Status = setting.Value
	}
	if setting, err := s.db.GetSetting(entities.SettingKeyBackupLastMessage); err == nil {
		status.Message = setting.Value
	}

	return status
}

// SetBackupStatus records the outcome of a backup run
func (s *SettingsStore) SetBackupStatus(status, message string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	if err := s.db.SetSetting(entities.SettingKeyBackupLastAt, now); err != nil {
		return err
	}
	if err := s.db.SetSetting(entities.SettingKeyBackupLastStatus, status); err != nil {
		return err
	}
	return s.db.SetSetting(entities.SettingKeyBackupLastMessage, message)
}

// ClearBackupSettings clears all database overrides, reverting to env/default
func (s *SettingsStore) ClearBackupSettings() error {
	return s.clear(
		entities.SettingKeyBackupEnabled,
		entities.SettingKeyBackupSchedule,
		entities.SettingKeyBackupDir,
	)
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateCronSchedule validates a cron schedule string
func ValidateCronSchedule(schedule string) error {
	_, err := cronParser.Parse(schedule)
	return err
}

// CronDescription returns a human-readable description of a cron schedule
func CronDescription(schedule string) string {
	switch schedule {
	case "0 * * * *":
		return "Every hour at :00"
	case "0 */6 * * *":
		return "Every 6 hours"
	case "0 0 * * *":
		return "Daily at midnight"
	case "0 3 * * *":
		return "Daily at 03:00"
	case "0 0 * * 0":
		return "Weekly on Sunday at midnight"
	default:
		return "Custom schedule: " + schedule
	}
}

// NextRunTime calculates when the schedule fires next after from
func NextRunTime(schedule string, from time.Time) (*time.Time, error) {
	sched, err := cronParser.Parse(schedule)
	if err != nil {
		return nil, err
	}
	next := sched.Next(from)
	return &next, nil
}
