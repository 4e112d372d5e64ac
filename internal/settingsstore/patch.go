package settingsstore

import (
	"strings"

	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/stats"
)

// Settings is the full settings view with sources.
type Settings struct {
	DefaultSort    SortInfo         `json:"default_sort"`
	StatsTimeframe TimeframeInfo    `json:"stats_timeframe"`
	Backup         BackupConfigInfo `json:"backup"`
	BackupStatus   BackupStatus     `json:"backup_status"`
}

func (s *SettingsStore) All() Settings {
	return Settings{
		DefaultSort:    s.DefaultSortInfo(),
		StatsTimeframe: s.StatsTimeframeInfo(),
		Backup:         s.BackupConfigInfo(),
		BackupStatus:   s.BackupStatus(),
	}
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	DefaultSort    *string `json:"default_sort"`
	DefaultOrder   *string `json:"default_order"`
	StatsTimeframe *string `json:"stats_timeframe"`
	BackupEnabled  *bool   `json:"backup_enabled"`
	BackupSchedule *string `json:"backup_schedule"`
	BackupDir      *string `json:"backup_dir"`
}

// Apply validates every field of p before writing any of them.
func (s *SettingsStore) Apply(p Patch) error {
	ve := &entities.ValidationError{}
	if p.DefaultSort != nil {
		if _, ok := parseSortKey(*p.DefaultSort); !ok {
			ve.Add("default_sort", "unknown sort key "+*p.DefaultSort)
		}
	}
	if p.DefaultOrder != nil {
		if _, ok := parseOrder(*p.DefaultOrder); !ok {
			ve.Add("default_order", "must be asc or desc")
		}
	}
	if p.StatsTimeframe != nil {
		if _, err := stats.ParseTimeframe(*p.StatsTimeframe); err != nil {
			ve.Add("stats_timeframe", "unknown timeframe "+*p.StatsTimeframe)
		}
	}
	if p.BackupSchedule != nil {
		if err := ValidateCronSchedule(strings.TrimSpace(*p.BackupSchedule)); err != nil {
			ve.Add("backup_schedule", "invalid cron schedule: "+err.Error())
		}
	}
	if p.BackupDir != nil && strings.TrimSpace(*p.BackupDir) == "" {
		ve.Add("backup_dir", "must not be empty")
	}
	if ve.HasErrors() {
		return ve
	}

	if p.DefaultSort != nil || p.DefaultOrder != nil {
		current := s.DefaultSortInfo()
		key, order := string(current.Key), current.Order
		if p.DefaultSort != nil {
			key = *p.DefaultSort
		}
		if p.DefaultOrder != nil {
			order = *p.DefaultOrder
		}
		if err := s.SetDefaultSort(key, order); err != nil {
			return err
		}
	}
	if p.StatsTimeframe != nil {
		if err := s.SetStatsTimeframe(*p.StatsTimeframe); err != nil {
			return err
		}
	}
	if p.BackupEnabled != nil {
		if err := s.SetBackupEnabled(*p.BackupEnabled); err != nil {
			return err
		}
	}
	if p.BackupSchedule != nil {
		if err := s.SetBackupSchedule(*p.BackupSchedule); err != nil {
			return err
		}
	}
	if p.BackupDir != nil {
		if err := s.SetBackupDir(*p.BackupDir); err != nil {
			return err
		}
	}
	return nil
}
