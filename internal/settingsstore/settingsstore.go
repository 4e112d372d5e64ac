// Package settingsstore resolves user-editable settings.
//
// Every value is looked up in the settings table first, then in the process
// environment, then falls back to a compiled-in default. Each getter has an
// *Info variant reporting where the value came from.
package settingsstore

import (
	"errors"
	"os"

	"github.com/mrlokans/bookshelf/internal/entities"
)

// Store is the persistence the settings store needs; settings.Repository
// satisfies it.
type Store interface {
	GetSetting(key string) (*entities.Setting, error)
	SetSetting(key, value string) error
	DeleteSetting(key string) error
}

type Source string

const (
	SourceDatabase    Source = "database"
	SourceEnvironment Source = "environment"
	SourceDefault     Source = "default"
)

// Environment variables consulted when the database has no value.
const (
	EnvDefaultSort    = "LIBRARY_DEFAULT_SORT"
	EnvDefaultOrder   = "LIBRARY_DEFAULT_ORDER"
	EnvStatsTimeframe = "STATS_DEFAULT_TIMEFRAME"
	EnvBackupEnabled  = "BACKUP_ENABLED"
	EnvBackupSchedule = "BACKUP_SCHEDULE"
	EnvBackupDir      = "BACKUP_DIR"
)

// Defaults are used when neither the database nor the environment has a value.
type Defaults struct {
	SortKey        string
	SortOrder      string
	StatsTimeframe string
	BackupEnabled  bool
	BackupSchedule string
	BackupDir      string
}

func DefaultDefaults() Defaults {
	return Defaults{
		SortKey:        "title",
		SortOrder:      "asc",
		StatsTimeframe: "allTime",
		BackupEnabled:  false,
		BackupSchedule: "0 3 * * *", // Daily at 03:00
		BackupDir:      "./backups",
	}
}

// Priority: database > environment > default
type SettingsStore struct {
	db       Store
	defaults Defaults
}

func New(db Store, defaults Defaults) *SettingsStore {
	def := DefaultDefaults()
	if defaults.SortKey == "" {
		defaults.SortKey = def.SortKey
	}
	if defaults.SortOrder == "" {
		defaults.SortOrder = def.SortOrder
	}
	if defaults.StatsTimeframe == "" {
		defaults.StatsTimeframe = def.StatsTimeframe
	}
	if defaults.BackupSchedule == "" {
		defaults.BackupSchedule = def.BackupSchedule
	}
	if defaults.BackupDir == "" {
		defaults.BackupDir = def.BackupDir
	}
	return &SettingsStore{db: db, defaults: defaults}
}

// candidate is one layer's raw value.
type candidate struct {
	value  string
	source Source
}

// candidates returns the non-empty raw values for key in priority order,
// ending with the default.
func (s *SettingsStore) candidates(key, env, def string) []candidate {
	var out []candidate
	if setting, err := s.db.GetSetting(key); err == nil && setting.Value != "" {
		out = append(out, candidate{setting.Value, SourceDatabase})
	}
	if v := os.Getenv(env); v != "" {
		out = append(out, candidate{v, SourceEnvironment})
	}
	return append(out, candidate{def, SourceDefault})
}

// resolve returns the first candidate accepted by parse. Invalid stored or
// environment values fall through to the next layer.
func resolve[T any](s *SettingsStore, key, env, def string, parse func(string) (T, bool)) (T, Source) {
	for _, c := range s.candidates(key, env, def) {
		if v, ok := parse(c.value); ok {
			return v, c.source
		}
	}
	var zero T
	return zero, SourceDefault
}

func (s *SettingsStore) clear(keys ...string) error {
	for _, key := range keys {
		if err := s.db.DeleteSetting(key); err != nil && !errors.Is(err, entities.ErrNotFound) {
			return err
		}
	}
	return nil
}
