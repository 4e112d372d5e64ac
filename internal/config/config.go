package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Covers
		Backup
		Stats
		Library
		Metadata
		Tasks
	}

	HTTP struct {
		Port int32
		Host string
	}

	Global struct {
		ShutdownTimeoutInSeconds int
	}

	Database struct {
		Path   string
		LogSQL bool // Log every SQL statement (gorm Info level)
	}

	Covers struct {
		Dir             string
		DownloadTimeout time.Duration
	}

	Backup struct {
		Enabled  bool
		Schedule string // Cron format: "0 3 * * *" = nightly at 03:00
		Dir      string
		Keep     int // Snapshots kept after each scheduled run
	}

	Stats struct {
		TopN          int
		StreakMaxDays int
		WeekStart     time.Weekday
	}

	Library struct {
		Locale string // BCP 47 tag used for title collation
	}

	Metadata struct {
		Enabled      bool
		BaseURL      string
		CoversURL    string
		UserAgent    string
		Timeout      time.Duration
		RateInterval time.Duration // Minimum delay between OpenLibrary requests
		SearchLimit  int
	}

	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
)

// loadDotEnv reads an optional .env file. Variables already present in the
// environment win.
func loadDotEnv() {
	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to load %s: %v", path, err)
	}
}

func parseWeekday(s string) time.Weekday {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sunday", "sun", "0":
		return time.Sunday
	case "saturday", "sat", "6":
		return time.Saturday
	}
	return time.Monday
}

func NewConfig() *Config {
	loadDotEnv()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("log_sql", false)

	// Covers
	v.SetDefault("covers_dir", DefaultCoversDir)
	v.SetDefault("cover_download_timeout", "30s")

	// Backups (overridable at runtime through the settings table)
	v.SetDefault("backup_enabled", false)
	v.SetDefault("backup_schedule", DefaultBackupSchedule)
	v.SetDefault("backup_dir", DefaultBackupDir)
	v.SetDefault("backup_keep", 10)

	// Statistics and library view
	v.SetDefault("stats_top_n", 10)
	v.SetDefault("stats_streak_max_days", 3650)
	v.SetDefault("stats_week_start", "monday")
	v.SetDefault("library_locale", "en")

	// OpenLibrary metadata lookup
	v.SetDefault("metadata_enabled", true)
	v.SetDefault("openlibrary_url", "https://openlibrary.org")
	v.SetDefault("openlibrary_covers_url", "https://covers.openlibrary.org")
	v.SetDefault("metadata_user_agent", "")
	v.SetDefault("metadata_timeout", "10s")
	v.SetDefault("metadata_rate_interval", "1s")
	v.SetDefault("metadata_search_limit", 10)

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path:   v.GetString("DATABASE_PATH"),
			LogSQL: v.GetBool("LOG_SQL"),
		},
		Covers: Covers{
			Dir:             v.GetString("COVERS_DIR"),
			DownloadTimeout: v.GetDuration("COVER_DOWNLOAD_TIMEOUT"),
		},
		Backup: Backup{
			Enabled:  v.GetBool("BACKUP_ENABLED"),
			Schedule: v.GetString("BACKUP_SCHEDULE"),
			Dir:      v.GetString("BACKUP_DIR"),
			Keep:     v.GetInt("BACKUP_KEEP"),
		},
		Stats: Stats{
			TopN:          v.GetInt("STATS_TOP_N"),
			StreakMaxDays: v.GetInt("STATS_STREAK_MAX_DAYS"),
			WeekStart:     parseWeekday(v.GetString("STATS_WEEK_START")),
		},
		Library: Library{
			Locale: v.GetString("LIBRARY_LOCALE"),
		},
		Metadata: Metadata{
			Enabled:      v.GetBool("METADATA_ENABLED"),
			BaseURL:      v.GetString("OPENLIBRARY_URL"),
			CoversURL:    v.GetString("OPENLIBRARY_COVERS_URL"),
			UserAgent:    v.GetString("METADATA_USER_AGENT"),
			Timeout:      v.GetDuration("METADATA_TIMEOUT"),
			RateInterval: v.GetDuration("METADATA_RATE_INTERVAL"),
			SearchLimit:  v.GetInt("METADATA_SEARCH_LIMIT"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
	}
}
