package config

// Default paths for on-disk state
const (
	// DefaultDatabasePath is the default path for the library database
	DefaultDatabasePath = "./bookshelf.db"

	// DefaultCoversDir is where downloaded and uploaded covers are cached
	DefaultCoversDir = "./covers"

	// DefaultBackupDir receives database snapshots
	DefaultBackupDir = "./backups"

	// DefaultBackupSchedule runs a backup every night at 03:00
	DefaultBackupSchedule = "0 3 * * *"
)
