package http

import (
	"context"

	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/library"
	"github.com/mrlokans/bookshelf/internal/metadata"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Context bounds background work started from requests, such as
	// restarting the backup scheduler.
	Context context.Context

	// Application info
	Version string

	// Core dependencies
	Database *database.Database
	Books    BookStore
	PageLogs PageLogStore
	Tags     TagStore
	Stats    StatsService
	Engine   *library.Engine
	Settings SettingsService

	// Metadata lookup and enrichment (optional)
	Metadata metadata.Provider
	Enricher BookEnricher

	// Cover caching (optional)
	CoverCache CoverCache

	// Task queue (optional). Without one, work runs inside the request.
	Tasks TaskQueue

	// Backup scheduling
	BackupScheduler Rescheduler
	BackupKeep      int
}
