package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/bookshelf/internal/covers"
	"github.com/mrlokans/bookshelf/internal/database/books"
	"github.com/mrlokans/bookshelf/internal/database/pagelogs"
	"github.com/mrlokans/bookshelf/internal/database/settings"
	"github.com/mrlokans/bookshelf/internal/database/tags"
	"github.com/mrlokans/bookshelf/internal/http"
	"github.com/mrlokans/bookshelf/internal/metadata"
	"github.com/mrlokans/bookshelf/internal/scheduler"
	"github.com/mrlokans/bookshelf/internal/settingsstore"
	"github.com/mrlokans/bookshelf/internal/stats"
	"github.com/mrlokans/bookshelf/internal/tasks"
)

// =============================================================================
// Data Access Layer
// =============================================================================

var _ http.BookStore = (*books.Repository)(nil)
var _ http.PageLogStore = (*pagelogs.Repository)(nil)
var _ http.TagStore = (*tags.Repository)(nil)
var _ metadata.BookStore = (*books.Repository)(nil)
var _ tasks.CoverBooks = (*books.Repository)(nil)
var _ tasks.UnusedTagsCleaner = (*tags.Repository)(nil)

// =============================================================================
// Settings and Statistics
// =============================================================================

var _ settingsstore.Store = (*settings.Repository)(nil)
var _ http.SettingsService = (*settingsstore.SettingsStore)(nil)
var _ tasks.BackupSettings = (*settingsstore.SettingsStore)(nil)
var _ scheduler.BackupConfigSource = (*settingsstore.SettingsStore)(nil)
var _ http.StatsService = (*stats.Service)(nil)

// =============================================================================
// External Services and Background Work
// =============================================================================

var _ metadata.Provider = (*metadata.OpenLibraryClient)(nil)
var _ http.BookEnricher = (*metadata.Enricher)(nil)
var _ tasks.BookEnricher = (*metadata.Enricher)(nil)
var _ http.CoverCache = (*covers.Cache)(nil)
var _ tasks.CoverStore = (*covers.Cache)(nil)
var _ http.TaskQueue = (*tasks.Client)(nil)
var _ http.Rescheduler = (*scheduler.BackupScheduler)(nil)
