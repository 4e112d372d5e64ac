package http

import (
	"context"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/library"
	"github.com/mrlokans/bookshelf/internal/metadata"
	"github.com/mrlokans/bookshelf/internal/settingsstore"
	"github.com/mrlokans/bookshelf/internal/stats"
)

// This file consolidates the store interfaces used by HTTP controllers.
// Each controller depends only on the methods it calls; the database
// repositories and services satisfy them (see internal/interfaces).

// BookStore provides book CRUD on top of the books repository.
type BookStore interface {
	Get(ctx context.Context, id uint) (*entities.Book, error)
	GetWithTags(ctx context.Context, id uint) (*entities.BookWithTags, error)
	ListWithTags(ctx context.Context) ([]entities.BookWithTags, error)
	Create(ctx context.Context, in entities.BookInput) (*entities.BookWithTags, error)
	Update(ctx context.Context, id uint, in entities.BookInput) (*entities.BookWithTags, error)
	Delete(ctx context.Context, id uint) error
	SetCoverPath(ctx context.Context, id uint, path string) error
}

// PageLogStore records reading sessions.
type PageLogStore interface {
	Get(ctx context.Context, id uint) (*entities.PageLog, error)
	ListForBook(ctx context.Context, bookID uint) ([]entities.PageLog, error)
	Create(ctx context.Context, bookID uint, in entities.PageLogInput) (*entities.PageLog, error)
	Update(ctx context.Context, id uint, in entities.PageLogInput) (*entities.PageLog, error)
	Delete(ctx context.Context, id uint) error
}

// TagStore manages authors, categories and publishers.
type TagStore interface {
	GetOrCreate(ctx context.Context, kind entities.TagKind, name string) (*entities.Tag, error)
	Get(ctx context.Context, kind entities.TagKind, id uint) (*entities.Tag, error)
	List(ctx context.Context, kind entities.TagKind) ([]entities.Tag, error)
	Search(ctx context.Context, kind entities.TagKind, query string) ([]entities.Tag, error)
	Attach(ctx context.Context, kind entities.TagKind, bookID, tagID uint) error
	Detach(ctx context.Context, kind entities.TagKind, bookID, tagID uint) error
	Delete(ctx context.Context, kind entities.TagKind, tagID uint) error
	DeleteUnused(ctx context.Context, kind entities.TagKind) (int64, error)
}

// StatsService aggregates page logs.
type StatsService interface {
	DimensionTotals(ctx context.Context, kind entities.TagKind, tf stats.Timeframe) ([]stats.Total, error)
	DrillDown(ctx context.Context, kind entities.TagKind, tagID uint, tf stats.Timeframe) ([]stats.Total, error)
	DailyPages(ctx context.Context, tf stats.Timeframe) ([]stats.DayTotal, error)
	Summary(ctx context.Context, tf stats.Timeframe) (*stats.Summary, error)
	Streak(ctx context.Context) (int, error)
}

// SettingsService resolves and updates user settings.
type SettingsService interface {
	All() settingsstore.Settings
	Apply(p settingsstore.Patch) error
	DefaultSort() library.Sort
	StatsTimeframe() stats.Timeframe
	BackupConfig() settingsstore.BackupConfig
	SetBackupStatus(status, message string) error
}

// CoverCache stores cover images on local disk.
type CoverCache interface {
	Contains(path string) bool
	ResolveCoverURI(localPath, remoteURL string) string
	PersistRemote(ctx context.Context, url string) (string, error)
	Delete(localPath string) error
}

// BookEnricher fills missing book fields from the metadata provider.
type BookEnricher interface {
	EnrichBook(ctx context.Context, bookID uint) (*metadata.EnrichmentResult, error)
}

// TaskQueue hands work to the background workers. When a controller has no
// queue it runs the same work inside the request.
type TaskQueue interface {
	Enqueue(task backlite.Task) (string, error)
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}

// Rescheduler reloads the backup schedule after settings change.
type Rescheduler interface {
	Reschedule(ctx context.Context) error
}
