package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookshelf/internal/entities"
)

// CoverBooks loads a book and records where its cover was cached.
type CoverBooks interface {
	Get(ctx context.Context, id uint) (*entities.Book, error)
	SetCoverPath(ctx context.Context, id uint, path string) error
}

// CoverStore persists covers locally.
type CoverStore interface {
	ResolveCoverURI(localPath, remoteURL string) string
	PersistRemote(ctx context.Context, url string) (string, error)
}

// CacheCoverTask downloads a book's remote cover into the cover cache.
type CacheCoverTask struct {
	BookID uint `json:"book_id"`
}

// Config returns the queue configuration for cover caching tasks.
// Downloads are idempotent so they are retried.
func (t CacheCoverTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cache_cover",
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// CacheCover downloads the cover of one book unless a local copy already
// exists. It returns the local path.
func CacheCover(ctx context.Context, books CoverBooks, covers CoverStore, bookID uint) (string, error) {
	book, err := books.Get(ctx, bookID)
	if err != nil {
		return "", err
	}
	if book.CoverURL == "" {
		return "", fmt.Errorf("book %d has no cover URL", bookID)
	}
	if book.CoverPath != "" && covers.ResolveCoverURI(book.CoverPath, book.CoverURL) == book.CoverPath {
		return book.CoverPath, nil
	}

	path, err := covers.PersistRemote(ctx, book.CoverURL)
	if err != nil {
		return "", fmt.Errorf("download cover for book %d: %w", bookID, err)
	}
	if err := books.SetCoverPath(ctx, bookID, path); err != nil {
		return "", err
	}
	return path, nil
}

// CacheCoverProcessor creates a processor function for CacheCoverTask.
func CacheCoverProcessor(books CoverBooks, covers CoverStore) backlite.QueueProcessor[CacheCoverTask] {
	return func(ctx context.Context, task CacheCoverTask) error {
		if books == nil || covers == nil {
			return fmt.Errorf("cover cache not configured")
		}

		path, err := CacheCover(ctx, books, covers, task.BookID)
		if err != nil {
			return err
		}

		log.Printf("[TASK] Cached cover for book %d at %s", task.BookID, path)
		return nil
	}
}
