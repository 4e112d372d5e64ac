package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookshelf/internal/metadata"
)

// BookEnricher fills a book's empty fields from the metadata provider.
type BookEnricher interface {
	EnrichBook(ctx context.Context, bookID uint) (*metadata.EnrichmentResult, error)
}

// EnrichBookTask looks one book up on OpenLibrary.
type EnrichBookTask struct {
	BookID uint `json:"book_id"`
}

// Config returns the queue configuration for enrichment tasks. Lookups are
// rate limited by the client, so a failed task is not retried.
func (t EnrichBookTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "enrich_book",
		MaxAttempts: 1,
		Backoff:     30 * time.Second,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   3 * 24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

func describeEnrichment(bookID uint, result *metadata.EnrichmentResult) string {
	if len(result.FieldsUpdated) == 0 {
		return fmt.Sprintf("book %d (%s) already complete, matched by %s",
			bookID, result.Book.Title, result.SearchMethod)
	}
	return fmt.Sprintf("book %d (%s) filled %s from %s by %s",
		bookID, result.Book.Title, strings.Join(result.FieldsUpdated, ", "), result.Source, result.SearchMethod)
}

// EnrichBookProcessor creates a processor function for EnrichBookTask.
func EnrichBookProcessor(enricher BookEnricher) backlite.QueueProcessor[EnrichBookTask] {
	return func(ctx context.Context, task EnrichBookTask) error {
		if enricher == nil {
			return fmt.Errorf("metadata lookup not configured")
		}

		result, err := enricher.EnrichBook(ctx, task.BookID)
		if err != nil {
			if errors.Is(err, metadata.ErrNotFound) {
				log.Printf("[TASK] Enrich: no OpenLibrary match for book %d", task.BookID)
			}
			return fmt.Errorf("enrich book %d: %w", task.BookID, err)
		}

		log.Printf("[TASK] Enrich: %s", describeEnrichment(task.BookID, result))
		return nil
	}
}
