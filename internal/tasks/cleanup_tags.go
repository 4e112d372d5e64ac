package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookshelf/internal/entities"
)

// UnusedTagsCleaner deletes tags of one kind that no book references.
type UnusedTagsCleaner interface {
	DeleteUnused(ctx context.Context, kind entities.TagKind) (int64, error)
}

// CleanupUnusedTagsTask removes authors, categories and publishers without books.
type CleanupUnusedTagsTask struct{}

// Config returns the queue configuration for cleanup tasks.
func (t CleanupUnusedTagsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cleanup_unused_tags",
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// CleanupUnusedTags runs the cleanup for every tag kind and returns the
// number of deleted tags per kind.
func CleanupUnusedTags(ctx context.Context, cleaner UnusedTagsCleaner) (map[entities.TagKind]int64, error) {
	deleted := make(map[entities.TagKind]int64, len(entities.TagKinds))
	for _, kind := range entities.TagKinds {
		n, err := cleaner.DeleteUnused(ctx, kind)
		if err != nil {
			return deleted, fmt.Errorf("cleanup unused %s: %w", kind.Table(), err)
		}
		deleted[kind] = n
	}
	return deleted, nil
}

// CleanupUnusedTagsProcessor creates a processor function for CleanupUnusedTagsTask.
func CleanupUnusedTagsProcessor(cleaner UnusedTagsCleaner) backlite.QueueProcessor[CleanupUnusedTagsTask] {
	return func(ctx context.Context, task CleanupUnusedTagsTask) error {
		if cleaner == nil {
			return fmt.Errorf("unused tags cleaner not configured")
		}

		deleted, err := CleanupUnusedTags(ctx, cleaner)
		if err != nil {
			return err
		}

		log.Printf("[TASK] Cleaned up unused tags: %d authors, %d categories, %d publishers",
			deleted[entities.TagKindAuthor], deleted[entities.TagKindCategory], deleted[entities.TagKindPublisher])
		return nil
	}
}
