package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// OrphanTagsCleaner provides the ability to delete orphan tags.
type OrphanTagsCleaner interface {
	DeleteOrphanTags() (int64, error)
}

// CleanupOrphanTagsTask removes blog tags no longer attached to any post.
type CleanupOrphanTagsTask struct{}

// Config returns the queue configuration for cleanup tasks.
func (t CleanupOrphanTagsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cleanup_orphan_tags",
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     time.Minute,
		Retention:   dayRetention(),
	}
}

// CleanupOrphanTagsProcessor creates a processor function for CleanupOrphanTagsTask.
// recorder may be nil.
func CleanupOrphanTagsProcessor(cleaner OrphanTagsCleaner, recorder MaintenanceRecorder) backlite.QueueProcessor[CleanupOrphanTagsTask] {
	return func(ctx context.Context, task CleanupOrphanTagsTask) error {
		if cleaner == nil {
			return fmt.Errorf("orphan tags cleaner not configured")
		}

		deleted, err := cleaner.DeleteOrphanTags()
		if err != nil {
			err = fmt.Errorf("cleanup orphan tags: %w", err)
		}
		if recorder != nil {
			recorder.LogMaintenance("cleanup_orphan_tags", fmt.Sprintf("Removed %d unused tags", deleted), err)
		}
		if err != nil {
			return err
		}

		log.Printf("[TASK] Cleaned up %d orphan tags", deleted)
		return nil
	}
}

// NewCleanupOrphanTagsQueue creates a backlite queue for tag cleanup tasks.
func NewCleanupOrphanTagsQueue(cleaner OrphanTagsCleaner, recorder MaintenanceRecorder) backlite.Queue {
	return backlite.NewQueue(CleanupOrphanTagsProcessor(cleaner, recorder))
}
