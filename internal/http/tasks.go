package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookshelf/internal/tasks"
)

// TasksController handles task queue endpoints.
type TasksController struct {
	queue TaskQueue
}

// NewTasksController creates a new TasksController.
func NewTasksController(queue TaskQueue) *TasksController {
	return &TasksController{queue: queue}
}

// TaskTypeInfo describes a task type that can be triggered manually.
type TaskTypeInfo struct {
	Type         string `json:"type"`
	Description  string `json:"description"`
	RequiresBook bool   `json:"requires_book"`
	MaxAttempts  int    `json:"max_attempts"`
	Available    bool   `json:"available"`
}

// queueRegistry is implemented by queues that know which task types have
// workers.
type queueRegistry interface {
	Has(name string) bool
}

var taskTypes = []TaskTypeInfo{
	{Type: "enrich_book", Description: "Fill missing book fields from OpenLibrary", RequiresBook: true},
	{Type: "cache_cover", Description: "Download a book cover into the local cache", RequiresBook: true},
	{Type: "cleanup_unused_tags", Description: "Remove authors, categories and publishers without books"},
	{Type: "backup", Description: "Write a snapshot of the library database"},
}

// ListTaskTypes handles GET /api/tasks/types
func (tc *TasksController) ListTaskTypes(c *gin.Context) {
	registry, _ := tc.queue.(queueRegistry)
	types := make([]TaskTypeInfo, 0, len(taskTypes))
	for _, t := range taskTypes {
		if task, err := newTask(t.Type, 1); err == nil {
			t.MaxAttempts = task.Config().MaxAttempts
		}
		t.Available = registry == nil || registry.Has(t.Type)
		types = append(types, t)
	}
	c.JSON(http.StatusOK, gin.H{"task_types": types})
}

// GetTaskStatus handles GET /api/tasks/:id
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	taskID := c.Param("id")
	if taskID == "" {
		respondBadRequest(c, "task ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := tc.queue.Status(ctx, taskID)
	if err != nil {
		respondInternalError(c, err, "task status")
		return
	}
	if status == backlite.TaskStatusNotFound {
		respondNotFound(c, "task")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     taskID,
		"status": tasks.StatusName(status),
	})
}

// RunTaskRequest is the request body for running a task.
type RunTaskRequest struct {
	// BookID is required for book tasks.
	BookID uint `json:"book_id,omitempty"`
}

// RunTask handles POST /api/tasks/:type/run
func (tc *TasksController) RunTask(c *gin.Context) {
	var req RunTaskRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	task, err := newTask(c.Param("type"), req.BookID)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	id, err := tc.queue.Enqueue(task)
	if errors.Is(err, tasks.ErrQueueNotRegistered) {
		respondBadRequest(c, fmt.Sprintf("task type %s is not available", task.Config().Name))
		return
	}
	if err != nil {
		respondInternalError(c, err, "enqueue task")
		return
	}
	respondTaskAccepted(c, id, task.Config().Name)
}

func newTask(taskType string, bookID uint) (backlite.Task, error) {
	switch taskType {
	case "enrich_book", "cache_cover":
		if bookID == 0 {
			return nil, fmt.Errorf("book_id is required for %s task", taskType)
		}
		if taskType == "enrich_book" {
			return tasks.EnrichBookTask{BookID: bookID}, nil
		}
		return tasks.CacheCoverTask{BookID: bookID}, nil
	case "cleanup_unused_tags":
		return tasks.CleanupUnusedTagsTask{}, nil
	case "backup":
		return tasks.BackupTask{}, nil
	}
	return nil, fmt.Errorf("unknown task type: %s", taskType)
}
