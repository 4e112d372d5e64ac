package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/entities"
)

const healthTimeout = 2 * time.Second

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Books   *int64            `json:"books,omitempty"`
	Checks  map[string]string `json:"checks"`
}

// HealthController reports whether the library database answers and which
// optional subsystems are wired.
type HealthController struct {
	db      *database.Database
	version string
	tasks   TaskQueue
}

func NewHealthController(db *database.Database, version string, tasks TaskQueue) *HealthController {
	return &HealthController{db: db, version: version, tasks: tasks}
}

func (h *HealthController) checkDatabase(ctx context.Context, checks map[string]string) (*int64, bool) {
	if h.db == nil {
		checks["database"] = "not configured"
		return nil, true
	}

	sqlDB, err := h.db.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		checks["database"] = "error: " + err.Error()
		return nil, false
	}
	checks["database"] = "ok"

	var count int64
	if err := h.db.DB.WithContext(ctx).Model(&entities.Book{}).Count(&count).Error; err != nil {
		checks["schema"] = "error: " + err.Error()
		return nil, false
	}
	checks["schema"] = "ok"
	return &count, true
}

func (h *HealthController) Status(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	checks := make(map[string]string)
	books, ok := h.checkDatabase(ctx, checks)

	if h.tasks != nil {
		checks["tasks"] = "enabled"
	} else {
		checks["tasks"] = "disabled"
	}

	health := HealthResponse{
		Status:  "healthy",
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Books:   books,
		Checks:  checks,
	}

	statusCode := http.StatusOK
	if !ok {
		health.Status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, health)
}
