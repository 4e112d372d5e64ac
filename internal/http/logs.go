package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/entities"
)

// PageLogsController records reading sessions. Every write also updates
// the book's current page and last read date in the same transaction.
type PageLogsController struct {
	store PageLogStore
}

func NewPageLogsController(store PageLogStore) *PageLogsController {
	return &PageLogsController{store: store}
}

// ListLogs handles GET /api/books/:id/logs
func (lc *PageLogsController) ListLogs(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	logs, err := lc.store.ListForBook(c.Request.Context(), bookID)
	if err != nil {
		respondStoreError(c, err, "book", "list page logs")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"logs":  logs,
		"count": len(logs),
	})
}

// CreateLog handles POST /api/books/:id/logs
func (lc *PageLogsController) CreateLog(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var in entities.PageLogInput
	if !bindJSON(c, &in) {
		return
	}

	entry, err := lc.store.Create(c.Request.Context(), bookID, in)
	if err != nil {
		respondStoreError(c, err, "book", "create page log")
		return
	}
	respondCreated(c, entry)
}

// GetLog handles GET /api/logs/:id
func (lc *PageLogsController) GetLog(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	entry, err := lc.store.Get(c.Request.Context(), id)
	if err != nil {
		respondStoreError(c, err, "page log", "get page log")
		return
	}
	c.JSON(http.StatusOK, entry)
}

// UpdateLog handles PUT /api/logs/:id
func (lc *PageLogsController) UpdateLog(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var in entities.PageLogInput
	if !bindJSON(c, &in) {
		return
	}

	entry, err := lc.store.Update(c.Request.Context(), id, in)
	if err != nil {
		respondStoreError(c, err, "page log", "update page log")
		return
	}
	c.JSON(http.StatusOK, entry)
}

// DeleteLog handles DELETE /api/logs/:id
func (lc *PageLogsController) DeleteLog(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := lc.store.Delete(c.Request.Context(), id); err != nil {
		respondStoreError(c, err, "page log", "delete page log")
		return
	}
	respondSuccess(c, "page log deleted")
}
