package http

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/tasks"
)

// CoversController handles book cover requests.
type CoversController struct {
	cache CoverCache
	books BookStore
	tasks TaskQueue
}

// NewCoversController creates a new CoversController.
func NewCoversController(cache CoverCache, books BookStore, queue TaskQueue) *CoversController {
	return &CoversController{
		cache: cache,
		books: books,
		tasks: queue,
	}
}

// GetCover serves a book cover.
// GET /api/books/:id/cover
// A cached file is served directly; otherwise the client is redirected to
// the remote cover URL.
func (cc *CoversController) GetCover(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := cc.books.Get(c.Request.Context(), id)
	if err != nil {
		respondStoreError(c, err, "book", "get book for cover")
		return
	}

	uri := cc.cache.ResolveCoverURI(book.CoverPath, book.CoverURL)
	switch {
	case uri == "":
		respondNotFound(c, "cover")
	case uri == book.CoverPath:
		c.File(uri)
	default:
		c.Redirect(http.StatusTemporaryRedirect, uri)
	}
}

// CacheCover downloads the remote cover of a book into the local cache.
// POST /api/books/:id/cover/cache
func (cc *CoversController) CacheCover(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	book, err := cc.books.Get(ctx, id)
	if err != nil {
		respondStoreError(c, err, "book", "get book for cover cache")
		return
	}
	if book.CoverURL == "" {
		respondBadRequest(c, "book has no cover URL")
		return
	}

	if cc.tasks != nil {
		task := tasks.CacheCoverTask{BookID: id}
		taskID, err := cc.tasks.Enqueue(task)
		if err != nil {
			respondInternalError(c, err, "enqueue cover cache")
			return
		}
		respondTaskAccepted(c, taskID, task.Config().Name)
		return
	}

	path, err := tasks.CacheCover(ctx, cc.books, cc.cache, id)
	if err != nil {
		log.Printf("Failed to cache cover of book %d: %v", id, err)
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "failed to download cover"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":    "cover cached",
		"cover_path": path,
	})
}
