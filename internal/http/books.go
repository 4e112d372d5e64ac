package http

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/library"
	"github.com/mrlokans/bookshelf/internal/tasks"
)

// BookResponse is a book with its derived reading state.
type BookResponse struct {
	entities.BookWithTags
	Status     entities.ReadingStatus `json:"status"`
	Completion float64                `json:"completion"`
	CoverURI   string                 `json:"cover_uri,omitempty"`
}

func newBookResponse(b entities.BookWithTags) BookResponse {
	resp := BookResponse{
		BookWithTags: b,
		Status:       b.Status(),
		Completion:   b.Completion(),
	}
	if b.CoverPath != "" || b.CoverURL != "" {
		resp.CoverURI = fmt.Sprintf("/api/books/%d/cover", b.ID)
	}
	return resp
}

type BooksController struct {
	store    BookStore
	engine   *library.Engine
	settings SettingsService
	covers   CoverCache
	tasks    TaskQueue
}

func NewBooksController(store BookStore, engine *library.Engine, settings SettingsService, covers CoverCache, queue TaskQueue) *BooksController {
	return &BooksController{
		store:    store,
		engine:   engine,
		settings: settings,
		covers:   covers,
		tasks:    queue,
	}
}

// ListBooks handles GET /api/books
// Query parameters: q, status, type, author, category, publisher, sort, order.
// Without a sort parameter the configured default sort applies.
func (bc *BooksController) ListBooks(c *gin.Context) {
	query, err := library.ParseQuery(c.Request.URL.Query())
	if err != nil {
		respondStoreError(c, err, "books", "parse book query")
		return
	}
	if c.Query("sort") == "" && bc.settings != nil {
		def := bc.settings.DefaultSort()
		query.Sort.Key = def.Key
		if c.Query("order") == "" {
			query.Sort.Descending = def.Descending
		}
	}

	books, err := bc.store.ListWithTags(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "list books")
		return
	}

	matched := bc.engine.Apply(books, query)
	out := make([]BookResponse, 0, len(matched))
	for _, b := range matched {
		out = append(out, newBookResponse(b))
	}

	c.JSON(http.StatusOK, gin.H{
		"books": out,
		"count": len(out),
		"total": len(books),
		"query": query,
	})
}

// FilterOptions handles GET /api/books/filters
func (bc *BooksController) FilterOptions(c *gin.Context) {
	books, err := bc.store.ListWithTags(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "list books for filters")
		return
	}
	c.JSON(http.StatusOK, bc.engine.FilterOptions(books))
}

// GetBook handles GET /api/books/:id
func (bc *BooksController) GetBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := bc.store.GetWithTags(c.Request.Context(), id)
	if err != nil {
		respondStoreError(c, err, "book", "get book")
		return
	}
	c.JSON(http.StatusOK, newBookResponse(*book))
}

// CreateBook handles POST /api/books
func (bc *BooksController) CreateBook(c *gin.Context) {
	var in entities.BookInput
	if !bindJSON(c, &in) || !bc.checkCoverPath(c, in) {
		return
	}

	book, err := bc.store.Create(c.Request.Context(), in)
	if err != nil {
		respondStoreError(c, err, "book", "create book")
		return
	}

	bc.queueCoverDownload(book)
	respondCreated(c, newBookResponse(*book))
}

// UpdateBook handles PUT /api/books/:id
// The body replaces every editable field, including the tag lists.
func (bc *BooksController) UpdateBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var in entities.BookInput
	if !bindJSON(c, &in) || !bc.checkCoverPath(c, in) {
		return
	}

	ctx := c.Request.Context()
	prev, err := bc.store.Get(ctx, id)
	if err != nil {
		respondStoreError(c, err, "book", "get book for update")
		return
	}

	book, err := bc.store.Update(ctx, id, in)
	if err != nil {
		respondStoreError(c, err, "book", "update book")
		return
	}

	if bc.covers != nil && prev.CoverPath != "" && prev.CoverPath != book.CoverPath {
		if err := bc.covers.Delete(prev.CoverPath); err != nil {
			log.Printf("Failed to remove replaced cover of book %d: %v", id, err)
		}
	}

	bc.queueCoverDownload(book)
	c.JSON(http.StatusOK, newBookResponse(*book))
}

// DeleteBook handles DELETE /api/books/:id
// Page logs and tag links go with the book; its cached cover is removed
// afterwards on a best-effort basis.
func (bc *BooksController) DeleteBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	book, err := bc.store.Get(ctx, id)
	if err != nil {
		respondStoreError(c, err, "book", "get book for delete")
		return
	}

	if err := bc.store.Delete(ctx, id); err != nil {
		respondStoreError(c, err, "book", "delete book")
		return
	}

	if bc.covers != nil && book.CoverPath != "" {
		if err := bc.covers.Delete(book.CoverPath); err != nil {
			log.Printf("Failed to remove cover of deleted book %d: %v", id, err)
		}
	}

	respondSuccess(c, "book deleted")
}

// checkCoverPath rejects cover paths that do not name a file in the cover
// cache. Covers reach the cache through downloads, never through client paths.
func (bc *BooksController) checkCoverPath(c *gin.Context, in entities.BookInput) bool {
	path := strings.TrimSpace(in.CoverPath)
	if path == "" || (bc.covers != nil && bc.covers.Contains(path)) {
		return true
	}
	ve := &entities.ValidationError{}
	ve.Add("cover_path", "must name a file in the cover cache")
	respondValidationError(c, ve)
	return false
}

// queueCoverDownload enqueues a cover download for books whose remote cover
// has no local copy yet. Without a task queue covers are served remotely.
func (bc *BooksController) queueCoverDownload(book *entities.BookWithTags) {
	if bc.tasks == nil || bc.covers == nil || book.CoverURL == "" || book.CoverPath != "" {
		return
	}
	if _, err := bc.tasks.Enqueue(tasks.CacheCoverTask{BookID: book.ID}); err != nil {
		log.Printf("[TASK] Failed to enqueue cover download for book %d: %v", book.ID, err)
	}
}
