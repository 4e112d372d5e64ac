package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/tasks"
)

type TagsController struct {
	store TagStore
	books BookStore
	tasks TaskQueue
}

func NewTagsController(store TagStore, books BookStore, queue TaskQueue) *TagsController {
	return &TagsController{store: store, books: books, tasks: queue}
}

// ListTags handles GET /api/tags/:kind
// With ?q= only names containing the term are returned.
func (tc *TagsController) ListTags(c *gin.Context) {
	kind, ok := parseKindParam(c, "kind")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	q := strings.TrimSpace(c.Query("q"))

	var err error
	var result any
	if q != "" {
		result, err = tc.store.Search(ctx, kind, q)
	} else {
		result, err = tc.store.List(ctx, kind)
	}
	if err != nil {
		respondStoreError(c, err, string(kind), "list tags")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"kind": kind,
		"tags": result,
	})
}

// CreateTag handles POST /api/tags/:kind
// Creating an existing name returns the existing tag.
func (tc *TagsController) CreateTag(c *gin.Context) {
	kind, ok := parseKindParam(c, "kind")
	if !ok {
		return
	}

	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "name is required")
		return
	}

	tag, err := tc.store.GetOrCreate(c.Request.Context(), kind, req.Name)
	if err != nil {
		respondStoreError(c, err, string(kind), "create tag")
		return
	}
	respondCreated(c, tag)
}

// DeleteTag handles DELETE /api/tags/:kind/:id
// The tag is removed from every book.
func (tc *TagsController) DeleteTag(c *gin.Context) {
	kind, ok := parseKindParam(c, "kind")
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := tc.store.Delete(c.Request.Context(), kind, id); err != nil {
		respondStoreError(c, err, string(kind), "delete tag")
		return
	}
	respondSuccess(c, string(kind)+" deleted")
}

// AddTagToBook handles POST /api/books/:id/tags/:kind
// Body: {"tag_id": 3} or {"name": "Tolkien"}; a name is created when missing.
func (tc *TagsController) AddTagToBook(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	kind, ok := parseKindParam(c, "kind")
	if !ok {
		return
	}

	var req struct {
		TagID uint   `json:"tag_id"`
		Name  string `json:"name"`
	}
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	tagID := req.TagID
	if tagID == 0 {
		if strings.TrimSpace(req.Name) == "" {
			respondBadRequest(c, "tag_id or name required")
			return
		}
		if _, err := tc.books.Get(ctx, bookID); err != nil {
			respondStoreError(c, err, "book", "get book for tag")
			return
		}
		tag, err := tc.store.GetOrCreate(ctx, kind, req.Name)
		if err != nil {
			respondStoreError(c, err, string(kind), "get or create tag")
			return
		}
		tagID = tag.ID
	}

	if err := tc.store.Attach(ctx, kind, bookID, tagID); err != nil {
		respondStoreError(c, err, notFoundSubject(err, string(kind)), "attach tag")
		return
	}

	tc.respondBook(c, bookID)
}

// RemoveTagFromBook handles DELETE /api/books/:id/tags/:kind/:tagId
func (tc *TagsController) RemoveTagFromBook(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	kind, ok := parseKindParam(c, "kind")
	if !ok {
		return
	}
	tagID, ok := parseIDParam(c, "tagId")
	if !ok {
		return
	}

	if err := tc.store.Detach(c.Request.Context(), kind, bookID, tagID); err != nil {
		respondStoreError(c, err, notFoundSubject(err, string(kind)), "detach tag")
		return
	}

	tc.respondBook(c, bookID)
}

// CleanupUnusedTags handles POST /api/admin/tags/cleanup
// Removes tags no book references. With a task queue the cleanup runs in
// the background and the task ID is returned.
func (tc *TagsController) CleanupUnusedTags(c *gin.Context) {
	if tc.tasks != nil {
		task := tasks.CleanupUnusedTagsTask{}
		id, err := tc.tasks.Enqueue(task)
		if err != nil {
			respondInternalError(c, err, "enqueue tag cleanup")
			return
		}
		respondTaskAccepted(c, id, task.Config().Name)
		return
	}

	removed, err := tasks.CleanupUnusedTags(c.Request.Context(), tc.store)
	if err != nil {
		respondInternalError(c, err, "cleanup unused tags")
		return
	}

	var total int64
	for _, n := range removed {
		total += n
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "unused tags removed",
		"removed": removed,
		"total":   total,
	})
}

func (tc *TagsController) respondBook(c *gin.Context, bookID uint) {
	book, err := tc.books.GetWithTags(c.Request.Context(), bookID)
	if err != nil {
		respondStoreError(c, err, "book", "get book after tag change")
		return
	}
	c.JSON(http.StatusOK, newBookResponse(*book))
}

// notFoundSubject tells whether a not-found error from a link operation
// refers to the book or to the tag.
func notFoundSubject(err error, kind string) string {
	if strings.HasPrefix(err.Error(), "book ") {
		return "book"
	}
	return kind
}
