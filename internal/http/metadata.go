package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/metadata"
	"github.com/mrlokans/bookshelf/internal/tasks"
)

const lookupTimeout = 30 * time.Second

// MetadataController handles remote metadata lookups and book enrichment.
type MetadataController struct {
	provider metadata.Provider
	enricher BookEnricher
	tasks    TaskQueue
}

// NewMetadataController creates a new MetadataController.
func NewMetadataController(provider metadata.Provider, enricher BookEnricher, queue TaskQueue) *MetadataController {
	return &MetadataController{
		provider: provider,
		enricher: enricher,
		tasks:    queue,
	}
}

// Search handles GET /api/lookup/search?q=
func (mc *MetadataController) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		respondBadRequest(c, "q is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), lookupTimeout)
	defer cancel()

	results, err := mc.provider.Search(ctx, q)
	if err != nil {
		mc.respondLookupError(c, err, "metadata search")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query":   q,
		"results": results,
		"count":   len(results),
	})
}

// LookupISBN handles GET /api/lookup/isbn/:isbn
// The response includes a ready-to-submit book input.
func (mc *MetadataController) LookupISBN(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), lookupTimeout)
	defer cancel()

	meta, err := mc.provider.LookupByISBN(ctx, c.Param("isbn"))
	if err != nil {
		mc.respondLookupError(c, err, "isbn lookup")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"metadata": meta,
		"book":     metadata.NewBookInput(meta),
	})
}

// EnrichBook handles POST /api/books/:id/enrich
// Empty fields are filled from OpenLibrary; existing values are kept.
func (mc *MetadataController) EnrichBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if mc.tasks != nil {
		task := tasks.EnrichBookTask{BookID: id}
		taskID, err := mc.tasks.Enqueue(task)
		if err != nil {
			respondInternalError(c, err, "enqueue enrich book")
			return
		}
		respondTaskAccepted(c, taskID, task.Config().Name)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), lookupTimeout)
	defer cancel()

	result, err := mc.enricher.EnrichBook(ctx, id)
	if err != nil {
		if errors.Is(err, entities.ErrNotFound) {
			respondNotFound(c, "book")
			return
		}
		mc.respondLookupError(c, err, "enrich book")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"book":           newBookResponse(*result.Book),
		"fields_updated": result.FieldsUpdated,
		"source":         result.Source,
		"search_method":  result.SearchMethod,
	})
}

func (mc *MetadataController) respondLookupError(c *gin.Context, err error, op string) {
	switch {
	case errors.Is(err, metadata.ErrNotFound):
		respondNotFound(c, "metadata")
	case errors.Is(err, metadata.ErrInvalidISBN):
		respondBadRequest(c, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, ErrorResponse{Error: "metadata provider timed out"})
	default:
		respondStoreError(c, err, "metadata", op)
	}
}
