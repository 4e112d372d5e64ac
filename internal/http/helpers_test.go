package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/mrlokans/bookshelf/internal/entities"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestParseIDParam_Valid(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "123"}}

	id, ok := parseIDParam(c, "id")

	assert.True(t, ok)
	assert.Equal(t, uint(123), id)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestParseIDParam_Invalid(t *testing.T) {
	for _, value := range []string{"abc", "-1", "0", ""} {
		t.Run(value, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Params = gin.Params{{Key: "id", Value: value}}

			id, ok := parseIDParam(c, "id")

			assert.False(t, ok)
			assert.Equal(t, uint(0), id)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "invalid id")
		})
	}
}

func TestParseKindParam(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "kind", Value: "categories"}}

	kind, ok := parseKindParam(c, "kind")
	assert.True(t, ok)
	assert.Equal(t, entities.TagKindCategory, kind)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "kind", Value: "genres"}}

	_, ok = parseKindParam(c, "kind")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"VALIDATION"`)
}

func TestRespondStoreError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{
			name:     "validation",
			err:      fmt.Errorf("wrapped: %w", entities.NewValidationError("title", "is required")),
			wantCode: http.StatusBadRequest,
			wantBody: `"title":"is required"`,
		},
		{
			name:     "not found",
			err:      fmt.Errorf("book 9: %w", entities.ErrNotFound),
			wantCode: http.StatusNotFound,
			wantBody: `"error":"book not found"`,
		},
		{
			name:     "other",
			err:      errors.New("disk on fire"),
			wantCode: http.StatusInternalServerError,
			wantBody: `"error":"internal server error"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			respondStoreError(c, tt.err, "book", "test")

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
			assert.NotContains(t, w.Body.String(), "disk on fire")
		})
	}
}

func TestRespondTaskAccepted(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondTaskAccepted(c, "abc", "backup")

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), `"task_id":"abc"`)
	assert.Contains(t, w.Body.String(), `"type":"backup"`)
}

func TestNotFoundSubject(t *testing.T) {
	assert.Equal(t, "book", notFoundSubject(fmt.Errorf("book 3: %w", entities.ErrNotFound), "author"))
	assert.Equal(t, "author", notFoundSubject(fmt.Errorf("author 3: %w", entities.ErrNotFound), "author"))
}
