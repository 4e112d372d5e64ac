package http

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookshelf/internal/entities"
)

type logBody struct {
	StartPage int    `json:"start_page"`
	EndPage   int    `json:"end_page"`
	ReadDate  string `json:"read_date"`
	PageNotes string `json:"page_notes,omitempty"`
}

func TestPageLogsController_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	book := env.createBook(entities.BookInput{Title: "Dune", NumberOfPages: 412})
	base := "/api/books/" + itoa(book.ID) + "/logs"

	w := env.do(http.MethodPost, base, logBody{StartPage: 1, EndPage: 40, ReadDate: "2024-03-10"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := decode[entities.PageLog](t, w)
	assert.Equal(t, 40, first.TotalPageRead)
	assert.Equal(t, 40, first.CurrentPageAfterLog)

	w = env.do(http.MethodPost, base, logBody{StartPage: 41, EndPage: 100, ReadDate: "2024-03-12"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	second := decode[entities.PageLog](t, w)
	assert.Equal(t, 60, second.TotalPageRead)

	stored, err := env.books.Get(context.Background(), book.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, stored.CurrentPage)
	assert.Equal(t, "2024-03-12", stored.LastRead.String())

	w = env.do(http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Logs  []entities.PageLog `json:"logs"`
		Count int                `json:"count"`
	}](t, w)
	require.Equal(t, 2, list.Count)
	assert.Equal(t, second.ID, list.Logs[0].ID, "newest first")

	w = env.do(http.MethodPut, "/api/logs/"+itoa(second.ID), logBody{StartPage: 41, EndPage: 80, ReadDate: "2024-03-12"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 40, decode[entities.PageLog](t, w).TotalPageRead)

	stored, err = env.books.Get(context.Background(), book.ID)
	require.NoError(t, err)
	assert.Equal(t, 80, stored.CurrentPage)

	w = env.do(http.MethodGet, "/api/logs/"+itoa(first.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodDelete, "/api/logs/"+itoa(second.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	stored, err = env.books.Get(context.Background(), book.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, stored.CurrentPage)

	w = env.do(http.MethodGet, "/api/logs/"+itoa(second.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "page log not found")
}

func TestPageLogsController_Validation(t *testing.T) {
	env := newTestEnv(t)
	book := env.createBook(entities.BookInput{Title: "Emma", NumberOfPages: 100})
	base := "/api/books/" + itoa(book.ID) + "/logs"

	tests := []struct {
		name  string
		body  logBody
		field string
	}{
		{"end before start", logBody{StartPage: 20, EndPage: 10, ReadDate: "2024-03-01"}, "end_page"},
		{"past the last page", logBody{StartPage: 1, EndPage: 101, ReadDate: "2024-03-01"}, "end_page"},
		{"missing date", logBody{StartPage: 1, EndPage: 10}, "read_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPost, base, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), `"`+tt.field+`"`)
		})
	}

	t.Run("bad date format", func(t *testing.T) {
		w := env.do(http.MethodPost, base, logBody{StartPage: 1, EndPage: 10, ReadDate: "March 1st"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown book", func(t *testing.T) {
		w := env.do(http.MethodPost, "/api/books/999/logs", logBody{StartPage: 1, EndPage: 10, ReadDate: "2024-03-01"})
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = env.do(http.MethodGet, "/api/books/999/logs", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
