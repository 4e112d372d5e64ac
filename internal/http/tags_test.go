package http

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/tasks"
)

type tagsList struct {
	Kind entities.TagKind `json:"kind"`
	Tags []entities.Tag   `json:"tags"`
}

func TestTagsController_ListAndSearch(t *testing.T) {
	env := newTestEnv(t)
	env.createBook(entities.BookInput{Title: "Good Omens", NumberOfPages: 288, Authors: []string{"Terry Pratchett", "Neil Gaiman"}})
	env.createBook(entities.BookInput{Title: "Mort", NumberOfPages: 200, Authors: []string{"Terry Pratchett"}})

	w := env.do(http.MethodGet, "/api/tags/authors", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[tagsList](t, w)
	assert.Equal(t, entities.TagKindAuthor, list.Kind)
	require.Len(t, list.Tags, 2)

	counts := map[string]int64{}
	for _, tag := range list.Tags {
		counts[tag.Name] = tag.BookCount
	}
	assert.Equal(t, map[string]int64{"Terry Pratchett": 2, "Neil Gaiman": 1}, counts)

	list = decode[tagsList](t, env.do(http.MethodGet, "/api/tags/author?q=gai", nil))
	require.Len(t, list.Tags, 1)
	assert.Equal(t, "Neil Gaiman", list.Tags[0].Name)

	w = env.do(http.MethodGet, "/api/tags/genres", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTagsController_CreateIsIdempotent(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/tags/categories", map[string]string{"name": "  Fantasy "})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := decode[entities.Tag](t, w)
	assert.Equal(t, "Fantasy", first.Name)

	w = env.do(http.MethodPost, "/api/tags/categories", map[string]string{"name": "Fantasy"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, first.ID, decode[entities.Tag](t, w).ID)

	w = env.do(http.MethodPost, "/api/tags/categories", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTagsController_AttachDetach(t *testing.T) {
	env := newTestEnv(t)
	book := env.createBook(entities.BookInput{Title: "Dune", NumberOfPages: 412})
	base := "/api/books/" + itoa(book.ID) + "/tags/"

	w := env.do(http.MethodPost, base+"categories", map[string]string{"name": "Science Fiction"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []string{"Science Fiction"}, decode[BookResponse](t, w).Categories)

	tag, err := env.tags.GetOrCreate(context.Background(), entities.TagKindCategory, "Classics")
	require.NoError(t, err)

	w = env.do(http.MethodPost, base+"categories", map[string]uint{"tag_id": tag.ID})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Science Fiction", "Classics"}, decode[BookResponse](t, w).Categories)

	w = env.do(http.MethodPost, base+"categories", map[string]uint{"tag_id": tag.ID})
	require.Equal(t, http.StatusOK, w.Code, "attaching twice is a no-op")
	assert.Len(t, decode[BookResponse](t, w).Categories, 2)

	w = env.do(http.MethodDelete, base+"categories/"+itoa(tag.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Science Fiction"}, decode[BookResponse](t, w).Categories)

	// the tag itself survives detaching
	_, err = env.tags.Get(context.Background(), entities.TagKindCategory, tag.ID)
	assert.NoError(t, err)

	t.Run("unknown tag id", func(t *testing.T) {
		w := env.do(http.MethodPost, base+"categories", map[string]uint{"tag_id": 999})
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "category not found")
	})

	t.Run("unknown book", func(t *testing.T) {
		w := env.do(http.MethodPost, "/api/books/999/tags/categories", map[string]string{"name": "Orphan"})
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "book not found")
	})

	t.Run("neither id nor name", func(t *testing.T) {
		w := env.do(http.MethodPost, base+"categories", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestTagsController_DeleteIsGlobal(t *testing.T) {
	env := newTestEnv(t)
	a := env.createBook(entities.BookInput{Title: "A", NumberOfPages: 10, Publishers: []string{"Penguin"}})
	b := env.createBook(entities.BookInput{Title: "B", NumberOfPages: 10, Publishers: []string{"Penguin", "Tor"}})

	tag, err := env.tags.GetOrCreate(context.Background(), entities.TagKindPublisher, "Penguin")
	require.NoError(t, err)

	w := env.do(http.MethodDelete, "/api/tags/publishers/"+itoa(tag.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	for id, want := range map[uint][]string{a.ID: {}, b.ID: {"Tor"}} {
		got, err := env.books.GetWithTags(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, want, got.Publishers)
	}

	w = env.do(http.MethodDelete, "/api/tags/publishers/"+itoa(tag.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTagsController_CleanupUnusedTags(t *testing.T) {
	t.Run("runs inline without a task queue", func(t *testing.T) {
		env := newTestEnv(t)
		env.createBook(entities.BookInput{Title: "A", NumberOfPages: 10, Authors: []string{"Kept"}})
		_, err := env.tags.GetOrCreate(context.Background(), entities.TagKindAuthor, "Unused")
		require.NoError(t, err)
		_, err = env.tags.GetOrCreate(context.Background(), entities.TagKindCategory, "Empty")
		require.NoError(t, err)

		w := env.do(http.MethodPost, "/api/admin/tags/cleanup", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := decode[struct {
			Removed map[string]int64 `json:"removed"`
			Total   int64            `json:"total"`
		}](t, w)
		assert.Equal(t, int64(2), resp.Total)
		assert.Equal(t, int64(1), resp.Removed["author"])

		authors, err := env.tags.List(context.Background(), entities.TagKindAuthor)
		require.NoError(t, err)
		require.Len(t, authors, 1)
		assert.Equal(t, "Kept", authors[0].Name)
	})

	t.Run("enqueues with a task queue", func(t *testing.T) {
		queue := &fakeQueue{}
		env := newTestEnv(t, withQueue(queue))

		w := env.do(http.MethodPost, "/api/admin/tags/cleanup", nil)
		require.Equal(t, http.StatusAccepted, w.Code)
		assert.Contains(t, w.Body.String(), `"task_id":"task-cleanup_unused_tags"`)
		assert.Equal(t, []any{tasks.CleanupUnusedTagsTask{}}, toAny(queue.enqueued()))
	})
}
