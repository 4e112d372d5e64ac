package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookshelf/internal/covers"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/tasks"
)

func newTestCoverCache(t *testing.T) *covers.Cache {
	t.Helper()
	cache, err := covers.NewCache(filepath.Join(t.TempDir(), "covers"), 5*time.Second)
	require.NoError(t, err)
	return cache
}

func withCovers(cache *covers.Cache) func(*RouterConfig) {
	return func(cfg *RouterConfig) { cfg.CoverCache = cache }
}

func TestCoversController_GetCover(t *testing.T) {
	cache := newTestCoverCache(t)
	env := newTestEnv(t, withCovers(cache))

	t.Run("serves the cached file", func(t *testing.T) {
		src := filepath.Join(t.TempDir(), "cover.jpg")
		require.NoError(t, os.WriteFile(src, []byte("jpeg-bytes"), 0o644))
		path, err := cache.PersistLocal(src)
		require.NoError(t, err)

		book := env.createBook(entities.BookInput{Title: "Local", NumberOfPages: 10, CoverURL: "https://covers.example.com/1.jpg"})
		require.NoError(t, env.books.SetCoverPath(context.Background(), book.ID, path))

		w := env.do(http.MethodGet, "/api/books/"+itoa(book.ID)+"/cover", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "jpeg-bytes", w.Body.String())
	})

	t.Run("redirects to the remote cover", func(t *testing.T) {
		book := env.createBook(entities.BookInput{Title: "Remote", NumberOfPages: 10, CoverURL: "https://covers.example.com/2.jpg"})

		w := env.do(http.MethodGet, "/api/books/"+itoa(book.ID)+"/cover", nil)
		assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
		assert.Equal(t, "https://covers.example.com/2.jpg", w.Header().Get("Location"))
	})

	t.Run("missing cache file falls back to remote", func(t *testing.T) {
		book := env.createBook(entities.BookInput{Title: "Stale", NumberOfPages: 10, CoverURL: "https://covers.example.com/3.jpg"})
		require.NoError(t, env.books.SetCoverPath(context.Background(), book.ID, filepath.Join(cache.CacheDir(), "gone.jpg")))

		w := env.do(http.MethodGet, "/api/books/"+itoa(book.ID)+"/cover", nil)
		assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	})

	t.Run("no cover", func(t *testing.T) {
		book := env.createBook(entities.BookInput{Title: "Plain", NumberOfPages: 10})

		w := env.do(http.MethodGet, "/api/books/"+itoa(book.ID)+"/cover", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "cover not found")
	})

	t.Run("unknown book", func(t *testing.T) {
		w := env.do(http.MethodGet, "/api/books/999/cover", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "book not found")
	})
}

func TestCoversController_CacheCover(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cover.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer server.Close()

	t.Run("downloads inline", func(t *testing.T) {
		cache := newTestCoverCache(t)
		env := newTestEnv(t, withCovers(cache))
		book := env.createBook(entities.BookInput{Title: "Remote", NumberOfPages: 10, CoverURL: server.URL + "/cover.png"})

		w := env.do(http.MethodPost, "/api/books/"+itoa(book.ID)+"/cover/cache", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := decode[struct {
			CoverPath string `json:"cover_path"`
		}](t, w)
		assert.Equal(t, ".png", filepath.Ext(resp.CoverPath))

		data, err := os.ReadFile(resp.CoverPath)
		require.NoError(t, err)
		assert.Equal(t, "png-bytes", string(data))

		stored, err := env.books.Get(context.Background(), book.ID)
		require.NoError(t, err)
		assert.Equal(t, resp.CoverPath, stored.CoverPath)
	})

	t.Run("download failure", func(t *testing.T) {
		env := newTestEnv(t, withCovers(newTestCoverCache(t)))
		book := env.createBook(entities.BookInput{Title: "Broken", NumberOfPages: 10, CoverURL: server.URL + "/missing.png"})

		w := env.do(http.MethodPost, "/api/books/"+itoa(book.ID)+"/cover/cache", nil)
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("book without cover url", func(t *testing.T) {
		env := newTestEnv(t, withCovers(newTestCoverCache(t)))
		book := env.createBook(entities.BookInput{Title: "Plain", NumberOfPages: 10})

		w := env.do(http.MethodPost, "/api/books/"+itoa(book.ID)+"/cover/cache", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("enqueues with a task queue", func(t *testing.T) {
		queue := &fakeQueue{}
		env := newTestEnv(t, withCovers(newTestCoverCache(t)), withQueue(queue))
		book := env.createBook(entities.BookInput{Title: "Queued", NumberOfPages: 10, CoverURL: server.URL + "/cover.png"})

		w := env.do(http.MethodPost, "/api/books/"+itoa(book.ID)+"/cover/cache", nil)
		require.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, []any{tasks.CacheCoverTask{BookID: book.ID}}, toAny(queue.enqueued()))
	})
}

func TestCoversController_RejectsPathsOutsideCache(t *testing.T) {
	cache := newTestCoverCache(t)
	env := newTestEnv(t, withCovers(cache))

	secret := filepath.Join(t.TempDir(), "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("TOP-SECRET"), 0o644))

	t.Run("create", func(t *testing.T) {
		w := env.do(http.MethodPost, "/api/books", entities.BookInput{Title: "Leak", NumberOfPages: 10, CoverPath: secret})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "cover_path")
	})

	t.Run("update", func(t *testing.T) {
		book := env.createBook(entities.BookInput{Title: "Plain", NumberOfPages: 10})

		w := env.do(http.MethodPut, "/api/books/"+itoa(book.ID), entities.BookInput{Title: "Plain", NumberOfPages: 10, CoverPath: secret})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "cover_path")
	})

	t.Run("stored path is not served", func(t *testing.T) {
		book := env.createBook(entities.BookInput{Title: "Stored", NumberOfPages: 10})
		require.NoError(t, env.books.SetCoverPath(context.Background(), book.ID, secret))

		w := env.do(http.MethodGet, "/api/books/"+itoa(book.ID)+"/cover", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.NotContains(t, w.Body.String(), "TOP-SECRET")
	})

	t.Run("without a cache every path is rejected", func(t *testing.T) {
		bare := newTestEnv(t)
		w := bare.do(http.MethodPost, "/api/books", entities.BookInput{Title: "Leak", NumberOfPages: 10, CoverPath: secret})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
