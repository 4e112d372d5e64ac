package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/database/books"
	"github.com/mrlokans/bookshelf/internal/database/pagelogs"
	"github.com/mrlokans/bookshelf/internal/database/settings"
	"github.com/mrlokans/bookshelf/internal/database/tags"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/library"
	"github.com/mrlokans/bookshelf/internal/settingsstore"
	"github.com/mrlokans/bookshelf/internal/stats"
)

// Friday 2024-03-15.
var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	t        *testing.T
	db       *database.Database
	books    *books.Repository
	logs     *pagelogs.Repository
	tags     *tags.Repository
	settings *settingsstore.SettingsStore
	router   *gin.Engine
}

func newTestEnv(t *testing.T, configure ...func(*RouterConfig)) *testEnv {
	t.Helper()

	for _, env := range []string{
		settingsstore.EnvDefaultSort, settingsstore.EnvDefaultOrder, settingsstore.EnvStatsTimeframe,
		settingsstore.EnvBackupEnabled, settingsstore.EnvBackupSchedule, settingsstore.EnvBackupDir,
	} {
		t.Setenv(env, "")
	}

	dir := t.TempDir()
	db, err := database.NewDatabase(filepath.Join(dir, "bookshelf.db"), database.WithLogLevel(logger.Silent))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	engine, err := library.NewEngine("en")
	require.NoError(t, err)

	tagRepo := tags.NewRepository(db.DB)
	env := &testEnv{
		t:     t,
		db:    db,
		books: books.NewRepository(db.DB, tagRepo),
		logs:  pagelogs.NewRepository(db.DB),
		tags:  tagRepo,
		settings: settingsstore.New(settings.NewRepository(db.DB), settingsstore.Defaults{
			BackupDir: filepath.Join(dir, "backups"),
		}),
	}

	cfg := RouterConfig{
		Context:    context.Background(),
		Version:    "test",
		Database:   db,
		Books:      env.books,
		PageLogs:   env.logs,
		Tags:       env.tags,
		Stats:      stats.NewService(db.DB, stats.DefaultConfig(), func() time.Time { return testNow }),
		Engine:     engine,
		Settings:   env.settings,
		BackupKeep: 5,
	}
	for _, fn := range configure {
		fn(&cfg)
	}
	env.router = NewRouter(cfg)
	return env
}

func (e *testEnv) do(method, path string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) createBook(in entities.BookInput) *entities.BookWithTags {
	e.t.Helper()
	book, err := e.books.Create(context.Background(), in)
	require.NoError(e.t, err)
	return book
}

func (e *testEnv) logPages(bookID uint, start, end int, day string) *entities.PageLog {
	e.t.Helper()
	date, err := entities.ParseDate(day)
	require.NoError(e.t, err)
	entry, err := e.logs.Create(context.Background(), bookID, entities.PageLogInput{
		StartPage: start,
		EndPage:   end,
		ReadDate:  date,
	})
	require.NoError(e.t, err)
	return entry
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// fakeQueue records enqueued tasks instead of running them.
type fakeQueue struct {
	mu       sync.Mutex
	tasks    []backlite.Task
	statuses map[string]backlite.TaskStatus
	err      error
}

func (q *fakeQueue) Enqueue(task backlite.Task) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return "", q.err
	}
	q.tasks = append(q.tasks, task)
	return "task-" + task.Config().Name, nil
}

func (q *fakeQueue) Status(_ context.Context, id string) (backlite.TaskStatus, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if st, ok := q.statuses[id]; ok {
		return st, nil
	}
	return backlite.TaskStatusNotFound, nil
}

func (q *fakeQueue) enqueued() []backlite.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]backlite.Task(nil), q.tasks...)
}

func withQueue(q *fakeQueue) func(*RouterConfig) {
	return func(cfg *RouterConfig) { cfg.Tasks = q }
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func toAny[T any](in []T) []any {
	out := make([]any, 0, len(in))
	for _, v := range in {
		out = append(out, v)
	}
	return out
}
