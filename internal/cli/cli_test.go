package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookshelf/internal/backup"
	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/database/books"
	"github.com/mrlokans/bookshelf/internal/database/tags"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/metadata"
)

func addBook(t *testing.T, dbPath, title string) {
	t.Helper()
	db, err := database.NewDatabase(dbPath, database.WithLogLevel(logger.Silent))
	require.NoError(t, err)
	defer db.Close()

	repo := books.NewRepository(db.DB, tags.NewRepository(db.DB))
	_, err = repo.Create(context.Background(), entities.BookInput{Title: title, NumberOfPages: 100})
	require.NoError(t, err)
}

func countBooks(t *testing.T, dbPath string) int64 {
	t.Helper()
	db, err := database.NewDatabase(dbPath, database.WithLogLevel(logger.Silent))
	require.NoError(t, err)
	defer db.Close()

	n, err := books.NewRepository(db.DB, tags.NewRepository(db.DB)).Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestBackupCommand_ParseFlags(t *testing.T) {
	cmd := NewBackupCommand()
	require.NoError(t, cmd.ParseFlags([]string{"-db", "x.db", "-dir", "out", "-keep", "3"}))
	assert.Equal(t, "x.db", cmd.DatabasePath)
	assert.Equal(t, "out", cmd.BackupDir)
	assert.Equal(t, 3, cmd.Keep)

	assert.Error(t, NewBackupCommand().ParseFlags([]string{"-keep", "-1"}))
}

func TestBackupCommand_MissingDatabase(t *testing.T) {
	cmd := NewBackupCommand()
	cmd.DatabasePath = filepath.Join(t.TempDir(), "nope.db")
	cmd.BackupDir = t.TempDir()

	assert.Error(t, cmd.Run(context.Background()))
}

func TestBackupAndRestore(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "bookshelf.db")
	backupDir := filepath.Join(dir, "backups")
	addBook(t, dbPath, "Dune")

	var out bytes.Buffer
	bc := NewBackupCommand()
	bc.out = &out
	bc.DatabasePath = dbPath
	bc.BackupDir = backupDir
	require.NoError(t, bc.Run(context.Background()))
	assert.Contains(t, out.String(), "Backup written")

	snapshots, err := backup.List(backupDir)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)

	addBook(t, dbPath, "Hyperion")
	require.Equal(t, int64(2), countBooks(t, dbPath))

	out.Reset()
	rc := NewRestoreCommand()
	rc.out = &out
	rc.DatabasePath = dbPath
	rc.BackupDir = backupDir
	rc.From = snapshots[0].ID
	require.NoError(t, rc.Run(context.Background()))
	assert.Contains(t, out.String(), "Restored")

	assert.Equal(t, int64(1), countBooks(t, dbPath))

	// The pre-restore snapshot sits next to the original one.
	after, err := backup.List(backupDir)
	require.NoError(t, err)
	assert.Len(t, after, 2)

	out.Reset()
	bc.List = true
	require.NoError(t, bc.Run(context.Background()))
	assert.Contains(t, out.String(), "2 backups")
}

func TestRestoreCommand_Errors(t *testing.T) {
	assert.Error(t, NewRestoreCommand().ParseFlags(nil))

	rc := NewRestoreCommand()
	rc.BackupDir = t.TempDir()
	rc.DatabasePath = filepath.Join(t.TempDir(), "bookshelf.db")
	rc.From = "missing-id"
	assert.ErrorIs(t, rc.Run(context.Background()), backup.ErrBackupNotFound)

	junk := filepath.Join(t.TempDir(), "junk.db")
	require.NoError(t, os.WriteFile(junk, []byte("not sqlite"), 0o644))
	rc.From = junk
	assert.ErrorIs(t, rc.Run(context.Background()), backup.ErrInvalidBackup)
}

func TestLookupCommand_ParseFlags(t *testing.T) {
	assert.Error(t, NewLookupCommand().ParseFlags(nil))
	assert.Error(t, NewLookupCommand().ParseFlags([]string{"-isbn", "1", "-q", "x"}))

	cmd := NewLookupCommand()
	require.NoError(t, cmd.ParseFlags([]string{"-q", "dune"}))
	assert.Equal(t, "dune", cmd.Query)
}

func TestLookupCommand_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search.json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"numFound":1,"docs":[{"title":"Dune","author_name":["Frank Herbert"],"first_publish_year":1965}]}`))
	}))
	defer srv.Close()

	var out bytes.Buffer
	cmd := NewLookupCommand()
	cmd.out = &out
	require.NoError(t, cmd.ParseFlags([]string{"-q", "dune", "-url", srv.URL}))
	require.NoError(t, cmd.Run(context.Background()))

	var results []metadata.BookMetadata
	require.NoError(t, json.Unmarshal(out.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "Dune", results[0].Title)
	assert.Equal(t, []string{"Frank Herbert"}, results[0].Authors)
	assert.Equal(t, 1965, results[0].PublishYear)
}
