package tags

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, *gorm.DB) {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "tags.db"), database.WithLogLevel(logger.Silent))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db.DB), db.DB
}

func createBook(t *testing.T, db *gorm.DB, title string) uint {
	t.Helper()
	book := entities.Book{Title: title, NumberOfPages: 100}
	require.NoError(t, db.Create(&book).Error)
	return book.ID
}

func TestRepository_GetOrCreate_Idempotent(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()

	first, err := repo.GetOrCreate(ctx, entities.TagKindAuthor, "Ursula K. Le Guin")
	require.NoError(t, err)
	assert.NotZero(t, first.ID)
	assert.Equal(t, entities.TagKindAuthor, first.Kind)

	second, err := repo.GetOrCreate(ctx, entities.TagKindAuthor, "  Ursula K. Le Guin ")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	all, err := repo.List(ctx, entities.TagKindAuthor)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRepository_GetOrCreate_CaseSensitive(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()

	a, err := repo.GetOrCreate(ctx, entities.TagKindCategory, "Fiction")
	require.NoError(t, err)
	b, err := repo.GetOrCreate(ctx, entities.TagKindCategory, "fiction")
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
}

func TestRepository_GetOrCreate_EmptyName(t *testing.T) {
	repo, _ := setupTestDB(t)

	_, err := repo.GetOrCreate(context.Background(), entities.TagKindPublisher, "   ")
	assert.True(t, errors.Is(err, entities.ErrValidation))
}

func TestRepository_InvalidKind(t *testing.T) {
	repo, _ := setupTestDB(t)

	_, err := repo.List(context.Background(), entities.TagKind("genre"))
	assert.True(t, errors.Is(err, entities.ErrValidation))
}

func TestRepository_Attach_DuplicateIsNoop(t *testing.T) {
	repo, db := setupTestDB(t)
	ctx := context.Background()
	bookID := createBook(t, db, "The Dispossessed")
	tag, err := repo.GetOrCreate(ctx, entities.TagKindAuthor, "Ursula K. Le Guin")
	require.NoError(t, err)

	require.NoError(t, repo.Attach(ctx, entities.TagKindAuthor, bookID, tag.ID))
	require.NoError(t, repo.Attach(ctx, entities.TagKindAuthor, bookID, tag.ID))

	var n int64
	db.Model(&entities.BookAuthor{}).Count(&n)
	assert.Equal(t, int64(1), n)
}

func TestRepository_Attach_MissingBookOrTag(t *testing.T) {
	repo, db := setupTestDB(t)
	ctx := context.Background()
	bookID := createBook(t, db, "Book")
	tag, err := repo.GetOrCreate(ctx, entities.TagKindCategory, "SF")
	require.NoError(t, err)

	err = repo.Attach(ctx, entities.TagKindCategory, 999, tag.ID)
	assert.True(t, errors.Is(err, entities.ErrNotFound))

	err = repo.Attach(ctx, entities.TagKindCategory, bookID, 999)
	assert.True(t, errors.Is(err, entities.ErrNotFound))
}

func TestRepository_Detach_KeepsTag(t *testing.T) {
	repo, db := setupTestDB(t)
	ctx := context.Background()
	bookID := createBook(t, db, "Book")
	tag, err := repo.GetOrCreate(ctx, entities.TagKindPublisher, "Ace")
	require.NoError(t, err)
	require.NoError(t, repo.Attach(ctx, entities.TagKindPublisher, bookID, tag.ID))

	require.NoError(t, repo.Detach(ctx, entities.TagKindPublisher, bookID, tag.ID))

	attached, err := repo.ForBook(ctx, entities.TagKindPublisher, bookID)
	require.NoError(t, err)
	assert.Empty(t, attached)

	kept, err := repo.Get(ctx, entities.TagKindPublisher, tag.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ace", kept.Name)
	assert.Zero(t, kept.BookCount)
}

func TestRepository_ReplaceForBook_ScopedToBook(t *testing.T) {
	repo, db := setupTestDB(t)
	ctx := context.Background()
	bookA := createBook(t, db, "A")
	bookB := createBook(t, db, "B")

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return repo.ReplaceForBook(tx, entities.TagKindCategory, bookA, []string{"Fiction", "Classics"})
	}))
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return repo.ReplaceForBook(tx, entities.TagKindCategory, bookB, []string{"Fiction"})
	}))

	// Dropping Fiction from A must leave B untouched.
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return repo.ReplaceForBook(tx, entities.TagKindCategory, bookA, []string{"Classics", "Essays", "Classics"})
	}))

	tagsA, err := repo.ForBook(ctx, entities.TagKindCategory, bookA)
	require.NoError(t, err)
	assert.Equal(t, []string{"Classics", "Essays"}, tagNames(tagsA))

	tagsB, err := repo.ForBook(ctx, entities.TagKindCategory, bookB)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fiction"}, tagNames(tagsB))
}

func TestRepository_ReplaceForBook_EmptyClears(t *testing.T) {
	repo, db := setupTestDB(t)
	ctx := context.Background()
	bookID := createBook(t, db, "A")

	require.NoError(t, repo.ReplaceForBook(db, entities.TagKindAuthor, bookID, []string{"X", "Y"}))
	require.NoError(t, repo.ReplaceForBook(db, entities.TagKindAuthor, bookID, nil))

	attached, err := repo.ForBook(ctx, entities.TagKindAuthor, bookID)
	require.NoError(t, err)
	assert.Empty(t, attached)
}

func TestRepository_Delete_Global(t *testing.T) {
	repo, db := setupTestDB(t)
	ctx := context.Background()
	bookA := createBook(t, db, "A")
	bookB := createBook(t, db, "B")
	tag, err := repo.GetOrCreate(ctx, entities.TagKindCategory, "Fiction")
	require.NoError(t, err)
	require.NoError(t, repo.Attach(ctx, entities.TagKindCategory, bookA, tag.ID))
	require.NoError(t, repo.Attach(ctx, entities.TagKindCategory, bookB, tag.ID))

	require.NoError(t, repo.Delete(ctx, entities.TagKindCategory, tag.ID))

	_, err = repo.Get(ctx, entities.TagKindCategory, tag.ID)
	assert.True(t, errors.Is(err, entities.ErrNotFound))
	var n int64
	db.Model(&entities.BookCategory{}).Count(&n)
	assert.Zero(t, n)

	err = repo.Delete(ctx, entities.TagKindCategory, tag.ID)
	assert.True(t, errors.Is(err, entities.ErrNotFound))
}

func TestRepository_ListAndSearch(t *testing.T) {
	repo, db := setupTestDB(t)
	ctx := context.Background()
	bookID := createBook(t, db, "A")
	for _, name := range []string{"Zadie Smith", "Alan Moore", "Ann Leckie"} {
		tag, err := repo.GetOrCreate(ctx, entities.TagKindAuthor, name)
		require.NoError(t, err)
		if name == "Ann Leckie" {
			require.NoError(t, repo.Attach(ctx, entities.TagKindAuthor, bookID, tag.ID))
		}
	}

	all, err := repo.List(ctx, entities.TagKindAuthor)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alan Moore", "Ann Leckie", "Zadie Smith"}, tagNames(all))
	assert.Equal(t, int64(1), all[1].BookCount)

	found, err := repo.Search(ctx, entities.TagKindAuthor, "an")
	require.NoError(t, err)
	assert.Equal(t, []string{"Alan Moore", "Ann Leckie"}, tagNames(found))

	none, err := repo.Search(ctx, entities.TagKindAuthor, "%")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRepository_NamesByBook(t *testing.T) {
	repo, db := setupTestDB(t)
	ctx := context.Background()
	bookA := createBook(t, db, "A")
	bookB := createBook(t, db, "B")
	require.NoError(t, repo.ReplaceForBook(db, entities.TagKindAuthor, bookA, []string{"Terry Pratchett", "Neil Gaiman"}))
	require.NoError(t, repo.ReplaceForBook(db, entities.TagKindAuthor, bookB, []string{"Neil Gaiman"}))

	all, err := repo.NamesByBook(ctx, entities.TagKindAuthor, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Terry Pratchett", "Neil Gaiman"}, all[bookA])
	assert.Equal(t, []string{"Neil Gaiman"}, all[bookB])

	onlyB, err := repo.NamesByBook(ctx, entities.TagKindAuthor, []uint{bookB})
	require.NoError(t, err)
	assert.Len(t, onlyB, 1)

	empty, err := repo.NamesByBook(ctx, entities.TagKindAuthor, []uint{})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRepository_DeleteUnused(t *testing.T) {
	repo, db := setupTestDB(t)
	ctx := context.Background()
	bookID := createBook(t, db, "A")
	require.NoError(t, repo.ReplaceForBook(db, entities.TagKindPublisher, bookID, []string{"Used"}))
	_, err := repo.GetOrCreate(ctx, entities.TagKindPublisher, "Orphan")
	require.NoError(t, err)

	removed, err := repo.DeleteUnused(ctx, entities.TagKindPublisher)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	left, err := repo.List(ctx, entities.TagKindPublisher)
	require.NoError(t, err)
	assert.Equal(t, []string{"Used"}, tagNames(left))
}

func tagNames(tags []entities.Tag) []string {
	out := make([]string, 0, len(tags))
	for _, tg := range tags {
		out = append(out, tg.Name)
	}
	return out
}
