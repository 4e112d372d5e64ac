// Package tags provides database operations for authors, categories and
// publishers, and for their many-to-many links to books.
//
// All three dimensions share one implementation. The entities.TagKind passed
// to every method selects the tag table, its key column and the join table;
// identifiers are never built from user input.
//
// # Usage
//
//	repo := tags.NewRepository(db)
//	tag, err := repo.GetOrCreate(ctx, entities.TagKindAuthor, "Ursula K. Le Guin")
//	err = repo.Attach(ctx, entities.TagKindAuthor, bookID, tag.ID)
package tags

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/bookshelf/internal/entities"
)

// Repository handles all tag database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new tags repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func checkKind(kind entities.TagKind) error {
	if !kind.Valid() {
		return entities.NewValidationError("kind", fmt.Sprintf("unknown tag kind %q", string(kind)))
	}
	return nil
}

// GetOrCreate returns the tag with exactly this (trimmed) name, creating it
// when absent. Matching is case-sensitive.
func (r *Repository) GetOrCreate(ctx context.Context, kind entities.TagKind, name string) (*entities.Tag, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	return getOrCreate(r.db.WithContext(ctx), kind, name)
}

func getOrCreate(tx *gorm.DB, kind entities.TagKind, name string) (*entities.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, entities.NewValidationError("name", "must not be empty")
	}

	tag, err := findByName(tx, kind, name)
	if err == nil {
		return tag, nil
	}
	if !errors.Is(err, entities.ErrNotFound) {
		return nil, err
	}

	// A concurrent insert of the same name is absorbed by the unique index.
	insert := fmt.Sprintf("INSERT INTO %s (name) VALUES (?) ON CONFLICT(name) DO NOTHING", kind.Table())
	if err := tx.Exec(insert, name).Error; err != nil {
		return nil, fmt.Errorf("failed to create %s %q: %w", kind, name, err)
	}
	return findByName(tx, kind, name)
}

func findByName(tx *gorm.DB, kind entities.TagKind, name string) (*entities.Tag, error) {
	var tag entities.Tag
	query := fmt.Sprintf("SELECT %s AS id, name FROM %s WHERE name = ?", kind.IDColumn(), kind.Table())
	res := tx.Raw(query, name).Scan(&tag)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to look up %s %q: %w", kind, name, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, entities.ErrNotFound
	}
	tag.Kind = kind
	return &tag, nil
}

// Get retrieves a tag by ID together with its usage count.
func (r *Repository) Get(ctx context.Context, kind entities.TagKind, id uint) (*entities.Tag, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	var tag entities.Tag
	query := listQuery(kind, "WHERE t."+kind.IDColumn()+" = ?")
	res := r.db.WithContext(ctx).Raw(query, id).Scan(&tag)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to get %s %d: %w", kind, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, entities.ErrNotFound
	}
	tag.Kind = kind
	return &tag, nil
}

// List returns every tag of the kind ordered by name, with usage counts.
func (r *Repository) List(ctx context.Context, kind entities.TagKind) ([]entities.Tag, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	var tags []entities.Tag
	if err := r.db.WithContext(ctx).Raw(listQuery(kind, "")).Scan(&tags).Error; err != nil {
		return nil, fmt.Errorf("failed to list %s tags: %w", kind, err)
	}
	return withKind(tags, kind), nil
}

// Search returns tags whose name contains query (case-insensitive).
func (r *Repository) Search(ctx context.Context, kind entities.TagKind, query string) ([]entities.Tag, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return r.List(ctx, kind)
	}
	pattern := "%" + escapeLike(query) + "%"
	var tags []entities.Tag
	sql := listQuery(kind, `WHERE LOWER(t.name) LIKE LOWER(?) ESCAPE '\'`)
	if err := r.db.WithContext(ctx).Raw(sql, pattern).Scan(&tags).Error; err != nil {
		return nil, fmt.Errorf("failed to search %s tags: %w", kind, err)
	}
	return withKind(tags, kind), nil
}

func listQuery(kind entities.TagKind, where string) string {
	return fmt.Sprintf(`
		SELECT t.%[1]s AS id, t.name AS name, COUNT(j.book_id) AS book_count
		FROM %[2]s t
		LEFT JOIN %[3]s j ON j.%[1]s = t.%[1]s
		%[4]s
		GROUP BY t.%[1]s, t.name
		ORDER BY t.name`, kind.IDColumn(), kind.Table(), kind.JoinTable(), where)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func withKind(tags []entities.Tag, kind entities.TagKind) []entities.Tag {
	for i := range tags {
		tags[i].Kind = kind
	}
	return tags
}

// ForBook returns the tags attached to a book in the order they were attached.
func (r *Repository) ForBook(ctx context.Context, kind entities.TagKind, bookID uint) ([]entities.Tag, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	var tags []entities.Tag
	query := fmt.Sprintf(`
		SELECT t.%[1]s AS id, t.name AS name
		FROM %[2]s t
		JOIN %[3]s j ON j.%[1]s = t.%[1]s
		WHERE j.book_id = ?
		ORDER BY j.rowid`, kind.IDColumn(), kind.Table(), kind.JoinTable())
	if err := r.db.WithContext(ctx).Raw(query, bookID).Scan(&tags).Error; err != nil {
		return nil, fmt.Errorf("failed to load %s tags for book %d: %w", kind, bookID, err)
	}
	return withKind(tags, kind), nil
}

// NamesByBook maps book IDs to their tag names of one kind. A nil bookIDs
// slice loads the names for every book.
func (r *Repository) NamesByBook(ctx context.Context, kind entities.TagKind, bookIDs []uint) (map[uint][]string, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	if bookIDs != nil && len(bookIDs) == 0 {
		return map[uint][]string{}, nil
	}

	type row struct {
		BookID uint
		Name   string
	}
	query := fmt.Sprintf(`
		SELECT j.book_id AS book_id, t.name AS name
		FROM %[3]s j
		JOIN %[2]s t ON t.%[1]s = j.%[1]s`, kind.IDColumn(), kind.Table(), kind.JoinTable())
	var args []any
	if bookIDs != nil {
		query += " WHERE j.book_id IN ?"
		args = append(args, bookIDs)
	}
	query += " ORDER BY j.book_id, j.rowid"

	var rows []row
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load %s names: %w", kind, err)
	}
	out := make(map[uint][]string)
	for _, rw := range rows {
		out[rw.BookID] = append(out[rw.BookID], rw.Name)
	}
	return out, nil
}

// Attach links a tag to a book. Attaching an existing link is a no-op.
func (r *Repository) Attach(ctx context.Context, kind entities.TagKind, bookID, tagID uint) error {
	if err := checkKind(kind); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireBookAndTag(tx, kind, bookID, tagID); err != nil {
			return err
		}
		return attach(tx, kind, bookID, tagID)
	})
}

func attach(tx *gorm.DB, kind entities.TagKind, bookID, tagID uint) error {
	stmt := fmt.Sprintf("INSERT INTO %s (book_id, %s) VALUES (?, ?) ON CONFLICT DO NOTHING",
		kind.JoinTable(), kind.IDColumn())
	if err := tx.Exec(stmt, bookID, tagID).Error; err != nil {
		return fmt.Errorf("failed to attach %s %d to book %d: %w", kind, tagID, bookID, err)
	}
	return nil
}

// Detach removes the link between a book and a tag. The tag itself is kept
// even when no other book uses it.
func (r *Repository) Detach(ctx context.Context, kind entities.TagKind, bookID, tagID uint) error {
	if err := checkKind(kind); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireBookAndTag(tx, kind, bookID, tagID); err != nil {
			return err
		}
		stmt := fmt.Sprintf("DELETE FROM %s WHERE book_id = ? AND %s = ?", kind.JoinTable(), kind.IDColumn())
		if err := tx.Exec(stmt, bookID, tagID).Error; err != nil {
			return fmt.Errorf("failed to detach %s %d from book %d: %w", kind, tagID, bookID, err)
		}
		return nil
	})
}

func requireBookAndTag(tx *gorm.DB, kind entities.TagKind, bookID, tagID uint) error {
	var n int64
	if err := tx.Model(&entities.Book{}).Where("book_id = ?", bookID).Count(&n).Error; err != nil {
		return fmt.Errorf("failed to check book %d: %w", bookID, err)
	}
	if n == 0 {
		return fmt.Errorf("book %d: %w", bookID, entities.ErrNotFound)
	}
	if err := tx.Table(kind.Table()).Where(kind.IDColumn()+" = ?", tagID).Count(&n).Error; err != nil {
		return fmt.Errorf("failed to check %s %d: %w", kind, tagID, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", kind, tagID, entities.ErrNotFound)
	}
	return nil
}

// ReplaceForBook sets the tags of one kind for one book to exactly names,
// creating missing tags. It runs inside the caller's transaction and never
// touches other books' links.
func (r *Repository) ReplaceForBook(tx *gorm.DB, kind entities.TagKind, bookID uint, names []string) error {
	if err := checkKind(kind); err != nil {
		return err
	}
	names = entities.NormalizeTagNames(names)

	ids := make([]uint, 0, len(names))
	for _, name := range names {
		tag, err := getOrCreate(tx, kind, name)
		if err != nil {
			return err
		}
		ids = append(ids, tag.ID)
	}

	reset := fmt.Sprintf("DELETE FROM %s WHERE book_id = ?", kind.JoinTable())
	if err := tx.Exec(reset, bookID).Error; err != nil {
		return fmt.Errorf("failed to clear %s tags of book %d: %w", kind, bookID, err)
	}
	for _, id := range ids {
		if err := attach(tx, kind, bookID, id); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a tag globally: every book loses it.
func (r *Repository) Delete(ctx context.Context, kind entities.TagKind, tagID uint) error {
	if err := checkKind(kind); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Table(kind.Table()).Where(kind.IDColumn()+" = ?", tagID).Count(&n).Error; err != nil {
			return fmt.Errorf("failed to check %s %d: %w", kind, tagID, err)
		}
		if n == 0 {
			return fmt.Errorf("%s %d: %w", kind, tagID, entities.ErrNotFound)
		}

		joins := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", kind.JoinTable(), kind.IDColumn())
		if err := tx.Exec(joins, tagID).Error; err != nil {
			return fmt.Errorf("failed to unlink %s %d: %w", kind, tagID, err)
		}
		row := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", kind.Table(), kind.IDColumn())
		if err := tx.Exec(row, tagID).Error; err != nil {
			return fmt.Errorf("failed to delete %s %d: %w", kind, tagID, err)
		}
		return nil
	})
}

// DeleteUnused removes tags of the kind that no book references.
func (r *Repository) DeleteUnused(ctx context.Context, kind entities.TagKind) (int64, error) {
	if err := checkKind(kind); err != nil {
		return 0, err
	}
	stmt := fmt.Sprintf("DELETE FROM %[1]s WHERE %[2]s NOT IN (SELECT %[2]s FROM %[3]s)",
		kind.Table(), kind.IDColumn(), kind.JoinTable())
	res := r.db.WithContext(ctx).Exec(stmt)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete unused %s tags: %w", kind, res.Error)
	}
	return res.RowsAffected, nil
}
