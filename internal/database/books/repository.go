// Package books provides database operations for books and the
// book-with-tags read model consumed by the library query engine.
//
// Book writes that also change tag links run in one transaction, so a book is
// never left with a partial set of authors, categories or publishers.
//
// # Usage
//
//	repo := books.NewRepository(db, tags.NewRepository(db))
//	book, err := repo.Create(ctx, entities.BookInput{Title: "Dune", NumberOfPages: 412})
//	all, err := repo.ListWithTags(ctx)
package books

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/bookshelf/internal/database/tags"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/validation"
)

// Repository handles all book database operations.
type Repository struct {
	db        *gorm.DB
	tags      *tags.Repository
	validator *validation.Validator
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB, tagRepo *tags.Repository) *Repository {
	return &Repository{db: db, tags: tagRepo, validator: validation.New()}
}

// Get retrieves a book by ID.
func (r *Repository) Get(ctx context.Context, id uint) (*entities.Book, error) {
	return getBook(r.db.WithContext(ctx), id)
}

func getBook(tx *gorm.DB, id uint) (*entities.Book, error) {
	var book entities.Book
	err := tx.First(&book, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("book %d: %w", id, entities.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get book %d: %w", id, err)
	}
	return &book, nil
}

// GetWithTags retrieves a book with its author, category and publisher names.
func (r *Repository) GetWithTags(ctx context.Context, id uint) (*entities.BookWithTags, error) {
	book, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	out, err := r.withTags(ctx, []entities.Book{*book}, []uint{book.ID})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// ListWithTags returns every book in insertion order with its tag names.
// Tag names are loaded with one query per join table.
func (r *Repository) ListWithTags(ctx context.Context) ([]entities.BookWithTags, error) {
	var books []entities.Book
	if err := r.db.WithContext(ctx).Order("book_id").Find(&books).Error; err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return r.withTags(ctx, books, nil)
}

func (r *Repository) withTags(ctx context.Context, books []entities.Book, ids []uint) ([]entities.BookWithTags, error) {
	names := make(map[entities.TagKind]map[uint][]string, len(entities.TagKinds))
	for _, kind := range entities.TagKinds {
		byBook, err := r.tags.NamesByBook(ctx, kind, ids)
		if err != nil {
			return nil, err
		}
		names[kind] = byBook
	}

	out := make([]entities.BookWithTags, 0, len(books))
	for _, b := range books {
		out = append(out, entities.BookWithTags{
			Book:       b,
			Authors:    nonNil(names[entities.TagKindAuthor][b.ID]),
			Categories: nonNil(names[entities.TagKindCategory][b.ID]),
			Publishers: nonNil(names[entities.TagKindPublisher][b.ID]),
		})
	}
	return out, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Create inserts a book and its tag links in one transaction.
func (r *Repository) Create(ctx context.Context, in entities.BookInput) (*entities.BookWithTags, error) {
	if err := r.validate(in); err != nil {
		return nil, err
	}

	book := entities.Book{}
	applyInput(&book, in)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkUnique(tx, &book); err != nil {
			return err
		}
		if err := tx.Create(&book).Error; err != nil {
			return fmt.Errorf("failed to create book: %w", err)
		}
		return r.replaceTags(tx, book.ID, in)
	})
	if err != nil {
		return nil, err
	}
	return r.GetWithTags(ctx, book.ID)
}

// Update replaces the editable fields and the tag sets of a book.
// Progress fields (current_page, last_read) and date_added are not touched.
// An empty cover_path keeps the stored one unless cover_url changes.
func (r *Repository) Update(ctx context.Context, id uint, in entities.BookInput) (*entities.BookWithTags, error) {
	if err := r.validate(in); err != nil {
		return nil, err
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		book, err := getBook(tx, id)
		if err != nil {
			return err
		}
		if in.NumberOfPages < book.CurrentPage {
			return entities.NewValidationError("number_of_pages",
				fmt.Sprintf("must be at least the current page (%d)", book.CurrentPage))
		}

		prevURL, prevPath := book.CoverURL, book.CoverPath
		applyInput(book, in)
		// An omitted cover_path keeps the cached file while the remote
		// cover it was downloaded from stays the same.
		if book.CoverPath == "" && book.CoverURL == prevURL {
			book.CoverPath = prevPath
		}
		if err := checkUnique(tx, book); err != nil {
			return err
		}
		// Select("*") so cleared optional fields are written as NULL/empty.
		err = tx.Model(book).
			Select("*").
			Omit("book_id", "date_added", "current_page", "last_read").
			Updates(book).Error
		if err != nil {
			return fmt.Errorf("failed to update book %d: %w", id, err)
		}
		return r.replaceTags(tx, id, in)
	})
	if err != nil {
		return nil, err
	}
	return r.GetWithTags(ctx, id)
}

// Delete removes a book, its page logs and its tag links. Tags themselves are kept.
func (r *Repository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getBook(tx, id); err != nil {
			return err
		}
		if err := tx.Where("book_id = ?", id).Delete(&entities.PageLog{}).Error; err != nil {
			return fmt.Errorf("failed to delete logs of book %d: %w", id, err)
		}
		for _, kind := range entities.TagKinds {
			if err := tx.Exec("DELETE FROM "+kind.JoinTable()+" WHERE book_id = ?", id).Error; err != nil {
				return fmt.Errorf("failed to unlink %s tags of book %d: %w", kind, id, err)
			}
		}
		if err := tx.Delete(&entities.Book{}, id).Error; err != nil {
			return fmt.Errorf("failed to delete book %d: %w", id, err)
		}
		return nil
	})
}

// SetCoverPath records the locally cached cover file of a book.
func (r *Repository) SetCoverPath(ctx context.Context, id uint, path string) error {
	res := r.db.WithContext(ctx).Model(&entities.Book{}).Where("book_id = ?", id).Update("cover_path", path)
	if res.Error != nil {
		return fmt.Errorf("failed to set cover path of book %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("book %d: %w", id, entities.ErrNotFound)
	}
	return nil
}

// FindByISBN retrieves a book by its ISBN.
func (r *Repository) FindByISBN(ctx context.Context, isbn string) (*entities.Book, error) {
	var book entities.Book
	err := r.db.WithContext(ctx).Where("isbn = ?", strings.TrimSpace(isbn)).First(&book).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, entities.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find book by isbn: %w", err)
	}
	return &book, nil
}

// Count returns the number of books in the library.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entities.Book{}).Count(&n).Error
	return n, err
}

func (r *Repository) validate(in entities.BookInput) error {
	if err := r.validator.Validate(in); err != nil {
		return err
	}
	if strings.TrimSpace(in.Title) == "" {
		return entities.NewValidationError("title", "is required")
	}
	return nil
}

func (r *Repository) replaceTags(tx *gorm.DB, bookID uint, in entities.BookInput) error {
	for _, kind := range entities.TagKinds {
		if err := r.tags.ReplaceForBook(tx, kind, bookID, in.TagNames(kind)); err != nil {
			return err
		}
	}
	return nil
}

func applyInput(book *entities.Book, in entities.BookInput) {
	book.BookType = entities.NormalizeBookType(entities.BookType(strings.TrimSpace(string(in.BookType))))
	book.Title = strings.TrimSpace(in.Title)
	book.CoverURL = strings.TrimSpace(in.CoverURL)
	book.CoverPath = strings.TrimSpace(in.CoverPath)
	book.NumberOfPages = in.NumberOfPages
	book.ISBN = entities.NullableString(in.ISBN)
	book.OpenLibraryCode = entities.NullableString(in.OpenLibraryCode)
	book.YearPublished = in.YearPublished
	book.Review = in.Review
	book.Notes = in.Notes
	book.Stars = in.Stars
	book.Price = in.Price
}

func checkUnique(tx *gorm.DB, book *entities.Book) error {
	ve := &entities.ValidationError{}
	if book.ISBN != nil {
		var n int64
		if err := tx.Model(&entities.Book{}).Where("isbn = ? AND book_id <> ?", *book.ISBN, book.ID).Count(&n).Error; err != nil {
			return fmt.Errorf("failed to check isbn: %w", err)
		}
		if n > 0 {
			ve.Add("isbn", "is already used by another book")
		}
	}
	if book.OpenLibraryCode != nil {
		var n int64
		if err := tx.Model(&entities.Book{}).Where("openlibrary_code = ? AND book_id <> ?", *book.OpenLibraryCode, book.ID).Count(&n).Error; err != nil {
			return fmt.Errorf("failed to check openlibrary code: %w", err)
		}
		if n > 0 {
			ve.Add("openlibrary_code", "is already used by another book")
		}
	}
	if ve.HasErrors() {
		return ve
	}
	return nil
}
