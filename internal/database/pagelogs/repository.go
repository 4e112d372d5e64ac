// Package pagelogs records reading sessions and keeps each book's progress
// consistent with them.
//
// A book's current_page always equals the highest end_page among its logs
// (0 without logs). Its last_read only ever moves forward. Every operation
// reads and writes the log and the book inside one transaction.
//
// # Usage
//
//	repo := pagelogs.NewRepository(db)
//	entry, err := repo.Create(ctx, bookID, entities.PageLogInput{
//		StartPage: 1, EndPage: 50, ReadDate: entities.DateOf(time.Now()),
//	})
package pagelogs

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/validation"
)

// Repository handles page log database operations.
type Repository struct {
	db        *gorm.DB
	validator *validation.Validator
}

// NewRepository creates a new page logs repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, validator: validation.New()}
}

// Get retrieves a page log by ID.
func (r *Repository) Get(ctx context.Context, id uint) (*entities.PageLog, error) {
	return getLog(r.db.WithContext(ctx), id)
}

// ListForBook returns the logs of a book, newest read_date first.
func (r *Repository) ListForBook(ctx context.Context, bookID uint) ([]entities.PageLog, error) {
	db := r.db.WithContext(ctx)
	if _, err := getBook(db, bookID); err != nil {
		return nil, err
	}
	var logs []entities.PageLog
	err := db.Where("book_id = ?", bookID).
		Order("read_date DESC, page_log_id DESC").
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list logs of book %d: %w", bookID, err)
	}
	return logs, nil
}

// Create records a session and advances the book's progress.
func (r *Repository) Create(ctx context.Context, bookID uint, in entities.PageLogInput) (*entities.PageLog, error) {
	var entry entities.PageLog
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		book, err := getBook(tx, bookID)
		if err != nil {
			return err
		}
		if err := r.validate(in, book); err != nil {
			return err
		}

		entry = entities.PageLog{
			BookID:              bookID,
			StartPage:           in.StartPage,
			EndPage:             in.EndPage,
			CurrentPageAfterLog: max(in.EndPage, book.CurrentPage),
			TotalPageRead:       entities.PagesRead(in.StartPage, in.EndPage),
			ReadDate:            in.ReadDate,
			PageNotes:           in.PageNotes,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to create page log: %w", err)
		}

		updates := map[string]any{"current_page": max(book.CurrentPage, in.EndPage)}
		if advancesLastRead(book.LastRead, in.ReadDate) {
			updates["last_read"] = in.ReadDate
		}
		return updateBook(tx, bookID, updates)
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Update edits a session. The edited row's snapshot is recomputed from the
// logs recorded before it; snapshots of other logs are left as written.
// The book's current_page is re-derived from all of its logs.
func (r *Repository) Update(ctx context.Context, id uint, in entities.PageLogInput) (*entities.PageLog, error) {
	var entry *entities.PageLog
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = getLog(tx, id)
		if err != nil {
			return err
		}
		book, err := getBook(tx, entry.BookID)
		if err != nil {
			return err
		}
		if err := r.validate(in, book); err != nil {
			return err
		}

		var before int
		err = tx.Model(&entities.PageLog{}).
			Where("book_id = ? AND page_log_id < ?", entry.BookID, id).
			Select("COALESCE(MAX(end_page), 0)").
			Scan(&before).Error
		if err != nil {
			return fmt.Errorf("failed to read earlier logs of book %d: %w", entry.BookID, err)
		}

		entry.StartPage = in.StartPage
		entry.EndPage = in.EndPage
		entry.TotalPageRead = entities.PagesRead(in.StartPage, in.EndPage)
		entry.CurrentPageAfterLog = max(in.EndPage, before)
		entry.ReadDate = in.ReadDate
		entry.PageNotes = in.PageNotes
		err = tx.Model(&entities.PageLog{}).Where("page_log_id = ?", id).Updates(map[string]any{
			"start_page":             entry.StartPage,
			"end_page":               entry.EndPage,
			"total_page_read":        entry.TotalPageRead,
			"current_page_after_log": entry.CurrentPageAfterLog,
			"read_date":              entry.ReadDate,
			"page_notes":             entry.PageNotes,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to update page log %d: %w", id, err)
		}

		if err := recomputeCurrentPage(tx, entry.BookID); err != nil {
			return err
		}
		if advancesLastRead(book.LastRead, in.ReadDate) {
			return updateBook(tx, entry.BookID, map[string]any{"last_read": in.ReadDate})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Delete removes a session and re-derives the book's current_page.
// last_read is left unchanged.
func (r *Repository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry, err := getLog(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Delete(&entities.PageLog{}, id).Error; err != nil {
			return fmt.Errorf("failed to delete page log %d: %w", id, err)
		}
		return recomputeCurrentPage(tx, entry.BookID)
	})
}

func (r *Repository) validate(in entities.PageLogInput, book *entities.Book) error {
	ve := &entities.ValidationError{}
	if err := r.validator.Validate(in); err != nil {
		var fieldErrs *entities.ValidationError
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for field, msg := range fieldErrs.Fields {
			ve.Add(field, msg)
		}
	}
	if in.StartPage > in.EndPage {
		ve.Add("end_page", "must be greater than or equal to start_page")
	}
	if in.EndPage > book.NumberOfPages {
		ve.Add("end_page", fmt.Sprintf("must not exceed the book's %d pages", book.NumberOfPages))
	}
	if in.ReadDate.IsZero() {
		ve.Add("read_date", "is required")
	}
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func advancesLastRead(lastRead *entities.Date, date entities.Date) bool {
	return lastRead == nil || lastRead.IsZero() || !date.Before(*lastRead)
}

func recomputeCurrentPage(tx *gorm.DB, bookID uint) error {
	err := tx.Exec(`
		UPDATE books
		SET current_page = (SELECT COALESCE(MAX(end_page), 0) FROM page_logs WHERE book_id = ?)
		WHERE book_id = ?`, bookID, bookID).Error
	if err != nil {
		return fmt.Errorf("failed to recompute progress of book %d: %w", bookID, err)
	}
	return nil
}

func updateBook(tx *gorm.DB, bookID uint, updates map[string]any) error {
	if err := tx.Model(&entities.Book{}).Where("book_id = ?", bookID).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update progress of book %d: %w", bookID, err)
	}
	return nil
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

func getLog(tx *gorm.DB, id uint) (*entities.PageLog, error) {
	var entry entities.PageLog
	err := tx.First(&entry, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("page log %d: %w", id, entities.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page log %d: %w", id, err)
	}
	return &entry, nil
}
