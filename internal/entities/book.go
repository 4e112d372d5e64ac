package entities

import (
	"time"
)

type BookType string

const (
	BookTypePaperback BookType = "paperback"
	BookTypeHardcover BookType = "hardcover"
	BookTypeEbook     BookType = "ebook"
	BookTypePDF       BookType = "pdf"
	BookTypeOther     BookType = "other"
)

// NormalizeBookType maps an empty value to BookTypeOther. Unknown values are
// kept as-is since the column is a free string.
func NormalizeBookType(t BookType) BookType {
	if t == "" {
		return BookTypeOther
	}
	return t
}

type ReadingStatus string

const (
	StatusNotStarted ReadingStatus = "notStarted"
	StatusReading    ReadingStatus = "reading"
	StatusFinished   ReadingStatus = "finished"
)

var ReadingStatuses = []ReadingStatus{StatusNotStarted, StatusReading, StatusFinished}

func ParseReadingStatus(s string) (ReadingStatus, bool) {
	for _, st := range ReadingStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

type Book struct {
	ID              uint      `gorm:"column:book_id;primaryKey;autoIncrement" json:"book_id"`
	BookType        BookType  `gorm:"column:book_type;size:20;default:'other'" json:"book_type"`
	Title           string    `gorm:"column:title;not null;index" json:"title"`
	CoverURL        string    `gorm:"column:cover_url;size:2048" json:"cover_url,omitempty"`
	CoverPath       string    `gorm:"column:cover_path;size:1024" json:"cover_path,omitempty"`
	NumberOfPages   int       `gorm:"column:number_of_pages;not null" json:"number_of_pages"`
	ISBN            *string   `gorm:"column:isbn;uniqueIndex;size:20" json:"isbn,omitempty"`
	OpenLibraryCode *string   `gorm:"column:openlibrary_code;uniqueIndex;size:64" json:"openlibrary_code,omitempty"`
	YearPublished   *int      `gorm:"column:year_published" json:"year_published,omitempty"`
	DateAdded       time.Time `gorm:"column:date_added;autoCreateTime" json:"date_added"`
	LastRead        *Date     `gorm:"column:last_read" json:"last_read"`
	CurrentPage     int       `gorm:"column:current_page;not null;default:0" json:"current_page"`
	Review          string    `gorm:"column:review;type:text" json:"review,omitempty"`
	Notes           string    `gorm:"column:notes;type:text" json:"notes,omitempty"`
	Stars           *int      `gorm:"column:stars" json:"stars,omitempty"`
	Price           *float64  `gorm:"column:price" json:"price,omitempty"`
}

func (Book) TableName() string {
	return "books"
}

// Status derives the reading status from current progress.
func (b Book) Status() ReadingStatus {
	switch {
	case b.CurrentPage <= 0:
		return StatusNotStarted
	case b.CurrentPage >= b.NumberOfPages:
		return StatusFinished
	default:
		return StatusReading
	}
}

// Completion returns current_page / number_of_pages, or 0 for books without pages.
func (b Book) Completion() float64 {
	if b.NumberOfPages <= 0 {
		return 0
	}
	return float64(b.CurrentPage) / float64(b.NumberOfPages)
}

// BookWithTags is the read model used by the query engine and the API.
type BookWithTags struct {
	Book
	Authors    []string `json:"authors"`
	Categories []string `json:"categories"`
	Publishers []string `json:"publishers"`
}

func (b BookWithTags) TagNames(kind TagKind) []string {
	switch kind {
	case TagKindAuthor:
		return b.Authors
	case TagKindCategory:
		return b.Categories
	case TagKindPublisher:
		return b.Publishers
	}
	return nil
}

// BookInput carries the editable fields of a book, including its tag names.
type BookInput struct {
	BookType        BookType `json:"book_type" validate:"omitempty,max=20"`
	Title           string   `json:"title" validate:"required,max=512"`
	CoverURL        string   `json:"cover_url" validate:"omitempty,url,max=2048"`
	CoverPath       string   `json:"cover_path" validate:"max=1024"`
	NumberOfPages   int      `json:"number_of_pages" validate:"gt=0"`
	ISBN            string   `json:"isbn" validate:"max=20"`
	OpenLibraryCode string   `json:"openlibrary_code" validate:"max=64"`
	YearPublished   *int     `json:"year_published" validate:"omitempty,gte=0,lte=9999"`
	Review          string   `json:"review"`
	Notes           string   `json:"notes"`
	Stars           *int     `json:"stars" validate:"omitempty,gte=0,lte=5"`
	Price           *float64 `json:"price" validate:"omitempty,gte=0"`
	Authors         []string `json:"authors" validate:"dive,max=256"`
	Categories      []string `json:"categories" validate:"dive,max=256"`
	Publishers      []string `json:"publishers" validate:"dive,max=256"`
}

func (in BookInput) TagNames(kind TagKind) []string {
	switch kind {
	case TagKindAuthor:
		return in.Authors
	case TagKindCategory:
		return in.Categories
	case TagKindPublisher:
		return in.Publishers
	}
	return nil
}

// NullableString turns an empty (after trimming) string into nil.
func NullableString(s string) *string {
	s = trimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
