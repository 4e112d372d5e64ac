package metadata

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/mrlokans/bookshelf/internal/entities"
)

// Provider fetches book metadata from a remote catalogue.
type Provider interface {
	LookupByISBN(ctx context.Context, isbn string) (*BookMetadata, error)
	Search(ctx context.Context, query string) ([]BookMetadata, error)
}

// BookStore is the subset of the books repository the enricher needs.
type BookStore interface {
	GetWithTags(ctx context.Context, id uint) (*entities.BookWithTags, error)
	Update(ctx context.Context, id uint, in entities.BookInput) (*entities.BookWithTags, error)
}

// EnrichmentResult contains the result of an enrichment operation.
type EnrichmentResult struct {
	Book          *entities.BookWithTags `json:"book"`
	FieldsUpdated []string               `json:"fields_updated"`
	Source        string                 `json:"source"`
	SearchMethod  string                 `json:"search_method"` // "isbn" or "title"
}

// Enricher fills missing book fields from a metadata provider. Fields that
// already have a value are never overwritten.
type Enricher struct {
	provider Provider
	books    BookStore
}

func NewEnricher(provider Provider, books BookStore) *Enricher {
	return &Enricher{provider: provider, books: books}
}

// EnrichBook looks the book up by ISBN when it has one, otherwise by title
// and first author, and stores any fields that were empty.
func (e *Enricher) EnrichBook(ctx context.Context, bookID uint) (*EnrichmentResult, error) {
	book, err := e.books.GetWithTags(ctx, bookID)
	if err != nil {
		return nil, err
	}

	meta, method, err := e.lookup(ctx, book)
	if err != nil {
		return nil, err
	}

	in, fields := MergeInput(InputFromBook(book), meta)
	result := &EnrichmentResult{
		Book:          book,
		FieldsUpdated: fields,
		Source:        "openlibrary",
		SearchMethod:  method,
	}
	if len(fields) == 0 {
		return result, nil
	}

	updated, err := e.books.Update(ctx, bookID, in)
	if err != nil {
		return nil, fmt.Errorf("update book %d: %w", bookID, err)
	}
	result.Book = updated

	log.Printf("Enriched book %d (%s) via %s: %s", bookID, book.Title, method, strings.Join(fields, ", "))
	return result, nil
}

func (e *Enricher) lookup(ctx context.Context, book *entities.BookWithTags) (*BookMetadata, string, error) {
	if book.ISBN != nil && *book.ISBN != "" {
		meta, err := e.provider.LookupByISBN(ctx, *book.ISBN)
		if err == nil {
			return meta, "isbn", nil
		}
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrInvalidISBN) {
			return nil, "", err
		}
	}

	author := ""
	if len(book.Authors) > 0 {
		author = book.Authors[0]
	}
	results, err := e.provider.Search(ctx, strings.TrimSpace(book.Title+" "+author))
	if err != nil {
		return nil, "", err
	}
	best := BestMatch(results, book.Title, author)
	if best == nil {
		return nil, "", ErrNotFound
	}
	return best, "title", nil
}

// InputFromBook converts a stored book back into an editable input.
func InputFromBook(b *entities.BookWithTags) entities.BookInput {
	in := entities.BookInput{
		BookType:      b.BookType,
		Title:         b.Title,
		CoverURL:      b.CoverURL,
		CoverPath:     b.CoverPath,
		NumberOfPages: b.NumberOfPages,
		YearPublished: b.YearPublished,
		Review:        b.Review,
		Notes:         b.Notes,
		Stars:         b.Stars,
		Price:         b.Price,
		Authors:       append([]string{}, b.Authors...),
		Categories:    append([]string{}, b.Categories...),
		Publishers:    append([]string{}, b.Publishers...),
	}
	if b.ISBN != nil {
		in.ISBN = *b.ISBN
	}
	if b.OpenLibraryCode != nil {
		in.OpenLibraryCode = *b.OpenLibraryCode
	}
	return in
}

// NewBookInput builds an input for a book that does not exist yet.
func NewBookInput(meta *BookMetadata) entities.BookInput {
	in, _ := MergeInput(entities.BookInput{Title: meta.Title, NumberOfPages: meta.NumberOfPages}, meta)
	return in
}

// MergeInput copies metadata into the empty fields of in and reports which
// fields changed.
func MergeInput(in entities.BookInput, meta *BookMetadata) (entities.BookInput, []string) {
	var fields []string

	if in.ISBN == "" && meta.ISBN != "" {
		in.ISBN = meta.ISBN
		fields = append(fields, "isbn")
	}
	if in.OpenLibraryCode == "" && meta.OpenLibraryCode != "" {
		in.OpenLibraryCode = meta.OpenLibraryCode
		fields = append(fields, "openlibrary_code")
	}
	if in.CoverURL == "" && meta.CoverURL != "" {
		in.CoverURL = meta.CoverURL
		in.CoverPath = ""
		fields = append(fields, "cover_url")
	}
	if in.YearPublished == nil && meta.PublishYear > 0 {
		year := meta.PublishYear
		in.YearPublished = &year
		fields = append(fields, "year_published")
	}
	if in.NumberOfPages <= 0 && meta.NumberOfPages > 0 {
		in.NumberOfPages = meta.NumberOfPages
		fields = append(fields, "number_of_pages")
	}
	if len(in.Authors) == 0 && len(meta.Authors) > 0 {
		in.Authors = append([]string{}, meta.Authors...)
		fields = append(fields, "authors")
	}
	if len(in.Publishers) == 0 && len(meta.Publishers) > 0 {
		in.Publishers = meta.Publishers[:1]
		fields = append(fields, "publishers")
	}
	if in.Notes == "" && meta.Description != "" {
		in.Notes = meta.Description
		fields = append(fields, "notes")
	}

	return in, fields
}
