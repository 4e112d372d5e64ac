package library

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/mrlokans/bookshelf/internal/entities"
)

// Predicate reports whether a book is kept.
type Predicate func(entities.BookWithTags) bool

// Predicates returns one predicate per non-empty group. A book must satisfy
// all of them; inside a group any selected value is enough.
func (f Filters) Predicates() []Predicate {
	var preds []Predicate
	if len(f.Statuses) > 0 {
		preds = append(preds, func(b entities.BookWithTags) bool {
			return slices.Contains(f.Statuses, b.Status())
		})
	}
	if len(f.BookTypes) > 0 {
		preds = append(preds, func(b entities.BookWithTags) bool {
			return slices.Contains(f.BookTypes, b.BookType)
		})
	}
	if p := anyTag(entities.TagKindAuthor, f.Authors); p != nil {
		preds = append(preds, p)
	}
	if p := anyTag(entities.TagKindCategory, f.Categories); p != nil {
		preds = append(preds, p)
	}
	if p := anyTag(entities.TagKindPublisher, f.Publishers); p != nil {
		preds = append(preds, p)
	}
	return preds
}

func anyTag(kind entities.TagKind, selected []string) Predicate {
	if len(selected) == 0 {
		return nil
	}
	return func(b entities.BookWithTags) bool {
		for _, name := range b.TagNames(kind) {
			if slices.Contains(selected, name) {
				return true
			}
		}
		return false
	}
}

// SearchPredicate matches a case-insensitive substring of the title or of any
// author. An empty term matches everything.
func SearchPredicate(term string) Predicate {
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(term))
	if needle == "" {
		return func(entities.BookWithTags) bool { return true }
	}
	return func(b entities.BookWithTags) bool {
		if strings.Contains(fold.String(b.Title), needle) {
			return true
		}
		for _, a := range b.Authors {
			if strings.Contains(fold.String(a), needle) {
				return true
			}
		}
		return false
	}
}

func matchesAll(b entities.BookWithTags, preds []Predicate) bool {
	for _, p := range preds {
		if !p(b) {
			return false
		}
	}
	return true
}
