package library

import (
	"cmp"
	"fmt"
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/mrlokans/bookshelf/internal/entities"
)

// Engine applies queries to book lists. Titles are ordered with the
// collation rules of the configured locale.
type Engine struct {
	locale language.Tag
}

// NewEngine parses a BCP 47 locale such as "en" or "de-DE".
// An empty locale selects English.
func NewEngine(locale string) (*Engine, error) {
	if locale == "" {
		return &Engine{locale: language.English}, nil
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("invalid library locale %q: %w", locale, err)
	}
	return &Engine{locale: tag}, nil
}

func (e *Engine) Locale() language.Tag {
	return e.locale
}

// Apply returns the books matching q in q's sort order. The input slice is
// not modified.
func (e *Engine) Apply(books []entities.BookWithTags, q Query) []entities.BookWithTags {
	preds := append([]Predicate{SearchPredicate(q.Search)}, q.Filters.Predicates()...)

	out := make([]entities.BookWithTags, 0, len(books))
	for _, b := range books {
		if matchesAll(b, preds) {
			out = append(out, b)
		}
	}

	if q.Sort.Key == "" {
		return out
	}
	compare := e.comparator(q.Sort.Key)
	if q.Sort.Descending {
		asc := compare
		compare = func(a, b entities.BookWithTags) int { return asc(b, a) }
	}
	slices.SortStableFunc(out, compare)
	return out
}

func (e *Engine) comparator(key SortKey) func(a, b entities.BookWithTags) int {
	switch key {
	case SortTitle:
		// collate.Collator keeps internal buffers, so one per sort.
		c := collate.New(e.locale)
		return func(a, b entities.BookWithTags) int {
			return c.CompareString(a.Title, b.Title)
		}
	case SortCompletion:
		return func(a, b entities.BookWithTags) int {
			return cmp.Compare(a.Completion(), b.Completion())
		}
	case SortYearPublished:
		return func(a, b entities.BookWithTags) int {
			return cmp.Compare(deref(a.YearPublished), deref(b.YearPublished))
		}
	case SortDateAdded:
		return func(a, b entities.BookWithTags) int {
			return a.DateAdded.Compare(b.DateAdded)
		}
	case SortStars:
		return func(a, b entities.BookWithTags) int {
			return cmp.Compare(deref(a.Stars), deref(b.Stars))
		}
	case SortPrice:
		return func(a, b entities.BookWithTags) int {
			return cmp.Compare(deref(a.Price), deref(b.Price))
		}
	}
	return func(entities.BookWithTags, entities.BookWithTags) int { return 0 }
}

// deref treats a missing number as 0.
func deref[T int | float64](p *T) T {
	if p == nil {
		return 0
	}
	return *p
}

// Options lists the distinct values present in a library for each filter group.
type Options struct {
	Statuses   []entities.ReadingStatus `json:"statuses"`
	BookTypes  []entities.BookType      `json:"book_types"`
	Authors    []string                 `json:"authors"`
	Categories []string                 `json:"categories"`
	Publishers []string                 `json:"publishers"`
}

// FilterOptions collects the values a filter picker can offer for books.
func (e *Engine) FilterOptions(books []entities.BookWithTags) Options {
	statuses := map[entities.ReadingStatus]bool{}
	types := map[entities.BookType]bool{}
	names := map[entities.TagKind]map[string]bool{}
	for _, kind := range entities.TagKinds {
		names[kind] = map[string]bool{}
	}

	for _, b := range books {
		statuses[b.Status()] = true
		types[entities.NormalizeBookType(b.BookType)] = true
		for _, kind := range entities.TagKinds {
			for _, n := range b.TagNames(kind) {
				names[kind][n] = true
			}
		}
	}

	opts := Options{
		Statuses:   []entities.ReadingStatus{},
		BookTypes:  []entities.BookType{},
		Authors:    e.sortedNames(names[entities.TagKindAuthor]),
		Categories: e.sortedNames(names[entities.TagKindCategory]),
		Publishers: e.sortedNames(names[entities.TagKindPublisher]),
	}
	for _, st := range entities.ReadingStatuses {
		if statuses[st] {
			opts.Statuses = append(opts.Statuses, st)
		}
	}
	for t := range types {
		opts.BookTypes = append(opts.BookTypes, t)
	}
	slices.Sort(opts.BookTypes)
	return opts
}

func (e *Engine) sortedNames(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	collate.New(e.locale).SortStrings(out)
	return out
}
