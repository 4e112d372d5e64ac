// Package library filters, searches and sorts the in-memory book list.
//
// The engine never touches the database: callers load []entities.BookWithTags
// (see books.Repository.ListWithTags) and pass it to Engine.Apply together
// with a Query. Filters are plain Go predicates.
package library

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/mrlokans/bookshelf/internal/entities"
)

type SortKey string

const (
	SortTitle         SortKey = "title"
	SortCompletion    SortKey = "completion"
	SortYearPublished SortKey = "yearPublished"
	SortDateAdded     SortKey = "dateAdded"
	SortStars         SortKey = "stars"
	SortPrice         SortKey = "price"
)

var SortKeys = []SortKey{SortTitle, SortCompletion, SortYearPublished, SortDateAdded, SortStars, SortPrice}

func ParseSortKey(s string) (SortKey, bool) {
	for _, k := range SortKeys {
		if strings.EqualFold(string(k), s) {
			return k, true
		}
	}
	return "", false
}

// Sort selects a single sort key. An empty Key keeps the input order.
type Sort struct {
	Key        SortKey `json:"key"`
	Descending bool    `json:"descending"`
}

// Filters holds the selections of each filter group. An empty group is not applied.
type Filters struct {
	Statuses   []entities.ReadingStatus `json:"statuses,omitempty"`
	BookTypes  []entities.BookType      `json:"book_types,omitempty"`
	Authors    []string                 `json:"authors,omitempty"`
	Categories []string                 `json:"categories,omitempty"`
	Publishers []string                 `json:"publishers,omitempty"`
}

type Query struct {
	Search  string  `json:"search,omitempty"`
	Filters Filters `json:"filters"`
	Sort    Sort    `json:"sort"`
}

// ParseQuery builds a Query from HTTP query parameters:
//
//	q, status, type, author, category, publisher, sort, order
//
// Filter parameters may be repeated or comma separated.
func ParseQuery(values url.Values) (Query, error) {
	q := Query{Search: strings.TrimSpace(values.Get("q"))}
	ve := &entities.ValidationError{}

	for _, s := range multi(values, "status") {
		st, ok := entities.ParseReadingStatus(s)
		if !ok {
			ve.Add("status", fmt.Sprintf("unknown status %q", s))
			continue
		}
		q.Filters.Statuses = append(q.Filters.Statuses, st)
	}
	for _, s := range multi(values, "type") {
		q.Filters.BookTypes = append(q.Filters.BookTypes, entities.BookType(s))
	}
	q.Filters.Authors = tagValues(values, "author")
	q.Filters.Categories = tagValues(values, "category")
	q.Filters.Publishers = tagValues(values, "publisher")

	if s := strings.TrimSpace(values.Get("sort")); s != "" {
		key, ok := ParseSortKey(s)
		if !ok {
			ve.Add("sort", fmt.Sprintf("unknown sort key %q", s))
		}
		q.Sort.Key = key
	}
	switch strings.ToLower(strings.TrimSpace(values.Get("order"))) {
	case "", "asc":
	case "desc":
		q.Sort.Descending = true
	default:
		ve.Add("order", "must be asc or desc")
	}

	if ve.HasErrors() {
		return Query{}, ve
	}
	return q, nil
}

// multi reads a repeatable parameter that also accepts comma separated values.
// Tag names are not split since they may contain commas.
func multi(values url.Values, key string) []string {
	var out []string
	for _, v := range values[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// tagValues reads a repeatable tag parameter. Blank values are dropped so an
// empty selection leaves the group unfiltered.
func tagValues(values url.Values, key string) []string {
	var out []string
	for _, v := range values[key] {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
