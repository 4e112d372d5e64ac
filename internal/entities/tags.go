package entities

import (
	"fmt"
	"strings"
)

// TagKind selects one of the three tag dimensions. Table and column names are
// derived only from this closed set.
type TagKind string

const (
	TagKindAuthor    TagKind = "author"
	TagKindCategory  TagKind = "category"
	TagKindPublisher TagKind = "publisher"
)

var TagKinds = []TagKind{TagKindAuthor, TagKindCategory, TagKindPublisher}

// ParseTagKind accepts the singular or plural form ("author", "authors").
func ParseTagKind(s string) (TagKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "author", "authors":
		return TagKindAuthor, nil
	case "category", "categories":
		return TagKindCategory, nil
	case "publisher", "publishers":
		return TagKindPublisher, nil
	}
	return "", NewValidationError("kind", fmt.Sprintf("unknown tag kind %q", s))
}

func (k TagKind) Valid() bool {
	switch k {
	case TagKindAuthor, TagKindCategory, TagKindPublisher:
		return true
	}
	return false
}

func (k TagKind) Table() string {
	switch k {
	case TagKindAuthor:
		return "authors"
	case TagKindCategory:
		return "categories"
	case TagKindPublisher:
		return "publishers"
	}
	panic(fmt.Sprintf("entities: invalid tag kind %q", string(k)))
}

func (k TagKind) IDColumn() string {
	return string(k) + "_id"
}

func (k TagKind) JoinTable() string {
	return "book_" + k.Table()
}

type Author struct {
	ID   uint   `gorm:"column:author_id;primaryKey" json:"author_id"`
	Name string `gorm:"column:name;not null;uniqueIndex" json:"name"`
}

func (Author) TableName() string { return "authors" }

type Category struct {
	ID   uint   `gorm:"column:category_id;primaryKey" json:"category_id"`
	Name string `gorm:"column:name;not null;uniqueIndex" json:"name"`
}

func (Category) TableName() string { return "categories" }

type Publisher struct {
	ID   uint   `gorm:"column:publisher_id;primaryKey" json:"publisher_id"`
	Name string `gorm:"column:name;not null;uniqueIndex" json:"name"`
}

func (Publisher) TableName() string { return "publishers" }

type BookAuthor struct {
	BookID   uint    `gorm:"column:book_id;primaryKey;autoIncrement:false"`
	AuthorID uint    `gorm:"column:author_id;primaryKey;autoIncrement:false;index"`
	Book     *Book   `gorm:"foreignKey:BookID;references:ID;constraint:OnDelete:CASCADE"`
	Author   *Author `gorm:"foreignKey:AuthorID;references:ID;constraint:OnDelete:CASCADE"`
}

func (BookAuthor) TableName() string { return "book_authors" }

type BookCategory struct {
	BookID     uint      `gorm:"column:book_id;primaryKey;autoIncrement:false"`
	CategoryID uint      `gorm:"column:category_id;primaryKey;autoIncrement:false;index"`
	Book       *Book     `gorm:"foreignKey:BookID;references:ID;constraint:OnDelete:CASCADE"`
	Category   *Category `gorm:"foreignKey:CategoryID;references:ID;constraint:OnDelete:CASCADE"`
}

func (BookCategory) TableName() string { return "book_categories" }

type BookPublisher struct {
	BookID      uint       `gorm:"column:book_id;primaryKey;autoIncrement:false"`
	PublisherID uint       `gorm:"column:publisher_id;primaryKey;autoIncrement:false;index"`
	Book        *Book      `gorm:"foreignKey:BookID;references:ID;constraint:OnDelete:CASCADE"`
	Publisher   *Publisher `gorm:"foreignKey:PublisherID;references:ID;constraint:OnDelete:CASCADE"`
}

func (BookPublisher) TableName() string { return "book_publishers" }

// Tag is the kind-agnostic view of an author, category or publisher row.
type Tag struct {
	ID        uint    `gorm:"column:id" json:"id"`
	Kind      TagKind `gorm:"-" json:"kind"`
	Name      string  `gorm:"column:name" json:"name"`
	BookCount int64   `gorm:"column:book_count" json:"book_count"`
}

// NormalizeTagNames trims names, drops empty ones and removes exact duplicates
// while keeping first-seen order.
func NormalizeTagNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = trimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func trimSpace(s string) string {
	return strings.TrimSpace(s)
}
