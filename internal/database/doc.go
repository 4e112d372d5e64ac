// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup, FK pragma, migrations
//	├── books/           # Book CRUD and the book-with-tags read model
//	├── tags/            # Authors, categories, publishers and their joins
//	├── pagelogs/        # Reading sessions and derived book progress
//	└── settings/        # Application settings
//
// # Using Sub-packages
//
// Each sub-package provides a Repository type with domain-specific operations:
//
//	db, err := database.NewDatabase("./bookshelf.db")
//
//	tagsRepo := tags.NewRepository(db.DB)
//	booksRepo := books.NewRepository(db.DB, tagsRepo)
//	logsRepo := pagelogs.NewRepository(db.DB)
//
//	book, err := booksRepo.Create(ctx, input)
//	entry, err := logsRepo.Create(ctx, book.ID, logInput)
//
// # Invariants
//
// Every write that touches more than one row runs in a single
// gorm transaction. Foreign keys are enforced by SQLite (see DSN), so
// deleting a book removes its page logs and tag joins.
//
// # Adding a New Domain
//
//  1. Create a new sub-package: internal/database/<domain>/
//  2. Define a Repository struct with a *gorm.DB field
//  3. Add NewRepository(db *gorm.DB) constructor
//  4. Add its models to Models in database.go
//  5. Add a compile-time interface check in internal/interfaces
package database
