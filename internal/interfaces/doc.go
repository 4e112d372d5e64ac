// Package interfaces documents the core abstractions used throughout the application.
//
// # Interface Categories
//
// ## Data Access Interfaces
//
//   - BookStore: Book CRUD with tag names (internal/http/stores.go)
//   - PageLogStore: Reading sessions and derived progress (internal/http/stores.go)
//   - TagStore: Authors, categories and publishers (internal/http/stores.go)
//   - settingsstore.Store: Raw key/value settings (internal/settingsstore/settingsstore.go)
//
// ## Service Interfaces
//
//   - StatsService: Page aggregations and streaks (internal/http/stores.go)
//   - SettingsService: Layered settings with sources (internal/http/stores.go)
//   - metadata.Provider: Remote book metadata (internal/metadata/enricher.go)
//   - CoverCache: Local cover files (internal/http/stores.go)
//
// ## Background Work
//
//   - TaskQueue: Enqueue tasks and poll their status (internal/http/stores.go)
//   - Rescheduler: Restart the backup cron after settings change (internal/http/stores.go)
//
// # Adding a New Metadata Provider
//
// To add a new source of book metadata (e.g., Google Books):
//
//  1. Implement Provider in internal/metadata/
//
//     type GoogleBooksClient struct {
//         apiKey     string
//         httpClient *http.Client
//     }
//
//     func (c *GoogleBooksClient) LookupByISBN(ctx context.Context, isbn string) (*BookMetadata, error)
//     func (c *GoogleBooksClient) Search(ctx context.Context, query string) ([]BookMetadata, error)
//
//     var _ Provider = (*GoogleBooksClient)(nil)
//
//  2. Pass it to metadata.NewEnricher in entrypoint.go
//
// # Adding a New Background Task
//
//  1. Define the task type with a Config() returning its backlite.QueueConfig
//     in internal/tasks/
//
//  2. Write a processor returning backlite.QueueProcessor[YourTask]
//
//  3. Pass it to tasks.Register in entrypoint.go and describe it in
//     internal/http/tasks.go
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go.
package interfaces
