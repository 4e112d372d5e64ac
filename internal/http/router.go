package http

import (
	"github.com/gin-gonic/gin"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	health := NewHealthController(cfg.Database, cfg.Version, cfg.Tasks)
	booksController := NewBooksController(cfg.Books, cfg.Engine, cfg.Settings, cfg.CoverCache, cfg.Tasks)
	logsController := NewPageLogsController(cfg.PageLogs)
	tagsController := NewTagsController(cfg.Tags, cfg.Books, cfg.Tasks)
	statsController := NewStatsController(cfg.Stats, cfg.Settings)
	settingsController := NewSettingsController(cfg.Context, cfg.Settings, cfg.BackupScheduler)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	api := router.Group("/api")

	// Books
	api.GET("/books", booksController.ListBooks)
	api.GET("/books/filters", booksController.FilterOptions)
	api.GET("/books/:id", booksController.GetBook)
	api.POST("/books", booksController.CreateBook)
	api.PUT("/books/:id", booksController.UpdateBook)
	api.DELETE("/books/:id", booksController.DeleteBook)

	// Reading sessions
	api.GET("/books/:id/logs", logsController.ListLogs)
	api.POST("/books/:id/logs", logsController.CreateLog)
	api.GET("/logs/:id", logsController.GetLog)
	api.PUT("/logs/:id", logsController.UpdateLog)
	api.DELETE("/logs/:id", logsController.DeleteLog)

	// Authors, categories and publishers
	api.GET("/tags/:kind", tagsController.ListTags)
	api.POST("/tags/:kind", tagsController.CreateTag)
	api.DELETE("/tags/:kind/:id", tagsController.DeleteTag)
	api.POST("/books/:id/tags/:kind", tagsController.AddTagToBook)
	api.DELETE("/books/:id/tags/:kind/:tagId", tagsController.RemoveTagFromBook)
	api.POST("/admin/tags/cleanup", tagsController.CleanupUnusedTags)

	// Statistics
	api.GET("/stats/summary", statsController.Summary)
	api.GET("/stats/streak", statsController.Streak)
	api.GET("/stats/daily", statsController.Daily)
	api.GET("/stats/:kind", statsController.Dimension)
	api.GET("/stats/:kind/:id", statsController.DrillDown)

	// Metadata lookup and enrichment
	if cfg.Metadata != nil {
		metadataController := NewMetadataController(cfg.Metadata, cfg.Enricher, cfg.Tasks)
		api.GET("/lookup/search", metadataController.Search)
		api.GET("/lookup/isbn/:isbn", metadataController.LookupISBN)
		if cfg.Enricher != nil {
			api.POST("/books/:id/enrich", metadataController.EnrichBook)
		}
	}

	// Covers
	if cfg.CoverCache != nil {
		coversController := NewCoversController(cfg.CoverCache, cfg.Books, cfg.Tasks)
		api.GET("/books/:id/cover", coversController.GetCover)
		api.POST("/books/:id/cover/cache", coversController.CacheCover)
	}

	// Settings and backups
	api.GET("/settings", settingsController.GetSettings)
	api.PUT("/settings", settingsController.UpdateSettings)
	if cfg.Database != nil {
		backupController := NewBackupController(cfg.Database.DB, cfg.Settings, cfg.Tasks, cfg.BackupKeep)
		api.POST("/backup", backupController.CreateBackup)
		api.GET("/backups", backupController.ListBackups)
	}

	// Task management
	if cfg.Tasks != nil {
		tasksController := NewTasksController(cfg.Tasks)
		api.GET("/tasks/types", tasksController.ListTaskTypes)
		api.GET("/tasks/:id", tasksController.GetTaskStatus)
		api.POST("/tasks/:type/run", tasksController.RunTask)
	}

	return router
}

