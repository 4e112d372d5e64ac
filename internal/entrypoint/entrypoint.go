package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/covers"
	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/database/books"
	"github.com/mrlokans/bookshelf/internal/database/pagelogs"
	"github.com/mrlokans/bookshelf/internal/database/settings"
	"github.com/mrlokans/bookshelf/internal/database/tags"
	http_controllers "github.com/mrlokans/bookshelf/internal/http"
	"github.com/mrlokans/bookshelf/internal/library"
	"github.com/mrlokans/bookshelf/internal/metadata"
	"github.com/mrlokans/bookshelf/internal/scheduler"
	"github.com/mrlokans/bookshelf/internal/settingsstore"
	"github.com/mrlokans/bookshelf/internal/stats"
	"github.com/mrlokans/bookshelf/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// App holds the wired application. Shutdown releases everything Build opened.
type App struct {
	Router   *gin.Engine
	Database *database.Database
	Settings *settingsstore.SettingsStore
	Tasks    *tasks.Client
	Backups  *scheduler.BackupScheduler

	cancel context.CancelFunc
}

// Build opens the database and wires repositories, background workers and
// the HTTP router. Background work stops when ctx is cancelled or Shutdown
// is called.
func Build(ctx context.Context, cfg *config.Config, version string) (*App, error) {
	logLevel := logger.Warn
	if cfg.Database.LogSQL {
		logLevel = logger.Info
	}

	db, err := database.NewDatabase(cfg.Database.Path, database.WithLogLevel(logLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	engine, err := library.NewEngine(cfg.Library.Locale)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("invalid library locale: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	app := &App{Database: db, cancel: cancel}

	tagRepo := tags.NewRepository(db.DB)
	bookRepo := books.NewRepository(db.DB, tagRepo)
	logRepo := pagelogs.NewRepository(db.DB)

	app.Settings = settingsstore.New(settings.NewRepository(db.DB), settingsstore.Defaults{
		BackupEnabled:  cfg.Backup.Enabled,
		BackupSchedule: cfg.Backup.Schedule,
		BackupDir:      cfg.Backup.Dir,
	})

	statsService := stats.NewService(db.DB, stats.Config{
		TopN:          cfg.Stats.TopN,
		StreakMaxDays: cfg.Stats.StreakMaxDays,
		WeekStart:     cfg.Stats.WeekStart,
	}, nil)

	coverCache, err := covers.NewCache(cfg.Covers.Dir, cfg.Covers.DownloadTimeout)
	if err != nil {
		log.Printf("WARNING: Failed to initialize cover cache: %v", err)
		coverCache = nil
	} else {
		log.Printf("Cover cache initialized at %s", coverCache.CacheDir())
	}

	var provider *metadata.OpenLibraryClient
	var enricher *metadata.Enricher
	if cfg.Metadata.Enabled {
		provider = metadata.NewOpenLibraryClient(metadata.Config{
			BaseURL:      cfg.Metadata.BaseURL,
			CoversURL:    cfg.Metadata.CoversURL,
			UserAgent:    cfg.Metadata.UserAgent,
			Timeout:      cfg.Metadata.Timeout,
			RateInterval: cfg.Metadata.RateInterval,
			SearchLimit:  cfg.Metadata.SearchLimit,
		})
		enricher = metadata.NewEnricher(provider, bookRepo)
	} else {
		log.Printf("Metadata lookup disabled")
	}

	if cfg.Tasks.Enabled {
		app.Tasks, err = tasks.NewClient(cfg.Database.Path, tasks.Config{
			Workers:         cfg.Tasks.Workers,
			ReleaseAfter:    cfg.Tasks.ReleaseAfter,
			CleanupInterval: cfg.Tasks.CleanupInterval,
		})
		if err != nil {
			app.Shutdown(context.Background())
			return nil, fmt.Errorf("failed to initialize task queue: %w", err)
		}

		tasks.Register(app.Tasks, tasks.CleanupUnusedTagsProcessor(tagRepo))
		tasks.Register(app.Tasks, tasks.BackupProcessor(db.DB, app.Settings, cfg.Backup.Keep))
		if coverCache != nil {
			tasks.Register(app.Tasks, tasks.CacheCoverProcessor(bookRepo, coverCache))
		}
		if enricher != nil {
			tasks.Register(app.Tasks, tasks.EnrichBookProcessor(enricher))
		}

		go app.Tasks.Start(runCtx)
	}

	app.Backups = scheduler.NewBackupScheduler(app.Settings, backupJob(app, cfg.Backup.Keep))
	if err := app.Backups.Start(runCtx); err != nil {
		log.Printf("WARNING: Backup scheduler not started: %v", err)
	}

	routerCfg := http_controllers.RouterConfig{
		Context:         runCtx,
		Version:         version,
		Database:        db,
		Books:           bookRepo,
		PageLogs:        logRepo,
		Tags:            tagRepo,
		Stats:           statsService,
		Engine:          engine,
		Settings:        app.Settings,
		BackupScheduler: app.Backups,
		BackupKeep:      cfg.Backup.Keep,
	}
	// Optional dependencies are only set when present so the router never
	// sees a typed nil.
	if provider != nil {
		routerCfg.Metadata = provider
		routerCfg.Enricher = enricher
	}
	if coverCache != nil {
		routerCfg.CoverCache = coverCache
	}
	if app.Tasks != nil {
		routerCfg.Tasks = app.Tasks
	}

	app.Router = http_controllers.NewRouter(routerCfg)
	return app, nil
}

// backupJob enqueues a backup when the task queue runs and writes it inline
// otherwise.
func backupJob(app *App, keep int) scheduler.Job {
	return func(ctx context.Context) error {
		if app.Tasks != nil {
			id, err := app.Tasks.Enqueue(tasks.BackupTask{})
			if err != nil {
				return err
			}
			log.Printf("Backup scheduler: queued backup task %s", id)
			return nil
		}
		_, err := tasks.RunBackup(ctx, app.Database.DB, app.Settings, "", keep)
		return err
	}
}

// Shutdown stops the scheduler and task workers and closes the databases.
func (a *App) Shutdown(ctx context.Context) {
	if a.Backups != nil {
		a.Backups.Stop()
	}
	if a.Tasks != nil {
		a.Tasks.Stop(ctx)
	}
	if a.cancel != nil {
		a.cancel()
	}
	if a.Tasks != nil {
		if err := a.Tasks.Close(); err != nil {
			log.Printf("Error closing task client: %v", err)
		}
	}
	if err := a.Database.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}
}

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// kill (no param) sends SIGTERM, kill -2 is SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server Shutdown: %v", err)
	}

	// Workers stop after the server so in-flight requests can still enqueue.
	if onShutdown != nil {
		onShutdown(ctx)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Bookshelf v%s", version)

	app, err := Build(context.Background(), cfg, version)
	if err != nil {
		log.Fatalf("%v", err)
	}

	Serve(app.Router, cfg, app.Shutdown)
}
