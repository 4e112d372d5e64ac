package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mrlokans/bookshelf/internal/backup"
	"github.com/mrlokans/bookshelf/internal/tasks"
)

// BackupController writes and lists database snapshots.
type BackupController struct {
	db       *gorm.DB
	settings SettingsService
	tasks    TaskQueue
	keep     int
}

func NewBackupController(db *gorm.DB, settings SettingsService, queue TaskQueue, keep int) *BackupController {
	return &BackupController{db: db, settings: settings, tasks: queue, keep: keep}
}

// CreateBackup handles POST /api/backup
// Restoring a snapshot is only possible from the CLI with the server stopped.
func (bc *BackupController) CreateBackup(c *gin.Context) {
	if bc.tasks != nil {
		task := tasks.BackupTask{}
		id, err := bc.tasks.Enqueue(task)
		if err != nil {
			respondInternalError(c, err, "enqueue backup")
			return
		}
		respondTaskAccepted(c, id, task.Config().Name)
		return
	}

	info, err := tasks.RunBackup(c.Request.Context(), bc.db, bc.settings, "", bc.keep)
	if err != nil {
		respondInternalError(c, err, "backup")
		return
	}
	respondCreated(c, info)
}

// ListBackups handles GET /api/backups
func (bc *BackupController) ListBackups(c *gin.Context) {
	dir := bc.settings.BackupConfig().Dir
	backups, err := backup.List(dir)
	if err != nil {
		respondInternalError(c, err, "list backups")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"dir":     dir,
		"backups": backups,
		"count":   len(backups),
	})
}
