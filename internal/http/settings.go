package http

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/settingsstore"
)

type SettingsController struct {
	settings  SettingsService
	scheduler Rescheduler

	// ctx outlives single requests; the backup scheduler is restarted on it.
	ctx context.Context
}

func NewSettingsController(ctx context.Context, settings SettingsService, scheduler Rescheduler) *SettingsController {
	if ctx == nil {
		ctx = context.Background()
	}
	return &SettingsController{settings: settings, scheduler: scheduler, ctx: ctx}
}

// GetSettings handles GET /api/settings
// Every value is reported with its source: database, environment or default.
func (sc *SettingsController) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, sc.settings.All())
}

// UpdateSettings handles PUT /api/settings
// Omitted fields keep their value. Nothing is written when any field is invalid.
func (sc *SettingsController) UpdateSettings(c *gin.Context) {
	var patch settingsstore.Patch
	if !bindJSON(c, &patch) {
		return
	}

	if err := sc.settings.Apply(patch); err != nil {
		respondStoreError(c, err, "setting", "update settings")
		return
	}

	if sc.scheduler != nil && touchesBackup(patch) {
		if err := sc.scheduler.Reschedule(sc.ctx); err != nil {
			log.Printf("Backup scheduler: failed to reschedule: %v", err)
		}
	}

	c.JSON(http.StatusOK, sc.settings.All())
}

func touchesBackup(p settingsstore.Patch) bool {
	return p.BackupEnabled != nil || p.BackupSchedule != nil || p.BackupDir != nil
}
