package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/stats"
)

type StatsController struct {
	service  StatsService
	settings SettingsService
}

func NewStatsController(service StatsService, settings SettingsService) *StatsController {
	return &StatsController{service: service, settings: settings}
}

// timeframe reads ?timeframe=, falling back to the configured default.
func (sc *StatsController) timeframe(c *gin.Context) (stats.Timeframe, bool) {
	raw := c.Query("timeframe")
	if raw == "" && sc.settings != nil {
		return sc.settings.StatsTimeframe(), true
	}
	tf, err := stats.ParseTimeframe(raw)
	if err != nil {
		respondStoreError(c, err, "timeframe", "parse timeframe")
		return "", false
	}
	return tf, true
}

// Summary handles GET /api/stats/summary
func (sc *StatsController) Summary(c *gin.Context) {
	tf, ok := sc.timeframe(c)
	if !ok {
		return
	}

	summary, err := sc.service.Summary(c.Request.Context(), tf)
	if err != nil {
		respondInternalError(c, err, "stats summary")
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Streak handles GET /api/stats/streak
func (sc *StatsController) Streak(c *gin.Context) {
	days, err := sc.service.Streak(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "reading streak")
		return
	}
	c.JSON(http.StatusOK, gin.H{"streak": days})
}

// Daily handles GET /api/stats/daily
func (sc *StatsController) Daily(c *gin.Context) {
	tf, ok := sc.timeframe(c)
	if !ok {
		return
	}

	days, err := sc.service.DailyPages(c.Request.Context(), tf)
	if err != nil {
		respondInternalError(c, err, "daily pages")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"timeframe": tf,
		"days":      days,
	})
}

// Dimension handles GET /api/stats/:kind
// Returns the top tags of the kind by pages read.
func (sc *StatsController) Dimension(c *gin.Context) {
	kind, ok := parseKindParam(c, "kind")
	if !ok {
		return
	}
	tf, ok := sc.timeframe(c)
	if !ok {
		return
	}

	totals, err := sc.service.DimensionTotals(c.Request.Context(), kind, tf)
	if err != nil {
		respondStoreError(c, err, string(kind), "dimension totals")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"kind":      kind,
		"timeframe": tf,
		"totals":    totals,
	})
}

// DrillDown handles GET /api/stats/:kind/:id
// Returns pages read per book carrying the tag.
func (sc *StatsController) DrillDown(c *gin.Context) {
	kind, ok := parseKindParam(c, "kind")
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	tf, ok := sc.timeframe(c)
	if !ok {
		return
	}

	totals, err := sc.service.DrillDown(c.Request.Context(), kind, id, tf)
	if err != nil {
		respondStoreError(c, err, string(kind), "drill down")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"kind":      kind,
		"id":        id,
		"timeframe": tf,
		"books":     totals,
	})
}
