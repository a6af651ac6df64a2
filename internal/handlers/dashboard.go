package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/huginn/internal/logger"
)

// DashboardHandler serves /dashboard/stats.
type DashboardHandler struct {
	stats  StatsProvider
	logger logger.Logger
}

// NewDashboardHandler creates a dashboard handler.
func NewDashboardHandler(stats StatsProvider, log logger.Logger) *DashboardHandler {
	return &DashboardHandler{stats: stats, logger: log}
}

// Stats handles GET /dashboard/stats.
func (h *DashboardHandler) Stats(c *gin.Context) {
	stats, err := h.stats.Stats(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "Stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}
