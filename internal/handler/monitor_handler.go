package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/hub"
)

// MonitorHandler handles monitoring API endpoints
type MonitorHandler interface {
	GetHubStats(c *gin.Context)
}

type monitorHandler struct {
	monitorService *hub.MonitorService
}

// NewMonitorHandler creates a new monitor handler
func NewMonitorHandler(monitorService *hub.MonitorService) MonitorHandler {
	return &monitorHandler{
		monitorService: monitorService,
	}
}

// GetHubStats returns current hub statistics
// @Summary Get chat hub statistics
// @Description Returns live rooms, their sessions, and presence connection counts
// @Tags Monitor
// @Produce json
// @Success 200 {object} model.MonitorResponse
// @Router /cf/api/monitor/stats [get]
func (h *monitorHandler) GetHubStats(c *gin.Context) {
	stats := h.monitorService.GetStats(c.Request.Context())

	respond(c, http.StatusOK, stats, "Hub statistics retrieved successfully")
}
