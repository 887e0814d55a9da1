package approuters

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/handler"
)

// MonitorRouters sets up monitoring API routes
func MonitorRouters(router *gin.Engine, monitorHandler handler.MonitorHandler) {
	// Monitor API group
	monitorGroup := router.Group("/cf/api/monitor")
	{
		// GET /cf/api/monitor/stats - Get hub statistics
		monitorGroup.GET("/stats", monitorHandler.GetHubStats)
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
