package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ShipCreekGroup/email-parser/internal/handler"
	"github.com/ShipCreekGroup/email-parser/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	corsOrigins []string,
	parseH *handler.ParseHandler,
	exportH *handler.ExportHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(corsOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	v1.POST("/parse", parseH.ParseStream)
	v1.POST("/parse/sync", parseH.Parse)

	exports := v1.Group("/export")
	exports.POST("/csv", exportH.ExportCSV)
	exports.POST("/xlsx", exportH.ExportXLSX)

	return r
}
