package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"ozzus/relayping/internal/api/http/middleware"
)

// NewRouter wires the health endpoints and, when latency is non-nil, the
// measurement endpoints.
func NewRouter(healthController *HealthController, latency *LatencyController, log *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.Logger(log))

	router.GET("/health", healthController.Health)
	router.GET("/status", healthController.Status)
	router.GET("/ready", healthController.Ready)
	router.GET("/info", healthController.Info)

	if latency != nil {
		router.GET("/latency/:host", latency.Latency)
		router.GET("/servers", latency.Servers)
		router.GET("/sweep", latency.Sweep)
		router.GET("/sweep/stream", latency.SweepStream)
	}

	return router
}
