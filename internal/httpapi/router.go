// Package httpapi exposes the answer pipeline over JSON HTTP.
package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the gin engine with middleware and routes.
func NewRouter(h *Handler, release bool) *gin.Engine {
	if release {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(Recovery())
	engine.Use(RequestID())
	engine.Use(Metrics())
	engine.Use(AccessLog())

	engine.GET("/health", h.Health)
	engine.GET("/ready", h.Ready)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := engine.Group("/v1")
	v1.POST("/ask", h.Ask)
	v1.POST("/retrieve", h.Retrieve)
	v1.GET("/history", h.History)

	return engine
}
