package router

import (
	"github.com/deppfellow/carledger/internal/handler"
	"github.com/labstack/echo/v4"
)

// registerSystemRoutes mounts the endpoints that are not part of the car
// API: health, docs UI and the static assets it loads.
func registerSystemRoutes(r *echo.Echo, h *handler.Handlers, staticDir string) {
	r.GET("/status", h.Health.CheckHealth)

	r.Static("/static", staticDir)

	r.GET("/docs", h.OpenAPI.ServeOpenAPIUI)
}
