// Package router builds the echo instance: global middleware in order,
// the error handler, and the system and API route groups.
package router

import (
	"github.com/deppfellow/carledger/internal/handler"
	"github.com/deppfellow/carledger/internal/middleware"
	"github.com/deppfellow/carledger/internal/server"
	"github.com/labstack/echo/v4"
)

// NewRouter wires handlers and middleware into a new echo instance.
//
// Order matters: the request id comes first so every later log line has
// it, and the New Relic transaction must exist before the context
// enhancer copies its trace ids into the request logger.
func NewRouter(s *server.Server, h *handler.Handlers) *echo.Echo {
	middlewares := middleware.NewMiddlewares(s)

	router := echo.New()
	router.HideBanner = true
	router.HidePort = true

	router.HTTPErrorHandler = middlewares.Global.GlobalErrorHandler

	router.Use(
		middleware.RequestID(),
		middlewares.Tracing.NewRelicMiddleware(),
		middlewares.Tracing.EnhanceTracing(),
		middlewares.ContextEnhancer.EnhanceContext(),
		middlewares.Global.CORS(),
		middlewares.Global.Secure(),
		middlewares.Global.RequestLogger(),
		middlewares.Global.Recover(),
	)

	if middlewares.RateLimit.Enabled() {
		router.Use(middlewares.RateLimit.Limit())
	}

	registerSystemRoutes(router, h, s.Config.Server.StaticDir)

	registerCarRoutes(router, h)

	return router
}
