package router

import (
	"github.com/deppfellow/carledger/internal/handler"
	"github.com/labstack/echo/v4"
)

func registerCarRoutes(r *echo.Echo, h *handler.Handlers) {
	createCar := handler.HandleOutcome(
		h.Car.Handler,
		h.Car.CreateCar,
		handler.NewCreateCarRequest,
	)

	v1 := r.Group("/api/v1")
	v1.POST("/cars", createCar)

	// Legacy route name kept for existing clients.
	r.POST("/create", createCar)
}
