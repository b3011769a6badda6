package handler

import (
	"github.com/deppfellow/carledger/internal/server"
	"github.com/deppfellow/carledger/internal/service"
)

// Handlers groups all HTTP handlers so the router receives a single value.
type Handlers struct {
	Health  *HealthHandler  // GET /status
	OpenAPI *OpenAPIHandler // GET /docs
	Car     *CarHandler     // POST /api/v1/cars
}

// NewHandlers constructs the handler container.
func NewHandlers(s *server.Server, services *service.Services) *Handlers {
	return &Handlers{
		Health:  NewHealthHandler(s),
		OpenAPI: NewOpenAPIHandler(s),
		Car:     NewCarHandler(s, services.Car),
	}
}
