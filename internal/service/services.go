package service

import (
	"github.com/deppfellow/carledger/internal/server"
)

// Services groups every business service so the router and handlers can
// be wired with a single value.
type Services struct {
	Car *CarService
}

// NewServices constructs all services.
func NewServices(s *server.Server) (*Services, error) {
	carService, err := NewCarService(s)
	if err != nil {
		return nil, err
	}

	return &Services{
		Car: carService,
	}, nil
}
