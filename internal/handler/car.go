package handler

import (
	"github.com/deppfellow/carledger/internal/server"
	"github.com/deppfellow/carledger/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// CreateCarRequest is the body of POST /api/v1/cars.
//
// Username is a pointer so a missing field can be told apart from an
// empty string. It is only honoured by the stderr_request_user policy.
type CreateCarRequest struct {
	Username *string `json:"username"`
}

func (r *CreateCarRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// CarHandler exposes the car chaincode operations.
type CarHandler struct {
	Handler
	carService *service.CarService
}

func NewCarHandler(s *server.Server, carService *service.CarService) *CarHandler {
	return &CarHandler{
		Handler:    NewHandler(s),
		carService: carService,
	}
}

// CreateCar invokes the chaincode create function. The response status
// and body depend on the configured response policy.
func (h *CarHandler) CreateCar(c echo.Context, req *CreateCarRequest) (*service.Outcome, error) {
	return h.carService.Create(c.Request().Context(), req.Username)
}

// NewCreateCarRequest allocates a fresh request payload.
func NewCreateCarRequest() *CreateCarRequest {
	return &CreateCarRequest{}
}
