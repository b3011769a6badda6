package handler

import (
	"time"

	"github.com/deppfellow/carledger/internal/middleware"
	"github.com/deppfellow/carledger/internal/server"
	"github.com/deppfellow/carledger/internal/service"
	"github.com/deppfellow/carledger/internal/validation"
	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/integrations/nrpkgerrors"
	"github.com/newrelic/go-agent/v3/newrelic"
)

// Handler is the base handler type that holds shared application dependencies.
//
// Concrete handlers (CarHandler, HealthHandler, ...) embed it to reach
// config, logger and the peer client through *server.Server.
type Handler struct {
	server *server.Server
}

// NewHandler constructs a base Handler.
func NewHandler(s *server.Server) Handler {
	return Handler{server: s}
}

// HandlerFunc represents a typed endpoint function that receives a bound,
// validated request payload and returns a result or an error.
//
// Req is usually a pointer type, e.g. *CreateCarRequest, because echo's
// Bind needs a pointer to populate fields.
type HandlerFunc[Req validation.Validatable, Res any] func(c echo.Context, req Req) (Res, error)

// ResponseHandler defines how a handler result is written to the HTTP
// response and which New Relic attributes it adds.
type ResponseHandler interface {
	// Handle writes the HTTP response for the given result.
	Handle(c echo.Context, result interface{}) error

	// GetOperation returns an operation name used for structured logging.
	GetOperation() string

	// AddAttributes attaches New Relic attributes based on the result.
	// result is nil when called before the handler runs.
	AddAttributes(txn *newrelic.Transaction, result interface{})
}

// OutcomeResponseHandler writes a peer invocation outcome.
//
// The status code comes from the outcome itself and the body is the
// selected output stream encoded as a JSON string.
type OutcomeResponseHandler struct{}

func (h OutcomeResponseHandler) Handle(c echo.Context, result interface{}) error {
	outcome := result.(*service.Outcome)
	return c.JSON(outcome.Status, outcome.Body)
}

func (h OutcomeResponseHandler) GetOperation() string {
	return "handler_invoke"
}

func (h OutcomeResponseHandler) AddAttributes(txn *newrelic.Transaction, result interface{}) {
	outcome, ok := result.(*service.Outcome)
	if txn == nil || !ok {
		return
	}

	txn.AddAttribute("invoke.policy", string(outcome.Policy))
	txn.AddAttribute("invoke.stream", outcome.Stream)
	txn.AddAttribute("invoke.exit_code", outcome.ExitCode)
	txn.AddAttribute("invoke.failed", outcome.Failed)
	txn.AddAttribute("invoke.hides_failure", outcome.HidesFailure())
}

// handleRequest is the shared execution pipeline for all typed handlers.
//
// It binds and validates the request, runs the handler, logs with the
// request-scoped logger, reports timings and errors to New Relic and
// finally writes the response through responseHandler.
func handleRequest[Req validation.Validatable](
	c echo.Context,
	req Req,
	handler func(c echo.Context, req Req) (interface{}, error),
	responseHandler ResponseHandler,
) error {
	start := time.Now()
	method := c.Request().Method
	path := c.Path()

	// Set by nrecho when New Relic is enabled.
	txn := newrelic.FromContext(c.Request().Context())
	if txn != nil {
		txn.AddAttribute("handler.name", path)
		responseHandler.AddAttributes(txn, nil)
	}

	logger := middleware.GetLogger(c).With().
		Str("operation", responseHandler.GetOperation()).
		Str("method", method).
		Str("path", path).
		Logger()

	logger.Info().Msg("handling request")

	validationStart := time.Now()
	if err := validation.BindAndValidate(c, req); err != nil {
		validationDuration := time.Since(validationStart)

		logger.Error().
			Err(err).
			Dur("validation_duration", validationDuration).
			Msg("request validation failed")

		if txn != nil {
			txn.NoticeError(nrpkgerrors.Wrap(err))
			txn.AddAttribute("validation.status", "failed")
			txn.AddAttribute("validation.duration_ms", validationDuration.Milliseconds())
		}

		// The global error handler formats the response.
		return err
	}

	validationDuration := time.Since(validationStart)
	if txn != nil {
		txn.AddAttribute("validation.status", "success")
		txn.AddAttribute("validation.duration_ms", validationDuration.Milliseconds())
	}

	logger.Debug().
		Dur("validation_duration", validationDuration).
		Msg("request validation successful")

	handlerStart := time.Now()
	result, err := handler(c, req)
	handlerDuration := time.Since(handlerStart)

	if err != nil {
		totalDuration := time.Since(start)

		logger.Error().
			Err(err).
			Dur("handler_duration", handlerDuration).
			Dur("total_duration", totalDuration).
			Msg("handler execution failed")

		if txn != nil {
			txn.NoticeError(nrpkgerrors.Wrap(err))
			txn.AddAttribute("handler.status", "error")
			txn.AddAttribute("handler.duration_ms", handlerDuration.Milliseconds())
			txn.AddAttribute("total.duration_ms", totalDuration.Milliseconds())
		}
		return err
	}

	totalDuration := time.Since(start)

	if txn != nil {
		txn.AddAttribute("handler.status", "success")
		txn.AddAttribute("handler.duration_ms", handlerDuration.Milliseconds())
		txn.AddAttribute("total.duration_ms", totalDuration.Milliseconds())

		responseHandler.AddAttributes(txn, result)
	}

	logger.Info().
		Dur("handler_duration", handlerDuration).
		Dur("validation_duration", validationDuration).
		Dur("total_duration", totalDuration).
		Msg("request completed")

	return responseHandler.Handle(c, result)
}

// HandleOutcome wraps a handler that runs a peer invocation. The response
// status and body are taken from the returned outcome.
//
// newReq is called once per request so concurrent requests never share
// a payload:
//
//	g.POST("/cars", handler.HandleOutcome(h, fn, func() *MyReq { return &MyReq{} }))
func HandleOutcome[Req validation.Validatable](
	h Handler,
	handler HandlerFunc[Req, *service.Outcome],
	newReq func() Req,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		return handleRequest(c, newReq(), func(c echo.Context, req Req) (interface{}, error) {
			return handler(c, req)
		}, OutcomeResponseHandler{})
	}
}
