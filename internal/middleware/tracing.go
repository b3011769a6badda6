package middleware

import (
	"github.com/deppfellow/carledger/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/integrations/nrecho-v4"
	"github.com/newrelic/go-agent/v3/integrations/nrpkgerrors"
	"github.com/newrelic/go-agent/v3/newrelic"
)

// TracingMiddleware owns the New Relic side of request handling.
//
// It works in two layers:
//  1. NewRelicMiddleware starts one transaction per request.
//  2. EnhanceTracing decorates that transaction with request attributes
//     and reports returned errors.
//
// nrApp is nil when no license key is configured. Both layers then pass
// requests through untouched, so the router never has to branch on it.
type TracingMiddleware struct {
	server *server.Server
	nrApp  *newrelic.Application
}

// NewTracingMiddleware constructs a TracingMiddleware. nrApp may be nil.
func NewTracingMiddleware(s *server.Server, nrApp *newrelic.Application) *TracingMiddleware {
	return &TracingMiddleware{
		server: s,
		nrApp:  nrApp,
	}
}

// NewRelicMiddleware returns nrecho's middleware, which starts a
// transaction named after the echo route and stores it in the request
// context. Everything that calls newrelic.FromContext later (handlers,
// the context enhancer, the car service) depends on it.
//
// Without a New Relic application it returns a no-op middleware.
func (tm *TracingMiddleware) NewRelicMiddleware() echo.MiddlewareFunc {
	if tm.nrApp == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return next
		}
	}
	return nrecho.Middleware(tm.nrApp)
}

// EnhanceTracing adds custom attributes to the current transaction.
//
// Before the handler runs:
//   - http.real_ip and http.user_agent
//   - service.environment (primary.env)
//   - request.id, joining the trace with the request's log lines
//
// After the handler runs:
//   - http.status_code
//   - the returned error, if any, noticed through nrpkgerrors so the
//     pkg/errors stack trace is attached
//
// The error is still returned so the global error handler writes the
// response. Requests without a transaction pass straight through.
func (tm *TracingMiddleware) EnhanceTracing() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			txn := newrelic.FromContext(c.Request().Context())
			if txn == nil {
				return next(c)
			}

			txn.AddAttribute("http.real_ip", c.RealIP())
			txn.AddAttribute("http.user_agent", c.Request().UserAgent())
			txn.AddAttribute("service.environment", tm.server.Config.Primary.Env)

			if requestID := GetRequestID(c); requestID != "" {
				txn.AddAttribute("request.id", requestID)
			}

			err := next(c)
			if err != nil {
				txn.NoticeError(nrpkgerrors.Wrap(err))
			}

			txn.AddAttribute("http.status_code", c.Response().Status)

			return err
		}
	}
}
