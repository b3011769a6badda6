package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	// RequestIDHeader carries the correlation id in both directions:
	// callers may send one, and every response echoes the id in use.
	RequestIDHeader = "X-Request-ID"

	// RequestIDKey is the echo context key holding the id for the
	// middleware and handlers further down the chain.
	RequestIDKey = "request_id"
)

// RequestID returns a middleware that gives every request a correlation id.
//
// Behavior:
//   - an incoming X-Request-ID header is reused as-is
//   - otherwise a random UUID (v4) is generated
//   - the id is stored in the echo context under RequestIDKey
//   - the id is set on the response header before the handler runs, so
//     it is present on error responses as well
//
// It must be the first middleware: the context enhancer, the tracing
// middleware and the request logger all read the id it stores.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Request().Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}

			c.Set(RequestIDKey, requestID)
			c.Response().Header().Set(RequestIDHeader, requestID)

			return next(c)
		}
	}
}

// GetRequestID returns the id stored by RequestID.
//
// It returns "" when RequestID did not run for this request, e.g. in
// handler tests that build an echo context by hand.
func GetRequestID(c echo.Context) string {
	if requestID, ok := c.Get(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}
