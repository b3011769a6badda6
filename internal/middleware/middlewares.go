package middleware

import (
	"github.com/deppfellow/carledger/internal/server"
	"github.com/newrelic/go-agent/v3/newrelic"
)

// Middlewares groups every middleware component so the router is built
// from a single value.
//
// Each component holds the *server.Server it needs (config for CORS and
// rate limits, the base logger for the context enhancer, the New Relic
// application for tracing and custom events). They are built once at
// startup and shared by all requests.
type Middlewares struct {
	// Global holds CORS, request logging, panic recovery, secure headers
	// and the global error handler.
	Global *GlobalMiddlewares

	// ContextEnhancer attaches the request-scoped logger to the echo
	// context and to the request's context.Context.
	ContextEnhancer *ContextEnhancer

	// Tracing starts and decorates New Relic transactions.
	Tracing *TracingMiddleware

	// RateLimit throttles clients by IP when server.rate_limit is set and
	// records every rejection.
	RateLimit *RateLimitMiddleware
}

// NewMiddlewares constructs all middleware components.
//
// The New Relic application comes from the server's LoggerService. It is
// nil when New Relic is disabled, and the tracing middleware then turns
// into a pass-through.
func NewMiddlewares(s *server.Server) *Middlewares {
	var nrApp *newrelic.Application
	if s.LoggerService != nil {
		nrApp = s.LoggerService.GetApplication()
	}

	return &Middlewares{
		Global:          NewGlobalMiddlewares(s),
		ContextEnhancer: NewContextEnhancer(s),
		Tracing:         NewTracingMiddleware(s, nrApp),
		RateLimit:       NewRateLimitMiddleware(s),
	}
}
