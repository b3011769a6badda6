// Package middleware holds the echo middleware of the API.
//
// It covers request ids, the request-scoped logger, New Relic tracing,
// request logging, CORS, panic recovery, rate limiting and the global
// error handler that renders every non-invocation error as errs.HTTPError.
package middleware
