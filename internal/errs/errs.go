// Package errs defines the error shape returned to API clients for
// everything that is not a peer process outcome.
//
// Process failures are never turned into these errors: their output is
// forwarded as-is by the car handler. HTTPError covers the rest, such as
// malformed JSON, unknown routes, rate limiting and internal faults.
package errs
