// Package handler is the HTTP layer that sits right behind the router.
//
// It binds and validates requests through the validation package, calls
// the service layer and writes the response. Handlers never build peer
// commands themselves.
package handler
