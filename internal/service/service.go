// Package service contains the business logic.
//
// It sits between the handler layer and the external peer CLI. It
// receives bound request data from the handler, builds the chaincode
// invocation, runs it through the peer client and decides, according to
// the configured response policy, what the HTTP response should carry.
package service
