// Package lib acts as a library for modules that do not fit
// strictly into other layers.
//
// It holds the integrations with external programs and providers,
// such as the Hyperledger Fabric `peer` command-line client (lib/peer).
package lib
