// Package api holds the contracts, shared enums and sentinel errors of hioload-reactor.
// Concrete implementations live in reactor, codec, internal/concurrency, control and server.
package api
