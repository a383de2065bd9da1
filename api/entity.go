// File: api/entity.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Projection session entity contracts.

package api

// EntityEventHandler is the callback sink a session entity reports to.
type EntityEventHandler interface {
	// OnQuit is invoked exactly once when the session ends for any reason.
	// It may be called from any goroutine.
	OnQuit()
}

// Entity is one negotiated projection session bound to a single endpoint.
// The entity owns the endpoint once created.
type Entity interface {
	ID() string
	Start(handler EntityEventHandler) error
	Stop() error
	Pause() error
	Resume() error
}

// EntityFactory builds a session entity over an endpoint. Failures that
// stem from transport or protocol bring-up are reported as negotiation
// errors (see IsNegotiation).
type EntityFactory interface {
	Create(ep Endpoint) (Entity, error)
}
