// File: internal/orchestrator/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package orchestrator

import (
	"net"

	"github.com/jonboulle/clockwork"

	"github.com/momentics/hioload-headunit/api"
	"github.com/momentics/hioload-headunit/internal/transport"
)

// Deps are the collaborators the orchestrator drives. All are required.
type Deps struct {
	Watcher    api.DeviceWatcher
	Enumerator api.AccessoryEnumerator
	Acceptor   api.Acceptor
	Factory    api.EntityFactory
}

// Option customizes orchestrator construction.
type Option func(*Orchestrator)

// WithExecutor runs the orchestrator on exec instead of a private strand.
// The caller keeps ownership of exec.
func WithExecutor(exec api.Executor) Option {
	return func(o *Orchestrator) {
		o.exec = exec
		o.ownsExec = false
	}
}

// WithAutostartPolicy sets the policy consulted on each USB device event.
// A nil policy is ignored.
func WithAutostartPolicy(p api.AutostartPolicy) Option {
	return func(o *Orchestrator) {
		if p != nil {
			o.autostart = p
		}
	}
}

// WithObserver registers a transition observer. Observers run on the strand.
func WithObserver(obs api.SessionObserver) Option {
	return func(o *Orchestrator) { o.observers = append(o.observers, obs) }
}

// WithRearmOnHubError re-arms the hub watch after a hub failure other than
// an abort or an in-progress rejection.
func WithRearmOnHubError(enabled bool) Option {
	return func(o *Orchestrator) { o.rearmOnHubError = enabled }
}

// WithClock sets the clock used to timestamp events.
func WithClock(c clockwork.Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

// WithEndpointWrappers overrides how USB devices and sockets become endpoints.
func WithEndpointWrappers(usb func(api.DeviceHandle) (api.Endpoint, error), tcp func(net.Conn) (api.Endpoint, error)) Option {
	return func(o *Orchestrator) {
		if usb != nil {
			o.wrapUSB = usb
		}
		if tcp != nil {
			o.wrapTCP = tcp
		}
	}
}

func defaultWrapUSB(dev api.DeviceHandle) (api.Endpoint, error) {
	ep, err := transport.NewUSBEndpoint(dev)
	if err != nil {
		return nil, err
	}
	return ep, nil
}

func defaultWrapTCP(conn net.Conn) (api.Endpoint, error) {
	ep, err := transport.NewTCPEndpoint(conn)
	if err != nil {
		return nil, err
	}
	return ep, nil
}

type alwaysAutostart struct{}

func (alwaysAutostart) AutostartDisabled() bool { return false }
