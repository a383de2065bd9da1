// File: internal/orchestrator/orchestrator.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package orchestrator

import (
	"context"
	"fmt"
	"net"

	"github.com/go-logr/logr"
	"github.com/jonboulle/clockwork"

	"github.com/momentics/hioload-headunit/api"
	"github.com/momentics/hioload-headunit/internal/concurrency"
	"github.com/momentics/hioload-headunit/internal/resiliency"
)

// source tracks one single-shot collaborator operation. gen changes on
// every arm and disarm so a completion from an older arm is recognized.
type source struct {
	armed bool
	gen   uint64
}

func (s *source) arm() uint64 {
	s.gen++
	s.armed = true
	return s.gen
}

func (s *source) disarm() {
	s.gen++
	s.armed = false
}

// current reports whether gen identifies the outstanding arm.
func (s *source) current(gen uint64) bool {
	return s.armed && s.gen == gen
}

// session is the single active projection session.
type session struct {
	id       string
	gen      uint64
	kind     api.TransportKind
	remote   string
	endpoint api.Endpoint
	entity   api.Entity
}

// Orchestrator implements api.SessionController.
//
// Fields below exec are touched only from strand tasks.
type Orchestrator struct {
	log             logr.Logger
	exec            api.Executor
	ownsExec        bool
	watcher         api.DeviceWatcher
	enumerator      api.AccessoryEnumerator
	acceptor        api.Acceptor
	factory         api.EntityFactory
	autostart       api.AutostartPolicy
	observers       []api.SessionObserver
	rearmOnHubError bool
	clock           clockwork.Clock
	wrapUSB         func(api.DeviceHandle) (api.Endpoint, error)
	wrapTCP         func(net.Conn) (api.Endpoint, error)

	stopped    bool
	session    *session
	sessionGen uint64
	hub        source
	enum       source
	accept     source
}

var _ api.SessionController = (*Orchestrator)(nil)

// New creates an orchestrator in the Idle state. Nothing is armed until
// BeginWaitingForDevice.
func New(deps Deps, log logr.Logger, opts ...Option) (*Orchestrator, error) {
	if deps.Watcher == nil || deps.Enumerator == nil || deps.Acceptor == nil || deps.Factory == nil {
		return nil, fmt.Errorf("orchestrator: missing collaborator: %w", api.ErrInvalidArgument)
	}
	o := &Orchestrator{
		log:        log,
		ownsExec:   true,
		watcher:    deps.Watcher,
		enumerator: deps.Enumerator,
		acceptor:   deps.Acceptor,
		factory:    deps.Factory,
		autostart:  alwaysAutostart{},
		clock:      clockwork.NewRealClock(),
		wrapUSB:    defaultWrapUSB,
		wrapTCP:    defaultWrapTCP,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.exec == nil {
		o.exec = concurrency.NewStrand(log.WithName("strand"))
		o.ownsExec = true
	}
	return o, nil
}

// BeginWaitingForDevice arms the hub watch, the accessory enumerator and
// the acceptor, each only when idle. After StopAll it does nothing.
func (o *Orchestrator) BeginWaitingForDevice() {
	o.post("begin-waiting", o.beginWaiting)
}

// OnTransportAccepted hands an inbound network peer to the orchestrator.
// An active session is preempted by the new peer.
func (o *Orchestrator) OnTransportAccepted(conn net.Conn) {
	if conn == nil {
		return
	}
	if !o.post("transport-accepted", func() { o.handleAccepted(conn) }) {
		_ = conn.Close()
	}
}

// StopAll cancels every pending watch and stops the active session.
// The orchestrator stays stopped; repeated calls are no-ops.
func (o *Orchestrator) StopAll() {
	o.post("stop-all", o.stopAll)
}

// PauseActiveSession forwards a pause to the active session, if any.
func (o *Orchestrator) PauseActiveSession() {
	o.post("pause", func() { o.forward("pause", api.EventPaused) })
}

// ResumeActiveSession forwards a resume to the active session, if any.
func (o *Orchestrator) ResumeActiveSession() {
	o.post("resume", func() { o.forward("resume", api.EventResumed) })
}

// Snapshot returns the state as seen by the strand after every command
// queued before the call has been applied.
func (o *Orchestrator) Snapshot(ctx context.Context) (api.Snapshot, error) {
	res := make(chan api.Snapshot, 1)
	if err := o.exec.Dispatch(func() { res <- o.snapshot() }); err != nil {
		return api.Snapshot{}, err
	}
	select {
	case s := <-res:
		return s, nil
	case <-ctx.Done():
		return api.Snapshot{}, ctx.Err()
	}
}

// Close stops the orchestrator and, when it owns its strand, drains and
// closes it.
func (o *Orchestrator) Close() {
	o.StopAll()
	if o.ownsExec {
		o.exec.Close()
	}
}

func (o *Orchestrator) post(name string, task func()) bool {
	if err := o.exec.Dispatch(task); err != nil {
		o.log.V(1).Info("Dropped orchestrator task", "task", name, "error", err.Error())
		return false
	}
	return true
}

func (o *Orchestrator) state() api.SessionState {
	switch {
	case o.stopped:
		return api.StateStopped
	case o.session != nil:
		return api.StateActive
	case o.hub.armed || o.enum.armed || o.accept.armed:
		return api.StateWatching
	default:
		return api.StateIdle
	}
}

func (o *Orchestrator) snapshot() api.Snapshot {
	s := api.Snapshot{
		State:           o.state(),
		Stopped:         o.stopped,
		HubArmed:        o.hub.armed,
		EnumeratorArmed: o.enum.armed,
		AcceptorArmed:   o.accept.armed,
	}
	if o.session != nil {
		s.SessionID = o.session.id
		s.Transport = o.session.kind
		s.Remote = o.session.remote
	}
	return s
}

func (o *Orchestrator) emit(ev api.SessionEvent) {
	ev.State = o.state()
	ev.Time = o.clock.Now()
	for _, obs := range o.observers {
		obs := obs
		_ = resiliency.Isolate(o.log, "observer", func() error {
			obs.OnSessionEvent(ev)
			return nil
		})
	}
}
