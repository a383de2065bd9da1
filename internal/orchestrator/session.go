// File: internal/orchestrator/session.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package orchestrator

import (
	"github.com/momentics/hioload-headunit/api"
	"github.com/momentics/hioload-headunit/internal/resiliency"
)

// quitSink routes an entity's quit back onto the strand, tagged with the
// session generation it belongs to.
type quitSink struct {
	o   *Orchestrator
	gen uint64
}

func (q *quitSink) OnQuit() {
	q.o.post("session-quit", func() { q.o.handleQuit(q.gen) })
}

// startSession wraps, creates and starts a session. Any failure releases
// what was acquired and falls back to watching.
func (o *Orchestrator) startSession(kind api.TransportKind, remote string, wrap func() (api.Endpoint, error)) {
	o.sessionGen++
	gen := o.sessionGen
	log := o.log.WithValues("transport", kind, "remote", remote)

	var ep api.Endpoint
	if err := resiliency.Isolate(log, "wrap-endpoint", func() (err error) {
		ep, err = wrap()
		return err
	}); err != nil {
		o.sessionFailed(kind, "wrap-endpoint", err, nil, nil)
		return
	}

	var ent api.Entity
	if err := resiliency.Isolate(log, "create-entity", func() (err error) {
		ent, err = o.factory.Create(ep)
		if err == nil && ent == nil {
			err = api.NewError(api.ErrCodeInternal, "factory returned no entity")
		}
		return err
	}); err != nil {
		o.sessionFailed(kind, "create-entity", err, ep, nil)
		return
	}

	s := &session{id: ent.ID(), gen: gen, kind: kind, remote: remote, endpoint: ep, entity: ent}
	o.session = s
	if err := resiliency.Isolate(log, "start-entity", func() error {
		return ent.Start(&quitSink{o: o, gen: gen})
	}); err != nil {
		o.session = nil
		o.sessionFailed(kind, "start-entity", err, ep, ent)
		return
	}

	log.Info("Projection session started", "session", s.id)
	o.emit(api.SessionEvent{Type: api.EventSessionStarted, SessionID: s.id, Transport: kind})
}

func (o *Orchestrator) sessionFailed(kind api.TransportKind, step string, err error, ep api.Endpoint, ent api.Entity) {
	if api.IsNegotiation(err) {
		o.log.Info("Session negotiation failed, back to watching", "transport", kind, "step", step, "error", err.Error())
	} else {
		o.log.Error(err, "Session bring-up failed, back to watching", "transport", kind, "step", step)
	}
	o.release(ent, ep, "")
	o.emit(api.SessionEvent{
		Type:      api.EventSessionFailed,
		Transport: kind,
		Step:      step,
		Reason:    api.CodeOf(err).String(),
		Error:     err.Error(),
	})
	o.enterWatching()
}

func (o *Orchestrator) handleQuit(gen uint64) {
	s := o.session
	if s == nil || s.gen != gen {
		o.log.V(1).Info("Ignoring quit from a finished session")
		return
	}
	o.log.Info("Projection session ended", "session", s.id)
	o.teardown(s, api.EventSessionEnded)
	o.enterWatching()
}

// teardown clears the session slot and releases the session.
func (o *Orchestrator) teardown(s *session, ev api.SessionEventType) {
	o.session = nil
	o.release(s.entity, s.endpoint, s.id)
	o.emit(api.SessionEvent{Type: ev, SessionID: s.id, Transport: s.kind})
}

// release stops ent and closes ep, each step isolated from the other.
func (o *Orchestrator) release(ent api.Entity, ep api.Endpoint, id string) {
	var steps []resiliency.Step
	if ent != nil {
		steps = append(steps, resiliency.Step{Name: "stop-entity", Fn: ent.Stop})
	}
	if ep != nil {
		steps = append(steps, resiliency.Step{Name: "release-endpoint", Fn: ep.Close})
	}
	err := resiliency.RunSteps(o.log, steps...)
	for _, step := range resiliency.FailedSteps(err) {
		o.emit(api.SessionEvent{Type: api.EventCleanupFailed, SessionID: id, Step: step})
	}
}

func (o *Orchestrator) stopAll() {
	if o.stopped {
		o.log.V(1).Info("Already stopped")
		return
	}
	o.stopped = true
	o.log.Info("Stopping all sources and sessions")

	err := resiliency.RunSteps(o.log,
		resiliency.Step{Name: "cancel-enumerator", Fn: func() error { o.enumerator.Cancel(); return nil }},
		resiliency.Step{Name: "cancel-hub", Fn: func() error { o.watcher.Cancel(); return nil }},
		resiliency.Step{Name: "cancel-accept", Fn: func() error { o.acceptor.Cancel(); return nil }},
	)
	o.enum.disarm()
	o.hub.disarm()
	o.accept.disarm()
	for _, step := range resiliency.FailedSteps(err) {
		o.emit(api.SessionEvent{Type: api.EventCleanupFailed, Step: step})
	}

	if s := o.session; s != nil {
		o.teardown(s, api.EventSessionEnded)
	}
	o.emit(api.SessionEvent{Type: api.EventStopped})
}

func (o *Orchestrator) forward(op string, ev api.SessionEventType) {
	s := o.session
	if s == nil {
		o.log.Info("No active session", "command", op)
		return
	}
	fn := s.entity.Pause
	if ev == api.EventResumed {
		fn = s.entity.Resume
	}
	if err := resiliency.Isolate(o.log, op, fn); err != nil {
		return
	}
	o.emit(api.SessionEvent{Type: ev, SessionID: s.id, Transport: s.kind})
}
