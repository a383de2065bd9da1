// File: fake/entity.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package fake

import (
	"strconv"
	"sync"

	"github.com/momentics/hioload-headunit/api"
)

// Entity is a fake api.Entity that records every call.
type Entity struct {
	id string
	ep api.Endpoint

	mu       sync.Mutex
	handler  api.EntityEventHandler
	starts   int
	stops    int
	pauses   int
	resumes  int
	startErr error
	stopErr  error
	stopHook func()
}

var _ api.Entity = (*Entity)(nil)

func (e *Entity) ID() string { return e.id }

// Endpoint returns the endpoint the entity was created over.
func (e *Entity) Endpoint() api.Endpoint { return e.ep }

func (e *Entity) Start(handler api.EntityEventHandler) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.starts++
	if e.startErr != nil {
		return e.startErr
	}
	e.handler = handler
	return nil
}

// Stop records the call and closes the endpoint. A configured stop hook
// runs after the bookkeeping; it may panic.
func (e *Entity) Stop() error {
	e.mu.Lock()
	e.stops++
	err := e.stopErr
	hook := e.stopHook
	e.mu.Unlock()
	if e.ep != nil {
		_ = e.ep.Close()
	}
	if hook != nil {
		hook()
	}
	return err
}

func (e *Entity) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pauses++
	return nil
}

func (e *Entity) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resumes++
	return nil
}

// Quit signals the end of the session to the handler given to Start.
func (e *Entity) Quit() {
	e.mu.Lock()
	h := e.handler
	e.mu.Unlock()
	if h != nil {
		h.OnQuit()
	}
}

func (e *Entity) SetStopError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopErr = err
}

func (e *Entity) SetStopHook(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopHook = fn
}

// Counts returns starts, stops, pauses and resumes.
func (e *Entity) Counts() (starts, stops, pauses, resumes int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.starts, e.stops, e.pauses, e.resumes
}

// Live reports whether the entity was started and not stopped since.
func (e *Entity) Live() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.handler != nil && e.starts > 0 && e.startErr == nil && e.stops == 0
}

// EntityFactory is a fake api.EntityFactory.
type EntityFactory struct {
	mu        sync.Mutex
	created   []*Entity
	createErr error
	startErr  error
	seq       int
}

var _ api.EntityFactory = (*EntityFactory)(nil)

func NewEntityFactory() *EntityFactory {
	return &EntityFactory{}
}

// Create implements api.EntityFactory.Create.
func (f *EntityFactory) Create(ep api.Endpoint) (api.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.seq++
	e := &Entity{id: "fake-" + strconv.Itoa(f.seq), ep: ep, startErr: f.startErr}
	f.created = append(f.created, e)
	return e, nil
}

// SetCreateError makes subsequent Create calls fail with err.
func (f *EntityFactory) SetCreateError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createErr = err
}

// SetStartError makes entities created from now on fail Start with err.
func (f *EntityFactory) SetStartError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startErr = err
}

// Created returns the entities created so far.
func (f *EntityFactory) Created() []*Entity {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*Entity, len(f.created))
	copy(out, f.created)
	return out
}

// Last returns the most recently created entity or nil.
func (f *EntityFactory) Last() *Entity {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.created) == 0 {
		return nil
	}
	return f.created[len(f.created)-1]
}

// LiveCount counts created entities that are started and not stopped.
func (f *EntityFactory) LiveCount() int {
	n := 0
	for _, e := range f.Created() {
		if e.Live() {
			n++
		}
	}
	return n
}
