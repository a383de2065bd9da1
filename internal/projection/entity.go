// File: internal/projection/entity.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package projection

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/go-logr/logr"

	"github.com/momentics/hioload-headunit/api"
)

const defaultReadBufferSize = 16 * 1024

// Handshake brings up the projection protocol over a fresh endpoint. It runs
// on the pump goroutine and may block on I/O; Stop unblocks it by closing ep.
type Handshake func(ep api.Endpoint) error

type entityState int32

const (
	entityCreated entityState = iota
	entityRunning
	entityStopped
)

// Stats counts inbound traffic for one entity.
type Stats struct {
	BytesIn      uint64
	BytesDropped uint64
}

// Entity implements api.Entity over an api.Endpoint.
type Entity struct {
	id        string
	log       logr.Logger
	ep        api.Endpoint
	sink      io.Writer
	handshake Handshake
	bufSize   int

	mu      sync.Mutex
	state   entityState
	handler api.EntityEventHandler
	err     error

	paused   atomic.Bool
	bytesIn  atomic.Uint64
	dropped  atomic.Uint64
	quitOnce sync.Once
	done     chan struct{}
}

var _ api.Entity = (*Entity)(nil)

func newEntity(id string, ep api.Endpoint, sink io.Writer, hs Handshake, bufSize int, log logr.Logger) *Entity {
	if sink == nil {
		sink = io.Discard
	}
	if bufSize <= 0 {
		bufSize = defaultReadBufferSize
	}
	return &Entity{
		id:        id,
		log:       log.WithValues("session", id, "transport", ep.Kind(), "remote", ep.Remote()),
		ep:        ep,
		sink:      sink,
		handshake: hs,
		bufSize:   bufSize,
		done:      make(chan struct{}),
	}
}

// ID returns the session identifier.
func (e *Entity) ID() string {
	return e.id
}

// Start launches the pump, which runs the handshake before reading.
// handler.OnQuit fires once when the pump ends, whether the handshake
// failed, the peer went away or Stop was called.
func (e *Entity) Start(handler api.EntityEventHandler) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case entityRunning:
		return api.ErrSessionAlreadyStarted
	case entityStopped:
		return api.ErrTransportClosed
	}

	e.handler = handler
	e.state = entityRunning
	go e.pump()
	e.log.Info("Projection session started")
	return nil
}

// Stop closes the endpoint and waits for the pump to exit. Idempotent.
func (e *Entity) Stop() error {
	e.mu.Lock()
	prev := e.state
	e.state = entityStopped
	e.mu.Unlock()

	if prev == entityStopped {
		return nil
	}
	err := e.ep.Close()
	if prev == entityRunning {
		<-e.done
	}
	e.log.Info("Projection session stopped")
	return err
}

// Pause stops delivering inbound data to the sink; data read meanwhile is dropped.
func (e *Entity) Pause() error {
	if !e.running() {
		return api.ErrSessionNotStarted
	}
	if !e.paused.Swap(true) {
		e.log.Info("Projection session paused")
	}
	return nil
}

// Resume restarts delivery to the sink.
func (e *Entity) Resume() error {
	if !e.running() {
		return api.ErrSessionNotStarted
	}
	if e.paused.Swap(false) {
		e.log.Info("Projection session resumed")
	}
	return nil
}

// Paused reports whether delivery is suspended.
func (e *Entity) Paused() bool {
	return e.paused.Load()
}

// Done is closed when the pump has exited.
func (e *Entity) Done() <-chan struct{} {
	return e.done
}

// Err returns the handshake failure that ended the session, if any.
func (e *Entity) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Stats returns traffic counters.
func (e *Entity) Stats() Stats {
	return Stats{BytesIn: e.bytesIn.Load(), BytesDropped: e.dropped.Load()}
}

func (e *Entity) running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == entityRunning
}

func (e *Entity) pump() {
	defer close(e.done)
	defer e.quit()

	if e.handshake != nil {
		if err := e.handshake(e.ep); err != nil {
			err = api.NegotiationError("projection handshake", err).WithContext("session", e.id)
			e.mu.Lock()
			e.err = err
			e.mu.Unlock()
			e.log.Info("Projection handshake failed", "error", err.Error())
			return
		}
	}

	buf := make([]byte, e.bufSize)
	for {
		n, err := e.ep.Read(buf)
		if n > 0 {
			e.bytesIn.Add(uint64(n))
			if e.paused.Load() {
				e.dropped.Add(uint64(n))
			} else if _, werr := e.sink.Write(buf[:n]); werr != nil {
				e.log.Error(werr, "Sink rejected inbound data, ending session")
				return
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				e.log.Info("Peer closed the projection session")
			} else {
				e.log.V(1).Info("Projection read ended", "error", err.Error())
			}
			return
		}
	}
}

func (e *Entity) quit() {
	e.quitOnce.Do(func() {
		e.mu.Lock()
		h := e.handler
		e.mu.Unlock()
		if h != nil {
			h.OnQuit()
		}
	})
}
