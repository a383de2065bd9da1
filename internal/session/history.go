// File: internal/session/history.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package session

import (
	"sync"
	"time"

	"github.com/eapache/queue"

	"github.com/momentics/hioload-headunit/api"
)

// DefaultCapacity bounds the number of finished sessions kept.
const DefaultCapacity = 64

// EndReason tells how a session finished.
type EndReason string

const (
	EndQuit      EndReason = "quit"
	EndPreempted EndReason = "preempted"
	EndStopped   EndReason = "stopped"
)

// Record describes one projection session.
type Record struct {
	ID        string            `json:"id"`
	Transport api.TransportKind `json:"transport"`
	StartedAt time.Time         `json:"started_at"`
	EndedAt   time.Time         `json:"ended_at,omitempty"`
	Reason    EndReason         `json:"reason,omitempty"`
	Pauses    int               `json:"pauses"`
}

// Duration is the session length, or the time since start while active.
func (r Record) Duration(now time.Time) time.Duration {
	if r.EndedAt.IsZero() {
		return now.Sub(r.StartedAt)
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// History implements api.SessionObserver.
type History struct {
	mu       sync.RWMutex
	capacity int
	active   *Record
	finished *queue.Queue // of Record, oldest first
	failures int
}

var _ api.SessionObserver = (*History)(nil)

// NewHistory keeps up to capacity finished sessions; 0 uses DefaultCapacity.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &History{capacity: capacity, finished: queue.New()}
}

// OnSessionEvent implements api.SessionObserver.
func (h *History) OnSessionEvent(ev api.SessionEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch ev.Type {
	case api.EventSessionStarted:
		h.active = &Record{ID: ev.SessionID, Transport: ev.Transport, StartedAt: ev.Time}
	case api.EventPaused:
		if h.active != nil && h.active.ID == ev.SessionID {
			h.active.Pauses++
		}
	case api.EventSessionFailed:
		h.failures++
	case api.EventSessionPreempted:
		h.finish(ev, EndPreempted)
	case api.EventSessionEnded:
		reason := EndQuit
		if ev.State == api.StateStopped {
			reason = EndStopped
		}
		h.finish(ev, reason)
	}
}

// finish moves the active record into the history. Caller holds mu.
func (h *History) finish(ev api.SessionEvent, reason EndReason) {
	if h.active == nil || h.active.ID != ev.SessionID {
		return
	}
	rec := *h.active
	rec.EndedAt = ev.Time
	rec.Reason = reason
	h.active = nil

	h.finished.Add(rec)
	for h.finished.Length() > h.capacity {
		h.finished.Remove()
	}
}

// Active returns the running session, if any.
func (h *History) Active() (Record, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.active == nil {
		return Record{}, false
	}
	return *h.active, true
}

// Recent returns finished sessions, newest first.
func (h *History) Recent() []Record {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := h.finished.Length()
	out := make([]Record, 0, n)
	for i := n - 1; i >= 0; i-- {
		out = append(out, h.finished.Get(i).(Record))
	}
	return out
}

// Failures counts sessions that never became active.
func (h *History) Failures() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.failures
}
