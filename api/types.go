// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared API-level type declarations, DTOs, and constants.

package api

import (
	"fmt"
	"time"
)

// SessionState enumerates the orchestrator lifecycle states.
type SessionState int

const (
	StateIdle SessionState = iota
	StateWatching
	StateActive
	StateStopped
)

func (s SessionState) String() string {
	switch s {
	case StateWatching:
		return "watching"
	case StateActive:
		return "active"
	case StateStopped:
		return "stopped"
	default:
		return "idle"
	}
}

// MarshalText renders the state by name in JSON and logs.
func (s SessionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name produced by MarshalText.
func (s *SessionState) UnmarshalText(b []byte) error {
	for _, st := range []SessionState{StateIdle, StateWatching, StateActive, StateStopped} {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", b)
}

// SessionEventType names an orchestrator transition.
type SessionEventType string

const (
	EventWatching         SessionEventType = "watching"
	EventSessionStarted   SessionEventType = "session_started"
	EventSessionFailed    SessionEventType = "session_failed"
	EventSessionPreempted SessionEventType = "session_preempted"
	EventSessionEnded     SessionEventType = "session_ended"
	EventPaused           SessionEventType = "paused"
	EventResumed          SessionEventType = "resumed"
	EventDeviceDropped    SessionEventType = "device_dropped"
	EventCleanupFailed    SessionEventType = "cleanup_failed"
	EventStopped          SessionEventType = "stopped"
)

// SessionEvent describes one transition for observers.
type SessionEvent struct {
	Type      SessionEventType `json:"type"`
	State     SessionState     `json:"state"`
	SessionID string           `json:"session_id,omitempty"`
	Transport TransportKind    `json:"transport,omitempty"`
	Step      string           `json:"step,omitempty"`
	Reason    string           `json:"reason,omitempty"`
	Error     string           `json:"error,omitempty"`
	Time      time.Time        `json:"time"`
}

// SessionObserver receives transition events. Implementations are called
// from the orchestrator's serialized context and must not block.
type SessionObserver interface {
	OnSessionEvent(ev SessionEvent)
}

// Snapshot is a consistent, read-only view of the orchestrator.
type Snapshot struct {
	State           SessionState  `json:"state"`
	Stopped         bool          `json:"stopped"`
	SessionID       string        `json:"session_id,omitempty"`
	Transport       TransportKind `json:"transport,omitempty"`
	Remote          string        `json:"remote,omitempty"`
	HubArmed        bool          `json:"hub_armed"`
	EnumeratorArmed bool          `json:"enumerator_armed"`
	AcceptorArmed   bool          `json:"acceptor_armed"`
}
