package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-headunit/api"
)

func started(id string, kind api.TransportKind, at time.Time) api.SessionEvent {
	return api.SessionEvent{Type: api.EventSessionStarted, SessionID: id, Transport: kind, State: api.StateActive, Time: at}
}

func TestHistoryTracksActiveAndFinished(t *testing.T) {
	h := NewHistory(0)
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	h.OnSessionEvent(started("a", api.TransportUSB, t0))
	h.OnSessionEvent(api.SessionEvent{Type: api.EventPaused, SessionID: "a", State: api.StateActive})
	active, ok := h.Active()
	require.True(t, ok)
	assert.Equal(t, "a", active.ID)
	assert.Equal(t, 1, active.Pauses)

	h.OnSessionEvent(api.SessionEvent{Type: api.EventSessionPreempted, SessionID: "a", State: api.StateWatching, Time: t0.Add(time.Minute)})
	h.OnSessionEvent(started("b", api.TransportTCP, t0.Add(time.Minute)))
	h.OnSessionEvent(api.SessionEvent{Type: api.EventSessionEnded, SessionID: "b", State: api.StateStopped, Time: t0.Add(3 * time.Minute)})

	_, ok = h.Active()
	assert.False(t, ok)
	recent := h.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, "b", recent[0].ID)
	assert.Equal(t, EndStopped, recent[0].Reason)
	assert.Equal(t, 2*time.Minute, recent[0].Duration(time.Time{}))
	assert.Equal(t, EndPreempted, recent[1].Reason)
}

func TestHistoryIsBounded(t *testing.T) {
	h := NewHistory(3)
	for _, id := range []string{"1", "2", "3", "4", "5"} {
		h.OnSessionEvent(started(id, api.TransportTCP, time.Now()))
		h.OnSessionEvent(api.SessionEvent{Type: api.EventSessionEnded, SessionID: id, State: api.StateWatching})
	}
	recent := h.Recent()
	require.Len(t, recent, 3)
	assert.Equal(t, []string{"5", "4", "3"}, []string{recent[0].ID, recent[1].ID, recent[2].ID})
	assert.Equal(t, EndQuit, recent[0].Reason)
}

func TestHistoryIgnoresUnknownSessions(t *testing.T) {
	h := NewHistory(2)
	h.OnSessionEvent(api.SessionEvent{Type: api.EventSessionEnded, SessionID: "ghost"})
	h.OnSessionEvent(api.SessionEvent{Type: api.EventSessionFailed, Reason: "negotiation"})
	assert.Empty(t, h.Recent())
	assert.Equal(t, 1, h.Failures())
}
