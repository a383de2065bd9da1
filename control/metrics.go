// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Prometheus session metrics fed by orchestrator transition events.

package control

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/momentics/hioload-headunit/api"
)

// Metrics implements api.SessionObserver on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	SessionsStarted   *prometheus.CounterVec
	SessionFailures   *prometheus.CounterVec
	SessionsPreempted prometheus.Counter
	SessionsEnded     *prometheus.CounterVec
	DevicesDropped    *prometheus.CounterVec
	CleanupFailures   *prometheus.CounterVec
	SessionActive     prometheus.Gauge
	SessionPaused     prometheus.Gauge
	State             *prometheus.GaugeVec
}

var _ api.SessionObserver = (*Metrics)(nil)

// NewMetrics registers every collector, plus the Go and process collectors,
// on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		// SessionsStarted counts sessions that reached the active state
		SessionsStarted: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "headunit_sessions_started_total",
				Help: "Projection sessions started by transport",
			},
			[]string{"transport"},
		),

		// SessionFailures counts bring-up failures by transport and error kind
		SessionFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "headunit_session_failures_total",
				Help: "Projection session bring-up failures by transport and reason",
			},
			[]string{"transport", "reason"},
		),

		SessionsPreempted: f.NewCounter(
			prometheus.CounterOpts{
				Name: "headunit_sessions_preempted_total",
				Help: "Sessions stopped because a new network peer arrived",
			},
		),

		SessionsEnded: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "headunit_sessions_ended_total",
				Help: "Sessions that ended by quit or stop, by transport",
			},
			[]string{"transport"},
		),

		DevicesDropped: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "headunit_devices_dropped_total",
				Help: "Attached accessory devices that did not start a session, by reason",
			},
			[]string{"reason"},
		),

		CleanupFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "headunit_cleanup_failures_total",
				Help: "Best-effort teardown steps that failed, by step",
			},
			[]string{"step"},
		),

		SessionActive: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "headunit_session_active",
				Help: "1 while a projection session is active",
			},
		),

		SessionPaused: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "headunit_session_paused",
				Help: "1 while the active session is paused",
			},
		),

		// State is 1 for the current orchestrator state and 0 otherwise
		State: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "headunit_state",
				Help: "Current orchestrator state (1 for the current state)",
			},
			[]string{"state"},
		),
	}
}

// Registry returns the registry to serve.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// OnSessionEvent implements api.SessionObserver.
func (m *Metrics) OnSessionEvent(ev api.SessionEvent) {
	switch ev.Type {
	case api.EventSessionStarted:
		m.SessionsStarted.WithLabelValues(string(ev.Transport)).Inc()
	case api.EventSessionFailed:
		m.SessionFailures.WithLabelValues(string(ev.Transport), ev.Reason).Inc()
	case api.EventSessionPreempted:
		m.SessionsPreempted.Inc()
	case api.EventSessionEnded:
		m.SessionsEnded.WithLabelValues(string(ev.Transport)).Inc()
	case api.EventDeviceDropped:
		m.DevicesDropped.WithLabelValues(ev.Step).Inc()
	case api.EventCleanupFailed:
		m.CleanupFailures.WithLabelValues(ev.Step).Inc()
	case api.EventPaused:
		m.SessionPaused.Set(1)
	case api.EventResumed:
		m.SessionPaused.Set(0)
	}

	if ev.State == api.StateActive {
		m.SessionActive.Set(1)
	} else {
		m.SessionActive.Set(0)
		m.SessionPaused.Set(0)
	}
	for _, s := range []api.SessionState{api.StateIdle, api.StateWatching, api.StateActive, api.StateStopped} {
		v := 0.0
		if s == ev.State {
			v = 1
		}
		m.State.WithLabelValues(s.String()).Set(v)
	}
}
