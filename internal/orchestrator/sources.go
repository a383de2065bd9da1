// File: internal/orchestrator/sources.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Arming and completion handling for the three peer sources: the USB hub
// watch, the accessory enumerator and the TCP acceptor.

package orchestrator

import (
	"errors"
	"net"

	"github.com/momentics/hioload-headunit/api"
	"github.com/momentics/hioload-headunit/internal/resiliency"
)

func (o *Orchestrator) beginWaiting() {
	if o.stopped {
		o.log.Info("Ignoring wait request, orchestrator is stopped")
		return
	}
	o.armHub()
	o.armEnumerator()
	o.armAcceptor()
	if o.session == nil {
		o.emit(api.SessionEvent{Type: api.EventWatching})
	}
}

// enterWatching re-arms the hub watch and makes sure the acceptor listens.
// The enumerator is only run from BeginWaitingForDevice.
func (o *Orchestrator) enterWatching() {
	if o.stopped {
		return
	}
	o.armHub()
	o.armAcceptor()
	o.emit(api.SessionEvent{Type: api.EventWatching})
}

func (o *Orchestrator) armHub() {
	if o.stopped || o.hub.armed {
		return
	}
	gen := o.hub.arm()
	err := resiliency.Isolate(o.log, "arm-hub", func() error {
		o.watcher.Arm(
			func(dev api.DeviceHandle) {
				o.post("device-found", func() { o.handleDeviceFound(gen, dev) })
			},
			func(err error) {
				o.post("hub-error", func() { o.handleHubError(gen, err) })
			},
		)
		return nil
	})
	if err != nil {
		o.hub.disarm()
	}
}

func (o *Orchestrator) armEnumerator() {
	if o.stopped || o.enum.armed {
		return
	}
	gen := o.enum.arm()
	err := resiliency.Isolate(o.log, "enumerate", func() error {
		o.enumerator.Enumerate(
			func(switched bool) {
				o.post("enumeration-result", func() { o.handleEnumeration(gen, switched) })
			},
			func(err error) {
				o.post("enumeration-error", func() { o.handleEnumerationError(gen, err) })
			},
		)
		return nil
	})
	if err != nil {
		o.enum.disarm()
	}
}

func (o *Orchestrator) armAcceptor() {
	if o.stopped || o.accept.armed {
		return
	}
	gen := o.accept.arm()
	err := resiliency.Isolate(o.log, "arm-acceptor", func() error {
		return o.acceptor.AcceptOne(func(conn net.Conn, err error) {
			if !o.post("accept-completion", func() { o.handleAcceptCompletion(gen, conn, err) }) && conn != nil {
				_ = conn.Close()
			}
		})
	})
	if err != nil {
		o.accept.disarm()
	}
}

func (o *Orchestrator) handleDeviceFound(gen uint64, dev api.DeviceHandle) {
	if !o.hub.current(gen) {
		o.log.V(1).Info("Ignoring stale hub completion")
		return
	}
	o.hub.disarm()
	if o.stopped {
		return
	}
	log := o.log.WithValues("device", dev.ID())
	if o.session != nil {
		log.Info("Device attached while a session is active, ignoring", "session", o.session.id)
		o.emit(api.SessionEvent{Type: api.EventDeviceDropped, Transport: api.TransportUSB, Step: "session-active"})
		return
	}
	if o.autostart.AutostartDisabled() {
		log.Info("Autostart disabled, ignoring device")
		o.emit(api.SessionEvent{Type: api.EventDeviceDropped, Transport: api.TransportUSB, Step: "autostart-disabled"})
		return
	}

	_ = resiliency.Isolate(o.log, "cancel-enumerator", func() error {
		o.enumerator.Cancel()
		return nil
	})
	o.enum.disarm()

	log.Info("Accessory device attached, starting session")
	o.startSession(api.TransportUSB, dev.ID(), func() (api.Endpoint, error) {
		return o.wrapUSB(dev)
	})
}

func (o *Orchestrator) handleHubError(gen uint64, err error) {
	if errors.Is(err, api.ErrOperationInProgress) {
		o.log.V(1).Info("Hub watch already in progress")
		return
	}
	if !o.hub.current(gen) {
		o.log.V(1).Info("Ignoring stale hub error", "error", err.Error())
		return
	}
	o.hub.disarm()
	o.log.Error(err, "Hub watch failed")
	if o.rearmOnHubError && !o.stopped && !errors.Is(err, api.ErrOperationAborted) {
		o.armHub()
	}
}

func (o *Orchestrator) handleEnumeration(gen uint64, switched bool) {
	if !o.enum.current(gen) {
		o.log.V(1).Info("Ignoring stale enumeration result")
		return
	}
	o.enum.disarm()
	o.log.Info("Accessory enumeration finished", "switched", switched)
}

func (o *Orchestrator) handleEnumerationError(gen uint64, err error) {
	if errors.Is(err, api.ErrOperationInProgress) {
		o.log.V(1).Info("Accessory enumeration already in progress")
		return
	}
	if !o.enum.current(gen) {
		o.log.V(1).Info("Ignoring stale enumeration error", "error", err.Error())
		return
	}
	o.enum.disarm()
	if errors.Is(err, api.ErrOperationAborted) {
		o.log.V(1).Info("Accessory enumeration cancelled")
		return
	}
	o.log.Error(err, "Accessory enumeration failed")
}

func (o *Orchestrator) handleAcceptCompletion(gen uint64, conn net.Conn, err error) {
	if !o.accept.current(gen) {
		o.log.V(1).Info("Ignoring stale accept completion")
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	o.accept.disarm()
	if err != nil {
		if o.stopped || errors.Is(err, api.ErrOperationAborted) {
			return
		}
		if errors.Is(err, api.ErrTransportClosed) {
			o.log.Info("Acceptor closed, no longer listening")
			return
		}
		o.log.Error(err, "Accept failed, re-arming")
		o.armAcceptor()
		return
	}
	o.handleAccepted(conn)
}

func (o *Orchestrator) handleAccepted(conn net.Conn) {
	if conn == nil {
		return
	}
	if o.stopped {
		o.log.Info("Closing connection accepted after stop", "remote", remoteOf(conn))
		_ = conn.Close()
		return
	}
	o.armAcceptor()

	if s := o.session; s != nil {
		o.log.Info("Network peer preempts the active session", "session", s.id, "remote", remoteOf(conn))
		o.teardown(s, api.EventSessionPreempted)
	}
	o.startSession(api.TransportTCP, remoteOf(conn), func() (ep api.Endpoint, err error) {
		// Without an endpoint nothing else owns the socket.
		defer func() {
			if err != nil || ep == nil {
				_ = conn.Close()
			}
		}()
		return o.wrapTCP(conn)
	})
}

func remoteOf(conn net.Conn) string {
	if conn == nil || conn.RemoteAddr() == nil {
		return ""
	}
	return conn.RemoteAddr().String()
}
