// File: facade/headunit.go
// Unified facade layer for the head unit.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// This file defines the HeadUnit struct, which aggregates all subsystems
// behind a single facade. It binds the projection listener, builds the USB
// hub watcher and accessory enumerator, wires the orchestrator with metrics
// and event observers, serves the local control API and follows the config
// file for hot reload. Start and Shutdown bracket the whole lifetime.

package facade

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/momentics/hioload-headunit/api"
	"github.com/momentics/hioload-headunit/control"
	"github.com/momentics/hioload-headunit/internal/controlapi"
	"github.com/momentics/hioload-headunit/internal/orchestrator"
	"github.com/momentics/hioload-headunit/internal/projection"
	"github.com/momentics/hioload-headunit/internal/session"
	"github.com/momentics/hioload-headunit/internal/transport"
	"github.com/momentics/hioload-headunit/internal/usb"
)

const snapshotProbeTimeout = time.Second

// Option customizes HeadUnit construction.
type Option func(*HeadUnit)

// WithConfigPath enables hot reload of the file the config was loaded from.
func WithConfigPath(path string) Option {
	return func(h *HeadUnit) { h.configPath = path }
}

// WithEntityFactory replaces the default projection entity factory.
func WithEntityFactory(f api.EntityFactory) Option {
	return func(h *HeadUnit) { h.factory = f }
}

// WithAccessorySwitcher plugs in the accessory-mode control-transfer backend.
func WithAccessorySwitcher(s usb.AccessorySwitcher) Option {
	return func(h *HeadUnit) { h.switcher = s }
}

// WithStreamOpener plugs in the USB bulk stream backend.
func WithStreamOpener(o usb.StreamOpener) Option {
	return func(h *HeadUnit) { h.opener = o }
}

// HeadUnit is the main facade type.
type HeadUnit struct {
	log        logr.Logger
	configPath string
	store      *control.ConfigStore  // Active configuration and autostart policy
	metrics    *control.Metrics      // Prometheus session metrics
	debug      *control.DebugProbes  // Debug probe registry
	history    *session.History      // Session journal
	factory    api.EntityFactory     // Session entity factory
	switcher   usb.AccessorySwitcher // Accessory-mode switch backend
	opener     usb.StreamOpener      // USB bulk stream backend

	acceptor *transport.TCPAcceptor     // Wireless projection listener
	orch     *orchestrator.Orchestrator // Connection lifecycle state machine
	api      *controlapi.Server         // Local control API, nil when disabled
	apiLn    net.Listener               // Control API listener
	cancel   context.CancelFunc         // Stops background goroutines
	wg       sync.WaitGroup             // Tracks background goroutines

	mu      sync.Mutex // Protects started/stopped
	started bool
	stopped bool
}

// New constructs a HeadUnit for cfg. Nothing is bound until Start.
func New(cfg *control.Config, log logr.Logger, opts ...Option) (*HeadUnit, error) {
	if cfg == nil {
		cfg = control.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	store := control.NewConfigStore(cfg)
	h := &HeadUnit{
		log:      log,
		store:    store,
		metrics:  control.NewMetrics(),
		debug:    control.NewDebugProbes(func() string { return store.Current().USB.SysfsRoot }),
		history:  session.NewHistory(session.DefaultCapacity),
		switcher: usb.UnsupportedSwitcher{},
	}
	for _, o := range opts {
		o(h)
	}
	if h.factory == nil {
		h.factory = projection.NewFactory(log.WithName("projection"))
	}
	return h, nil
}

// Start binds the listener, assembles the orchestrator, serves the control
// API and begins waiting for a device. Subsequent calls have no effect.
func (h *HeadUnit) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		return nil
	}
	if h.stopped {
		return api.ErrTransportClosed
	}
	cfg := h.store.Current()

	bindCtx := ctx
	if cfg.Listen.BindTimeout > 0 {
		var cancel context.CancelFunc
		bindCtx, cancel = context.WithTimeout(ctx, cfg.Listen.BindTimeout)
		defer cancel()
	}
	ln, err := transport.Listen(bindCtx, cfg.Listen.Addr(), h.log.WithName("listener"))
	if err != nil {
		return fmt.Errorf("bind projection listener: %w", err)
	}
	h.acceptor = transport.NewTCPAcceptor(ln, h.log.WithName("acceptor"))

	hubOpts := []usb.HubOption{
		usb.WithPollInterval(cfg.USB.PollInterval),
		usb.WithSwitcher(h.switcher),
	}
	if h.opener != nil {
		hubOpts = append(hubOpts, usb.WithStreamOpener(h.opener))
	}
	hub := usb.NewHub(cfg.USB.SysfsRoot, h.log.WithName("usb-hub"), hubOpts...)
	enumerator := usb.NewEnumerator(cfg.USB.SysfsRoot, h.switcher, h.log.WithName("usb-enumerator"))

	orchOpts := []orchestrator.Option{
		orchestrator.WithAutostartPolicy(h.store),
		orchestrator.WithObserver(h.metrics),
		orchestrator.WithObserver(h.history),
		orchestrator.WithRearmOnHubError(cfg.USB.RearmOnHubError),
	}
	var events *controlapi.EventHub
	if cfg.ControlAPI.Enabled {
		events = controlapi.NewEventHub(h.log.WithName("events"))
		orchOpts = append(orchOpts, orchestrator.WithObserver(events))
	}
	h.orch, err = orchestrator.New(orchestrator.Deps{
		Watcher:    hub,
		Enumerator: enumerator,
		Acceptor:   h.acceptor,
		Factory:    h.factory,
	}, h.log.WithName("orchestrator"), orchOpts...)
	if err != nil {
		_ = h.acceptor.Close()
		return err
	}
	h.registerProbes()

	runCtx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel

	if cfg.ControlAPI.Enabled {
		if err := h.startControlAPI(cfg.ControlAPI.Addr, events); err != nil {
			h.stopped = true
			_ = h.teardown(ctx)
			return err
		}
	}

	h.store.OnReload(h.onReload)
	if h.configPath != "" {
		w := control.NewFileWatcher(h.configPath, h.store, h.log.WithName("config"))
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			if err := w.Run(runCtx); err != nil {
				h.log.Error(err, "Config hot reload disabled")
			}
		}()
	}

	h.orch.BeginWaitingForDevice()
	h.started = true
	h.log.Info("Head unit started", "listen", h.acceptor.Addr().String(), "autostartDisabled", cfg.Autostart.Disabled)
	return nil
}

func (h *HeadUnit) startControlAPI(addr string, events *controlapi.EventHub) error {
	h.api = controlapi.NewServer(h.orch, h.log.WithName("controlapi"),
		controlapi.WithAutostartSwitch(h.store),
		controlapi.WithDebug(h.debug),
		controlapi.WithGatherer(h.metrics.Registry()),
		controlapi.WithEventHub(events),
		controlapi.WithHistory(h.history),
	)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("bind control API: %w", err)
	}
	h.apiLn = ln
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		if err := h.api.Serve(ln); err != nil {
			h.log.Error(err, "Control API stopped")
		}
	}()
	return nil
}

func (h *HeadUnit) registerProbes() {
	h.debug.RegisterProbe("orchestrator", func() any {
		ctx, cancel := context.WithTimeout(context.Background(), snapshotProbeTimeout)
		defer cancel()
		snap, err := h.orch.Snapshot(ctx)
		if err != nil {
			return err.Error()
		}
		return snap
	})
	h.debug.RegisterProbe("config", func() any { return h.store.Current() })
	h.debug.RegisterProbe("sessions.recent", func() any { return h.history.Recent() })
}

// onReload re-arms a watch dropped while autostart was disabled.
func (h *HeadUnit) onReload(old, cur *control.Config) {
	if old.Autostart.Disabled && !cur.Autostart.Disabled {
		h.log.Info("Autostart re-enabled, resuming device watch")
		h.orch.BeginWaitingForDevice()
	}
}

// Shutdown stops every session and source, closes the listeners and waits
// for background goroutines. Calling it on a non-started unit is a no-op.
func (h *HeadUnit) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.started || h.stopped {
		return nil
	}
	h.stopped = true
	return h.teardown(ctx)
}

func (h *HeadUnit) teardown(ctx context.Context) error {
	var errs []error
	h.orch.Close()
	if err := h.acceptor.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close acceptor: %w", err))
	}
	if h.api != nil && h.apiLn != nil {
		if err := h.api.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown control API: %w", err))
		}
	}
	if h.cancel != nil {
		h.cancel()
	}
	h.wg.Wait()
	h.log.Info("Head unit stopped")
	return errors.Join(errs...)
}

// Controller returns the session command surface.
func (h *HeadUnit) Controller() api.SessionController {
	return h.orch
}

// Config returns the configuration store.
func (h *HeadUnit) Config() *control.ConfigStore {
	return h.store
}

// Metrics returns the metrics collectors.
func (h *HeadUnit) Metrics() *control.Metrics {
	return h.metrics
}

// ListenAddr returns the bound projection listener address.
func (h *HeadUnit) ListenAddr() net.Addr {
	if h.acceptor == nil {
		return nil
	}
	return h.acceptor.Addr()
}

// ControlAddr returns the bound control API address, or nil when disabled.
func (h *HeadUnit) ControlAddr() net.Addr {
	if h.apiLn == nil {
		return nil
	}
	return h.apiLn.Addr()
}
