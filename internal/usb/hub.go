// File: internal/usb/hub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Hub is a single-shot watcher for accessory-mode devices.
// Each Arm records the attached devices and polls sysfs until an accessory
// that is new or was already attached at arm time is seen. A scan failure or
// Cancel also ends the arm.

package usb

import (
	"context"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/jonboulle/clockwork"

	"github.com/momentics/hioload-headunit/api"
)

const DefaultPollInterval = 500 * time.Millisecond

// Hub implements api.DeviceWatcher.
type Hub struct {
	log      logr.Logger
	root     string
	interval time.Duration
	clock    clockwork.Clock
	switcher AccessorySwitcher
	opener   StreamOpener

	mu     sync.Mutex
	cancel context.CancelFunc // non-nil while armed
	gen    uint64
}

var _ api.DeviceWatcher = (*Hub)(nil)

// HubOption customizes a Hub.
type HubOption func(*Hub)

func WithPollInterval(d time.Duration) HubOption {
	return func(h *Hub) {
		if d > 0 {
			h.interval = d
		}
	}
}

func WithClock(c clockwork.Clock) HubOption {
	return func(h *Hub) { h.clock = c }
}

// WithSwitcher lets the hub switch newly attached phones into accessory mode.
func WithSwitcher(s AccessorySwitcher) HubOption {
	return func(h *Hub) { h.switcher = s }
}

func WithStreamOpener(o StreamOpener) HubOption {
	return func(h *Hub) { h.opener = o }
}

// NewHub creates a hub watching the sysfs devices directory at root.
func NewHub(root string, log logr.Logger, opts ...HubOption) *Hub {
	h := &Hub{
		log:      log,
		root:     root,
		interval: DefaultPollInterval,
		clock:    clockwork.NewRealClock(),
		switcher: UnsupportedSwitcher{},
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Arm starts a single-shot watch. Arming while armed resolves the new arm
// with ErrOperationInProgress and leaves the existing one untouched.
func (h *Hub) Arm(onFound api.DeviceFoundHandler, onError api.ErrorHandler) {
	h.mu.Lock()
	if h.cancel != nil {
		h.mu.Unlock()
		go onError(api.ErrOperationInProgress)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.gen++
	gen := h.gen
	h.mu.Unlock()

	// The baseline is taken before Arm returns so that anything attached
	// afterwards is reported as new. Accessories in the baseline are still
	// reported on the first poll.
	baseline, err := ScanDevices(h.root)
	if err != nil {
		if h.claim(gen) {
			go onError(err)
		}
		return
	}
	go h.watch(ctx, gen, baseline, onFound, onError)
}

// Cancel drops the outstanding arm. Safe when nothing is armed.
func (h *Hub) Cancel() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
	h.gen++
}

// claim ends the arm identified by gen; false when it was cancelled.
func (h *Hub) claim(gen uint64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.gen != gen || h.cancel == nil {
		return false
	}
	h.cancel()
	h.cancel = nil
	return true
}

func (h *Hub) watch(ctx context.Context, gen uint64, baseline []*Device, onFound api.DeviceFoundHandler, onError api.ErrorHandler) {
	known := make(map[string]struct{}, len(baseline))
	for _, d := range baseline {
		if d.IsAccessory() {
			continue
		}
		known[d.attachKey()] = struct{}{}
	}
	h.log.V(1).Info("Watching for accessory devices", "attached", len(baseline))

	ticker := h.clock.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
		}

		devices, err := ScanDevices(h.root)
		if err != nil {
			if h.claim(gen) {
				onError(err)
			}
			return
		}

		present := make(map[string]struct{}, len(devices))
		for _, d := range devices {
			key := d.attachKey()
			present[key] = struct{}{}
			if _, seen := known[key]; seen {
				continue
			}
			known[key] = struct{}{}

			switch {
			case d.IsAccessory():
				d.opener = h.opener
				if h.claim(gen) {
					h.log.Info("Accessory device attached", "device", d.String())
					onFound(d)
				}
				return
			case d.IsAndroidCandidate():
				h.log.Info("Phone attached, requesting accessory mode", "device", d.String())
				if err := h.switcher.SwitchToAccessory(ctx, d); err != nil {
					h.log.V(1).Info("Accessory mode switch failed", "device", d.Path, "error", err.Error())
				}
			}
		}
		for key := range known {
			if _, ok := present[key]; !ok {
				delete(known, key)
			}
		}
	}
}
