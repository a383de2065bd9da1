// File: internal/usb/enumerator.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package usb

import (
	"context"
	"sync"

	"github.com/go-logr/logr"

	"github.com/momentics/hioload-headunit/api"
)

// Enumerator implements api.AccessoryEnumerator over a sysfs snapshot.
type Enumerator struct {
	log      logr.Logger
	root     string
	switcher AccessorySwitcher

	mu     sync.Mutex
	cancel context.CancelFunc
}

var _ api.AccessoryEnumerator = (*Enumerator)(nil)

func NewEnumerator(root string, switcher AccessorySwitcher, log logr.Logger) *Enumerator {
	if switcher == nil {
		switcher = UnsupportedSwitcher{}
	}
	return &Enumerator{log: log, root: root, switcher: switcher}
}

// Enumerate scans attached devices once and requests accessory mode from
// every phone found. onResult receives true when at least one switch was
// accepted.
func (e *Enumerator) Enumerate(onResult api.EnumerationHandler, onError api.ErrorHandler) {
	e.mu.Lock()
	if e.cancel != nil {
		e.mu.Unlock()
		go onError(api.ErrOperationInProgress)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.mu.Unlock()

	go func() {
		devices, err := ScanDevices(e.root)
		if err != nil {
			if e.finish(ctx) {
				onError(err)
			}
			return
		}

		switched := false
		for _, d := range devices {
			if ctx.Err() != nil {
				return
			}
			if !d.IsAndroidCandidate() {
				continue
			}
			if err := e.switcher.SwitchToAccessory(ctx, d); err != nil {
				e.log.V(1).Info("Accessory mode switch failed", "device", d.Path, "error", err.Error())
				continue
			}
			e.log.Info("Requested accessory mode", "device", d.String())
			switched = true
		}

		if e.finish(ctx) {
			onResult(switched)
		}
	}()
}

// Cancel aborts a running enumeration without invoking its callbacks.
func (e *Enumerator) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

func (e *Enumerator) finish(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ctx.Err() != nil {
		return false
	}
	e.cancel()
	e.cancel = nil
	return true
}
