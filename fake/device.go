// File: fake/device.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package fake

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/momentics/hioload-headunit/api"
)

// Device is a fake accessory-mode device.
type Device struct {
	Path    string
	OpenErr error

	mu     sync.Mutex
	opened int
	stream *Stream
}

var _ api.DeviceHandle = (*Device)(nil)

// NewDevice creates a device that opens to an in-memory stream.
func NewDevice(path string) *Device {
	return &Device{Path: path}
}

func (d *Device) ID() string        { return d.Path }
func (d *Device) VendorID() uint16  { return 0x18d1 }
func (d *Device) ProductID() uint16 { return 0x2d00 }

// Open returns OpenErr when set, otherwise a fresh Stream.
func (d *Device) Open() (io.ReadWriteCloser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opened++
	if d.OpenErr != nil {
		return nil, d.OpenErr
	}
	d.stream = &Stream{}
	return d.stream, nil
}

// Opened reports how many times Open was called.
func (d *Device) Opened() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opened
}

// Stream is an in-memory ReadWriteCloser.
type Stream struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool
}

func (s *Stream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, api.ErrTransportClosed
	}
	if s.buf.Len() == 0 {
		return 0, io.EOF
	}
	return s.buf.Read(p)
}

func (s *Stream) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, api.ErrTransportClosed
	}
	return s.buf.Write(p)
}

func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// DeviceWatcher is a fake api.DeviceWatcher.
type DeviceWatcher struct {
	mu      sync.Mutex
	armed   bool
	arms    int
	cancels int
	onFound api.DeviceFoundHandler
	onError api.ErrorHandler
}

var _ api.DeviceWatcher = (*DeviceWatcher)(nil)

func NewDeviceWatcher() *DeviceWatcher {
	return &DeviceWatcher{}
}

// Arm implements api.DeviceWatcher.Arm.
func (w *DeviceWatcher) Arm(onFound api.DeviceFoundHandler, onError api.ErrorHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.armed {
		go onError(api.ErrOperationInProgress)
		return
	}
	w.armed = true
	w.arms++
	w.onFound = onFound
	w.onError = onError
}

// Cancel implements api.DeviceWatcher.Cancel.
func (w *DeviceWatcher) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cancels++
	w.armed = false
	w.onFound, w.onError = nil, nil
}

// Fire resolves the outstanding arm with dev. It fails when nothing is armed.
func (w *DeviceWatcher) Fire(dev api.DeviceHandle) error {
	onFound, _, err := w.take()
	if err != nil {
		return err
	}
	onFound(dev)
	return nil
}

// FireError resolves the outstanding arm with err.
func (w *DeviceWatcher) FireError(err error) error {
	_, onError, terr := w.take()
	if terr != nil {
		return terr
	}
	onError(err)
	return nil
}

func (w *DeviceWatcher) take() (api.DeviceFoundHandler, api.ErrorHandler, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.armed {
		return nil, nil, fmt.Errorf("device watcher not armed")
	}
	onFound, onError := w.onFound, w.onError
	w.armed = false
	w.onFound, w.onError = nil, nil
	return onFound, onError, nil
}

// Armed reports whether a watch is outstanding.
func (w *DeviceWatcher) Armed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.armed
}

// Arms reports how many times the watcher was armed.
func (w *DeviceWatcher) Arms() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.arms
}

// Cancels reports how many times Cancel was called.
func (w *DeviceWatcher) Cancels() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cancels
}

// Enumerator is a fake api.AccessoryEnumerator.
type Enumerator struct {
	mu        sync.Mutex
	running   bool
	runs      int
	cancels   int
	cancelErr bool
	onResult  api.EnumerationHandler
	onError   api.ErrorHandler
}

var _ api.AccessoryEnumerator = (*Enumerator)(nil)

func NewEnumerator() *Enumerator {
	return &Enumerator{}
}

// Enumerate implements api.AccessoryEnumerator.Enumerate.
func (e *Enumerator) Enumerate(onResult api.EnumerationHandler, onError api.ErrorHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		go onError(api.ErrOperationInProgress)
		return
	}
	e.running = true
	e.runs++
	e.onResult = onResult
	e.onError = onError
}

// Cancel implements api.AccessoryEnumerator.Cancel. It panics when
// SetCancelPanics was enabled.
func (e *Enumerator) Cancel() {
	e.mu.Lock()
	e.cancels++
	e.running = false
	e.onResult, e.onError = nil, nil
	boom := e.cancelErr
	e.mu.Unlock()
	if boom {
		panic("fake enumerator cancel failure")
	}
}

// SetCancelPanics makes Cancel panic after recording the call.
func (e *Enumerator) SetCancelPanics(v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelErr = v
}

// Complete resolves the running enumeration with switched.
func (e *Enumerator) Complete(switched bool) error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return fmt.Errorf("enumerator not running")
	}
	fn := e.onResult
	e.running = false
	e.onResult, e.onError = nil, nil
	e.mu.Unlock()
	fn(switched)
	return nil
}

// Fail resolves the running enumeration with err.
func (e *Enumerator) Fail(err error) error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return fmt.Errorf("enumerator not running")
	}
	fn := e.onError
	e.running = false
	e.onResult, e.onError = nil, nil
	e.mu.Unlock()
	fn(err)
	return nil
}

func (e *Enumerator) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

func (e *Enumerator) Runs() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runs
}

func (e *Enumerator) Cancels() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cancels
}
