// File: api/device.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// USB device handle, hub watch and accessory enumerator contracts.

package api

import "io"

// DeviceHandle identifies one connected USB device that is already in
// accessory mode and ready to carry a projection session.
type DeviceHandle interface {
	// ID is a stable identifier for the attachment (bus path).
	ID() string

	// VendorID and ProductID are the USB descriptor identifiers.
	VendorID() uint16
	ProductID() uint16

	// Open claims the accessory interface and returns its bulk stream.
	Open() (io.ReadWriteCloser, error)
}

// DeviceFoundHandler receives the device that resolved a hub watch.
type DeviceFoundHandler func(dev DeviceHandle)

// ErrorHandler receives the failure that resolved a single-shot operation.
type ErrorHandler func(err error)

// DeviceWatcher waits for a newly attached accessory-mode device.
// Every Arm resolves at most once, through exactly one of its callbacks,
// and must be re-armed by the caller afterwards.
type DeviceWatcher interface {
	Arm(onFound DeviceFoundHandler, onError ErrorHandler)

	// Cancel drops the outstanding arm without invoking its callbacks.
	// It is safe to call when nothing is armed.
	Cancel()
}

// EnumerationHandler receives the enumerator result: whether any connected
// device was asked to switch into accessory mode.
type EnumerationHandler func(switched bool)

// AccessoryEnumerator walks the already connected devices and asks every
// capable one to switch into accessory mode. Single-shot.
type AccessoryEnumerator interface {
	Enumerate(onResult EnumerationHandler, onError ErrorHandler)

	// Cancel is idempotent.
	Cancel()
}
