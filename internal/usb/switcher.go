// File: internal/usb/switcher.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package usb

import (
	"context"
	"fmt"

	"github.com/momentics/hioload-headunit/api"
)

// AccessorySwitcher performs the accessory-mode handshake on a device. On
// success the device detaches and re-attaches with accessory identifiers.
type AccessorySwitcher interface {
	SwitchToAccessory(ctx context.Context, dev *Device) error
}

// UnsupportedSwitcher is used when no USB control-transfer backend is present.
type UnsupportedSwitcher struct{}

func (UnsupportedSwitcher) SwitchToAccessory(_ context.Context, dev *Device) error {
	return fmt.Errorf("switch %s to accessory mode: %w", dev.Path, api.ErrNotSupported)
}
