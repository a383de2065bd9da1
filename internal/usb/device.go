// File: internal/usb/device.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package usb

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/momentics/hioload-headunit/api"
)

// Accessory-mode identifiers announced by a phone after switching.
const (
	AccessoryVendorID   uint16 = 0x18d1
	AccessoryProductMin uint16 = 0x2d00
	AccessoryProductMax uint16 = 0x2d05
	DefaultSysfsRoot           = "/sys/bus/usb/devices"
)

// androidVendors are vendors whose devices are worth an accessory-mode switch.
var androidVendors = map[uint16]string{
	0x18d1: "Google",
	0x04e8: "Samsung",
	0x0bb4: "HTC",
	0x22b8: "Motorola",
	0x1004: "LG",
	0x0fce: "Sony",
	0x2717: "Xiaomi",
	0x2a70: "OnePlus",
	0x12d1: "Huawei",
	0x05c6: "Qualcomm",
}

// StreamOpener claims the accessory interface of dev and returns its bulk stream.
type StreamOpener func(dev *Device) (io.ReadWriteCloser, error)

// Device is one USB device as described by sysfs.
type Device struct {
	Path         string // sysfs name, e.g. "1-1.2"
	Vendor       uint16
	Product      uint16
	Bus          int
	Address      int
	Manufacturer string
	ProductName  string
	Serial       string

	opener StreamOpener
}

var _ api.DeviceHandle = (*Device)(nil)

func (d *Device) ID() string        { return d.Path }
func (d *Device) VendorID() uint16  { return d.Vendor }
func (d *Device) ProductID() uint16 { return d.Product }

// Open claims the device through the configured StreamOpener.
func (d *Device) Open() (io.ReadWriteCloser, error) {
	if d.opener == nil {
		return nil, fmt.Errorf("open %s: no bulk stream backend: %w", d.Path, api.ErrNotSupported)
	}
	return d.opener(d)
}

// IsAccessory reports whether the device already runs in accessory mode.
func (d *Device) IsAccessory() bool {
	return d.Vendor == AccessoryVendorID && d.Product >= AccessoryProductMin && d.Product <= AccessoryProductMax
}

// IsAndroidCandidate reports whether the device may be switched into accessory mode.
func (d *Device) IsAndroidCandidate() bool {
	if d.IsAccessory() {
		return false
	}
	_, ok := androidVendors[d.Vendor]
	return ok
}

// attachKey identifies one attachment. A re-enumeration on the same port
// gets a new device number and, after an accessory switch, new IDs.
func (d *Device) attachKey() string {
	return fmt.Sprintf("%s/%d.%d/%04x:%04x", d.Path, d.Bus, d.Address, d.Vendor, d.Product)
}

func (d *Device) String() string {
	return fmt.Sprintf("%s [%04x:%04x] %s %s", d.Path, d.Vendor, d.Product, d.Manufacturer, d.ProductName)
}

// ScanDevices lists devices under a sysfs root. Interface nodes ("1-1:1.0")
// and root hubs ("usb1") are skipped, as are entries without descriptors.
func ScanDevices(root string) ([]*Device, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	devices := make([]*Device, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if strings.Contains(name, ":") || strings.HasPrefix(name, "usb") {
			continue
		}
		dev, err := readDevice(filepath.Join(root, name))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		dev.Path = name
		devices = append(devices, dev)
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].Path < devices[j].Path })
	return devices, nil
}

func readDevice(dir string) (*Device, error) {
	vid, err := readHex(filepath.Join(dir, "idVendor"))
	if err != nil {
		return nil, err
	}
	pid, err := readHex(filepath.Join(dir, "idProduct"))
	if err != nil {
		return nil, err
	}
	return &Device{
		Vendor:       vid,
		Product:      pid,
		Bus:          readInt(filepath.Join(dir, "busnum")),
		Address:      readInt(filepath.Join(dir, "devnum")),
		Manufacturer: readString(filepath.Join(dir, "manufacturer")),
		ProductName:  readString(filepath.Join(dir, "product")),
		Serial:       readString(filepath.Join(dir, "serial")),
	}, nil
}

func readHex(path string) (uint16, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(raw)), 16, 16)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	return uint16(v), nil
}

func readInt(path string) int {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	v, _ := strconv.Atoi(strings.TrimSpace(string(raw)))
	return v
}

func readString(path string) string {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}
