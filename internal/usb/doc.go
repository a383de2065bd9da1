// Package usb
// Author: momentics <momentics@gmail.com>
//
// USB device discovery for the head unit. Devices are read from sysfs
// (/sys/bus/usb/devices); the hub watcher polls it for newly attached
// accessory-mode devices and the enumerator asks already attached phones to
// switch into accessory mode. The accessory control-transfer handshake and
// bulk streaming are delegated to AccessorySwitcher and StreamOpener
// implementations supplied by the USB backend.
package usb
