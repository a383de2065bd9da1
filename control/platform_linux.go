//go:build linux

// control/platform_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux-specific debug probe integrations.

package control

import (
	"os"
	"runtime"
)

// RegisterPlatformProbes sets Linux-specific debug probes. sysfsRoot is
// read on every dump so a reloaded configuration is reflected.
func RegisterPlatformProbes(dp *DebugProbes, sysfsRoot func() string) {
	dp.RegisterProbe("platform.os", func() any { return runtime.GOOS })
	dp.RegisterProbe("platform.cpus", func() any { return runtime.NumCPU() })
	dp.RegisterProbe("platform.usb_sysfs", func() any {
		_, err := os.Stat(sysfsRoot())
		return err == nil
	})
}
