package control

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/go-logr/logr/testr"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-headunit/api"
)

func TestParseConfigAppliesDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte("autostart:\n  disabled: true\nusb:\n  poll_interval: 2s\n"))
	require.NoError(t, err)

	assert.True(t, cfg.Autostart.Disabled)
	assert.Equal(t, 2*time.Second, cfg.USB.PollInterval)
	assert.Equal(t, "/sys/bus/usb/devices", cfg.USB.SysfsRoot)
	assert.Equal(t, 5000, cfg.Listen.Port)
	assert.Equal(t, ":5000", cfg.Listen.Addr())
	assert.True(t, cfg.ControlAPI.Enabled)
}

func TestParseConfigRejectsInvalid(t *testing.T) {
	for name, doc := range map[string]string{
		"port":     "listen:\n  port: 70000\n",
		"poll":     "usb:\n  poll_interval: 0s\n",
		"control":  "control_api:\n  enabled: true\n  addr: \"\"\n",
		"garbage":  "listen: [",
		"sysfs":    "usb:\n  sysfs_root: \"\"\n",
		"duration": "listen:\n  bind_timeout: soon\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseConfig([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestConfigStoreAutostartToggle(t *testing.T) {
	cs := NewConfigStore(nil)
	assert.False(t, cs.AutostartDisabled())

	var calls []bool
	cs.OnReload(func(old, cur *Config) {
		calls = append(calls, cur.Autostart.Disabled)
	})

	cs.SetAutostartDisabled(true)
	cs.SetAutostartDisabled(true)
	cs.SetAutostartDisabled(false)

	assert.Equal(t, []bool{true, false}, calls)
	assert.False(t, cs.AutostartDisabled())
}

func TestConfigStoreCurrentIsACopy(t *testing.T) {
	cs := NewConfigStore(nil)
	cur := cs.Current()
	cur.Listen.Port = 1
	assert.Equal(t, 5000, cs.Current().Listen.Port)
}

func TestFileWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "headunit.yaml")
	require.NoError(t, os.WriteFile(path, []byte("autostart:\n  disabled: false\n"), 0o600))

	cs := NewConfigStore(nil)
	w := NewFileWatcher(path, cs, testr.New(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("autostart:\n  disabled: true\n"), 0o600)
		return cs.AutostartDisabled()
	}, 5*time.Second, 50*time.Millisecond)
}

func TestFileWatcherSkipsInvalidRevision(t *testing.T) {
	path := filepath.Join(t.TempDir(), "headunit.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen:\n  port: -1\n"), 0o600))

	cs := NewConfigStore(nil)
	w := NewFileWatcher(path, cs, testr.New(t))
	assert.False(t, w.Reload())
	assert.Equal(t, 5000, cs.Current().Listen.Port)

	require.NoError(t, os.WriteFile(path, []byte("listen:\n  port: 5277\n"), 0o600))
	assert.True(t, w.Reload())
	assert.Equal(t, 5277, cs.Current().Listen.Port)
}

func TestMetricsFollowEvents(t *testing.T) {
	m := NewMetrics()

	m.OnSessionEvent(api.SessionEvent{Type: api.EventSessionStarted, Transport: api.TransportUSB, State: api.StateActive})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsStarted.WithLabelValues("usb")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.State.WithLabelValues("active")))

	m.OnSessionEvent(api.SessionEvent{Type: api.EventPaused, State: api.StateActive})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionPaused))

	m.OnSessionEvent(api.SessionEvent{Type: api.EventCleanupFailed, Step: "stop-entity", State: api.StateActive})
	m.OnSessionEvent(api.SessionEvent{Type: api.EventSessionEnded, Transport: api.TransportUSB, State: api.StateWatching})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CleanupFailures.WithLabelValues("stop-entity")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsEnded.WithLabelValues("usb")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SessionActive))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SessionPaused))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.State.WithLabelValues("active")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.State.WithLabelValues("watching")))

	m.OnSessionEvent(api.SessionEvent{Type: api.EventSessionFailed, Transport: api.TransportTCP, Reason: "negotiation", State: api.StateWatching})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionFailures.WithLabelValues("tcp", "negotiation")))

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestSysfsProbeUsesConfiguredRoot(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("usb sysfs probe is linux only")
	}
	root := t.TempDir()
	dp := NewDebugProbes(func() string { return root })
	assert.Equal(t, true, dp.DumpState()["platform.usb_sysfs"])

	root = filepath.Join(root, "missing")
	assert.Equal(t, false, dp.DumpState()["platform.usb_sysfs"])
}

func TestDebugProbesSurvivePanics(t *testing.T) {
	dp := NewDebugProbes(nil)
	dp.RegisterProbe("session", func() any { return "active" })
	dp.RegisterProbe("broken", func() any { panic("nil map") })

	state := dp.DumpState()
	assert.Equal(t, "active", state["session"])
	assert.Contains(t, state["broken"], "probe panic")
	assert.Contains(t, state, "runtime.goroutines")
	assert.Contains(t, state, "platform.cpus")
}
