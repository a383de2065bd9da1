package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-headunit/internal/logging"
)

func TestFlagsOverrideConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "headunit.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen:\n  port: 6000\ncontrol_api:\n  addr: 127.0.0.1:7000\n"), 0o600))

	cmd, err := newRootCmd(logging.New("test"))
	require.NoError(t, err)
	require.NoError(t, cmd.ParseFlags([]string{"--config", path, "--port", "5277", "--disable-autostart", "-v", "debug"}))

	var flags rootFlags
	flags.configPath, _ = cmd.Flags().GetString("config")
	flags.port, _ = cmd.Flags().GetInt("port")
	flags.disableAutostart, _ = cmd.Flags().GetBool("disable-autostart")

	cfg, err := loadConfig(cmd, flags)
	require.NoError(t, err)
	assert.Equal(t, 5277, cfg.Listen.Port)
	assert.True(t, cfg.Autostart.Disabled)
	assert.Equal(t, "127.0.0.1:7000", cfg.ControlAPI.Addr)
}

func TestInvalidOverrideIsRejected(t *testing.T) {
	cmd, err := newRootCmd(logging.New("test"))
	require.NoError(t, err)
	require.NoError(t, cmd.ParseFlags([]string{"--port", "99999"}))

	_, err = loadConfig(cmd, rootFlags{port: 99999})
	assert.Error(t, err)
}
