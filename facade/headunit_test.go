package facade

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-headunit/api"
	"github.com/momentics/hioload-headunit/control"
)

func testConfig(t *testing.T) *control.Config {
	cfg := control.DefaultConfig()
	cfg.Listen.Host = "127.0.0.1"
	cfg.Listen.Port = 0
	cfg.Listen.BindTimeout = 5 * time.Second
	cfg.USB.SysfsRoot = t.TempDir()
	cfg.USB.PollInterval = 20 * time.Millisecond
	cfg.ControlAPI.Addr = "127.0.0.1:0"
	return cfg
}

func snapshot(t *testing.T, h *HeadUnit) api.Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s, err := h.Controller().Snapshot(ctx)
	require.NoError(t, err)
	return s
}

func TestHeadUnitRunsTCPSession(t *testing.T) {
	h, err := New(testConfig(t), logr.Discard())
	require.NoError(t, err)
	require.NoError(t, h.Start(context.Background()))
	require.NoError(t, h.Start(context.Background()))
	defer h.Shutdown(context.Background())

	require.Equal(t, api.StateWatching, snapshot(t, h).State)

	conn, err := net.Dial("tcp", h.ListenAddr().String())
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return snapshot(t, h).State == api.StateActive
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, api.TransportTCP, snapshot(t, h).Transport)

	resp, err := http.Get("http://" + h.ControlAddr().String() + "/session")
	require.NoError(t, err)
	var got api.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	resp.Body.Close()
	assert.Equal(t, api.StateActive, got.State)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		s := snapshot(t, h)
		return s.State == api.StateWatching && s.AcceptorArmed && s.HubArmed
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHeadUnitAutostartReenableRearmsWatch(t *testing.T) {
	cfg := testConfig(t)
	cfg.ControlAPI.Enabled = false
	h, err := New(cfg, logr.Discard())
	require.NoError(t, err)
	require.NoError(t, h.Start(context.Background()))
	defer h.Shutdown(context.Background())

	assert.Nil(t, h.ControlAddr())
	h.Config().SetAutostartDisabled(true)
	h.Config().SetAutostartDisabled(false)
	assert.Equal(t, api.StateWatching, snapshot(t, h).State)
}

func TestHeadUnitShutdownIsIdempotent(t *testing.T) {
	h, err := New(testConfig(t), logr.Discard())
	require.NoError(t, err)
	require.NoError(t, h.Shutdown(context.Background()))

	require.NoError(t, h.Start(context.Background()))
	require.NoError(t, h.Shutdown(context.Background()))
	require.NoError(t, h.Shutdown(context.Background()))

	_, err = net.DialTimeout("tcp", h.ListenAddr().String(), 200*time.Millisecond)
	assert.Error(t, err)
	assert.ErrorIs(t, h.Start(context.Background()), api.ErrTransportClosed)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := control.DefaultConfig()
	cfg.USB.PollInterval = 0
	_, err := New(cfg, logr.Discard())
	assert.Error(t, err)
}
