package transport

import (
	"errors"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-headunit/api"
)

type stubDevice struct {
	stream io.ReadWriteCloser
	err    error
}

func (d *stubDevice) ID() string        { return "1-1.2" }
func (d *stubDevice) VendorID() uint16  { return 0x18d1 }
func (d *stubDevice) ProductID() uint16 { return 0x2d01 }
func (d *stubDevice) Open() (io.ReadWriteCloser, error) {
	return d.stream, d.err
}

func TestTCPEndpointRoundTrip(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()

	ep, err := NewTCPEndpoint(local)
	require.NoError(t, err)
	assert.Equal(t, api.TransportTCP, ep.Kind())

	go func() { _, _ = remote.Write([]byte("ping")) }()
	buf := make([]byte, 4)
	_, err = io.ReadFull(ep, buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf))

	require.NoError(t, ep.Close())
	require.NoError(t, ep.Close())
}

func TestTCPEndpointNilConn(t *testing.T) {
	_, err := NewTCPEndpoint(nil)
	assert.True(t, api.IsNegotiation(err))
}

func TestUSBEndpointOpenFailureIsNegotiation(t *testing.T) {
	_, err := NewUSBEndpoint(&stubDevice{err: errors.New("claim interface: busy")})

	require.Error(t, err)
	assert.True(t, api.IsNegotiation(err))
	assert.Contains(t, err.Error(), "1-1.2")
}

func TestUSBEndpointWrapsStream(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()

	ep, err := NewUSBEndpoint(&stubDevice{stream: local})
	require.NoError(t, err)

	assert.Equal(t, api.TransportUSB, ep.Kind())
	assert.Equal(t, "1-1.2", ep.Remote())
	require.NoError(t, ep.Close())
}
