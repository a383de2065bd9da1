// File: internal/transport/endpoint.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Uniform api.Endpoint wrappers over accepted sockets and USB accessory
// devices. Close is idempotent on both.

package transport

import (
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/momentics/hioload-headunit/api"
)

// TCPEndpoint wraps an accepted network connection.
type TCPEndpoint struct {
	conn      net.Conn
	closeOnce sync.Once
	closeErr  error
}

var _ api.Endpoint = (*TCPEndpoint)(nil)

// NewTCPEndpoint wraps conn. TCP_NODELAY is enabled when conn is a TCP socket.
// On error conn is left open and still belongs to the caller.
func NewTCPEndpoint(conn net.Conn) (*TCPEndpoint, error) {
	if conn == nil {
		return nil, api.NegotiationError("tcp endpoint", api.ErrInvalidArgument)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		if err := tc.SetNoDelay(true); err != nil {
			return nil, api.NegotiationError("tcp endpoint", err)
		}
	}
	return &TCPEndpoint{conn: conn}, nil
}

func (e *TCPEndpoint) Read(buf []byte) (int, error) {
	return e.conn.Read(buf)
}

func (e *TCPEndpoint) Write(buf []byte) (int, error) {
	return e.conn.Write(buf)
}

func (e *TCPEndpoint) Close() error {
	e.closeOnce.Do(func() {
		e.closeErr = e.conn.Close()
	})
	return e.closeErr
}

func (e *TCPEndpoint) Kind() api.TransportKind {
	return api.TransportTCP
}

func (e *TCPEndpoint) Remote() string {
	if addr := e.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

// USBEndpoint wraps the bulk stream of an accessory-mode device.
type USBEndpoint struct {
	dev       api.DeviceHandle
	stream    io.ReadWriteCloser
	closeOnce sync.Once
	closeErr  error
}

var _ api.Endpoint = (*USBEndpoint)(nil)

// NewUSBEndpoint opens dev. A failure to open is a negotiation failure.
func NewUSBEndpoint(dev api.DeviceHandle) (*USBEndpoint, error) {
	if dev == nil {
		return nil, api.NegotiationError("usb endpoint", api.ErrInvalidArgument)
	}
	stream, err := dev.Open()
	if err != nil {
		return nil, api.NegotiationError(fmt.Sprintf("usb endpoint %s", dev.ID()), err).
			WithContext("vid", fmt.Sprintf("%04x", dev.VendorID())).
			WithContext("pid", fmt.Sprintf("%04x", dev.ProductID()))
	}
	return &USBEndpoint{dev: dev, stream: stream}, nil
}

func (e *USBEndpoint) Read(buf []byte) (int, error) {
	return e.stream.Read(buf)
}

func (e *USBEndpoint) Write(buf []byte) (int, error) {
	return e.stream.Write(buf)
}

func (e *USBEndpoint) Close() error {
	e.closeOnce.Do(func() {
		e.closeErr = e.stream.Close()
	})
	return e.closeErr
}

func (e *USBEndpoint) Kind() api.TransportKind {
	return api.TransportUSB
}

func (e *USBEndpoint) Remote() string {
	return e.dev.ID()
}
