// File: api/transport.go
// Author: momentics <momentics@gmail.com>
//
// Defines the uniform transport endpoint handed to session entities and the
// single-shot acceptor contract used for network peers.

package api

import (
	"io"
	"net"
)

// TransportKind identifies the physical transport under an Endpoint.
type TransportKind string

const (
	TransportUSB TransportKind = "usb"
	TransportTCP TransportKind = "tcp"
)

// Endpoint abstracts a full-duplex byte stream bound to one peer,
// regardless of whether it came from a USB accessory or a TCP socket.
type Endpoint interface {
	io.ReadWriteCloser

	// Kind reports the transport the endpoint wraps.
	Kind() TransportKind

	// Remote describes the peer (device path or network address).
	Remote() string
}

// AcceptHandler receives the outcome of a single accept.
type AcceptHandler func(conn net.Conn, err error)

// Acceptor is a listening socket that delivers exactly one inbound
// connection per arm. It must be re-armed after every completion.
type Acceptor interface {
	// AcceptOne arms the acceptor. It returns ErrOperationInProgress when an
	// accept is already armed and ErrTransportClosed after Close.
	AcceptOne(onAccepted AcceptHandler) error

	// Cancel disarms a pending accept. Safe without an outstanding arm.
	Cancel()

	// Close releases the listening socket.
	Close() error

	// Addr returns the bound listening address.
	Addr() net.Addr
}
