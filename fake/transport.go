// File: fake/transport.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package fake

import (
	"fmt"
	"net"
	"sync"

	"github.com/momentics/hioload-headunit/api"
)

// Acceptor is a fake api.Acceptor. Tests deliver connections with Accept.
type Acceptor struct {
	mu       sync.Mutex
	handler  api.AcceptHandler
	arms     int
	cancels  int
	closed   bool
	armError error
}

var _ api.Acceptor = (*Acceptor)(nil)

func NewAcceptor() *Acceptor {
	return &Acceptor{}
}

// AcceptOne implements api.Acceptor.AcceptOne.
func (a *Acceptor) AcceptOne(onAccepted api.AcceptHandler) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch {
	case onAccepted == nil:
		return api.ErrInvalidArgument
	case a.closed:
		return api.ErrTransportClosed
	case a.handler != nil:
		return api.ErrOperationInProgress
	case a.armError != nil:
		return a.armError
	}
	a.handler = onAccepted
	a.arms++
	return nil
}

// SetArmError makes subsequent AcceptOne calls fail with err.
func (a *Acceptor) SetArmError(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.armError = err
}

// Cancel implements api.Acceptor.Cancel.
func (a *Acceptor) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancels++
	a.handler = nil
}

// Close implements api.Acceptor.Close.
func (a *Acceptor) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	a.handler = nil
	return nil
}

// Addr implements api.Acceptor.Addr.
func (a *Acceptor) Addr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4zero, Port: 5000}
}

// Accept resolves the armed accept with conn.
func (a *Acceptor) Accept(conn net.Conn) error {
	return a.complete(conn, nil)
}

// Fail resolves the armed accept with err.
func (a *Acceptor) Fail(err error) error {
	return a.complete(nil, err)
}

func (a *Acceptor) complete(conn net.Conn, err error) error {
	a.mu.Lock()
	h := a.handler
	a.handler = nil
	a.mu.Unlock()
	if h == nil {
		return fmt.Errorf("acceptor not armed")
	}
	h(conn, err)
	return nil
}

// Armed reports whether an accept is outstanding.
func (a *Acceptor) Armed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.handler != nil
}

func (a *Acceptor) Arms() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.arms
}

func (a *Acceptor) Cancels() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cancels
}
