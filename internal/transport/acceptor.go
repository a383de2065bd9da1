// File: internal/transport/acceptor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// TCPAcceptor turns a net.Listener into a single-shot, re-armable accept
// source. At most one Accept call is outstanding; a cancelled arm leaves that
// call running and the next arm adopts it, so re-arming never duplicates
// completions.

package transport

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/momentics/hioload-headunit/api"
)

const maxAcceptBackoff = time.Second

// TCPAcceptor implements api.Acceptor over a net.Listener.
type TCPAcceptor struct {
	log logr.Logger
	ln  net.Listener

	mu        sync.Mutex
	handler   api.AcceptHandler // armed consumer, nil when disarmed
	accepting bool              // an Accept call is outstanding
	closed    bool
	tempDelay time.Duration
}

var _ api.Acceptor = (*TCPAcceptor)(nil)

// NewTCPAcceptor wraps an already bound listener.
func NewTCPAcceptor(ln net.Listener, log logr.Logger) *TCPAcceptor {
	return &TCPAcceptor{ln: ln, log: log}
}

// AcceptOne arms the acceptor for exactly one connection.
func (a *TCPAcceptor) AcceptOne(onAccepted api.AcceptHandler) error {
	if onAccepted == nil {
		return api.ErrInvalidArgument
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return api.ErrTransportClosed
	}
	if a.handler != nil {
		return api.ErrOperationInProgress
	}
	a.handler = onAccepted
	if !a.accepting {
		a.accepting = true
		go a.acceptOnce()
	}
	return nil
}

// Cancel disarms the pending accept; a connection that still arrives for
// it is closed.
func (a *TCPAcceptor) Cancel() {
	a.mu.Lock()
	a.handler = nil
	a.mu.Unlock()
}

// Close releases the listening socket. Idempotent.
func (a *TCPAcceptor) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.handler = nil
	a.mu.Unlock()
	return a.ln.Close()
}

// Addr returns the bound address.
func (a *TCPAcceptor) Addr() net.Addr {
	return a.ln.Addr()
}

func (a *TCPAcceptor) acceptOnce() {
	conn, err := a.ln.Accept()

	if err != nil && isTemporary(err) {
		a.mu.Lock()
		if a.tempDelay == 0 {
			a.tempDelay = 5 * time.Millisecond
		} else if a.tempDelay *= 2; a.tempDelay > maxAcceptBackoff {
			a.tempDelay = maxAcceptBackoff
		}
		delay := a.tempDelay
		a.mu.Unlock()
		a.log.Error(err, "Temporary accept failure", "retryIn", delay)
		time.Sleep(delay)
	} else if err == nil {
		a.mu.Lock()
		a.tempDelay = 0
		a.mu.Unlock()
	}

	a.mu.Lock()
	a.accepting = false
	handler := a.handler
	a.handler = nil
	closed := a.closed
	a.mu.Unlock()

	if err != nil && errors.Is(err, net.ErrClosed) {
		err = fmt.Errorf("%w: %v", api.ErrTransportClosed, err)
	}
	if handler == nil || closed {
		if conn != nil {
			a.log.V(1).Info("Closing connection accepted without a consumer", "remote", conn.RemoteAddr().String())
			_ = conn.Close()
		}
		return
	}
	handler(conn, err)
}

func isTemporary(err error) bool {
	if errors.Is(err, net.ErrClosed) {
		return false
	}
	var ne interface{ Temporary() bool }
	return errors.As(err, &ne) && ne.Temporary()
}
