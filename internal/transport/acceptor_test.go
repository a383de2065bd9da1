package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-headunit/api"
)

type acceptResult struct {
	conn net.Conn
	err  error
}

func newTestAcceptor(t *testing.T) *TCPAcceptor {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ln, err := Listen(ctx, "127.0.0.1:0", testr.New(t))
	require.NoError(t, err)
	a := NewTCPAcceptor(ln, testr.New(t))
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func armChan(t *testing.T, a *TCPAcceptor) chan acceptResult {
	t.Helper()
	ch := make(chan acceptResult, 1)
	require.NoError(t, a.AcceptOne(func(conn net.Conn, err error) {
		ch <- acceptResult{conn, err}
	}))
	return ch
}

func dial(t *testing.T, a *TCPAcceptor) net.Conn {
	t.Helper()
	c, err := net.DialTimeout("tcp", a.Addr().String(), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestAcceptOneDeliversSingleConnection(t *testing.T) {
	a := newTestAcceptor(t)
	ch := armChan(t, a)

	dial(t, a)

	select {
	case res := <-ch:
		require.NoError(t, res.err)
		require.NotNil(t, res.conn)
		_ = res.conn.Close()
	case <-time.After(2 * time.Second):
		t.Fatal("accept did not complete")
	}
}

func TestAcceptOneRejectsDoubleArm(t *testing.T) {
	a := newTestAcceptor(t)
	_ = armChan(t, a)

	err := a.AcceptOne(func(net.Conn, error) {})
	assert.ErrorIs(t, err, api.ErrOperationInProgress)
}

func TestAcceptorRearmAfterCompletion(t *testing.T) {
	a := newTestAcceptor(t)

	for i := 0; i < 3; i++ {
		ch := armChan(t, a)
		dial(t, a)
		res := <-ch
		require.NoError(t, res.err)
		_ = res.conn.Close()
	}
}

func TestCancelledArmIsAdoptedByNextArm(t *testing.T) {
	a := newTestAcceptor(t)

	first := armChan(t, a)
	a.Cancel()
	a.Cancel()
	second := armChan(t, a)

	dial(t, a)

	select {
	case res := <-second:
		require.NoError(t, res.err)
		_ = res.conn.Close()
	case <-time.After(2 * time.Second):
		t.Fatal("re-armed accept did not complete")
	}
	select {
	case <-first:
		t.Fatal("cancelled arm received a completion")
	default:
	}
}

func TestAcceptorClose(t *testing.T) {
	a := newTestAcceptor(t)
	ch := armChan(t, a)

	require.NoError(t, a.Close())
	require.NoError(t, a.Close())

	assert.ErrorIs(t, a.AcceptOne(func(net.Conn, error) {}), api.ErrTransportClosed)
	select {
	case <-ch:
		t.Fatal("closed acceptor delivered a completion")
	case <-time.After(50 * time.Millisecond):
	}
}
