package projection

import (
	"bytes"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-headunit/api"
	"github.com/momentics/hioload-headunit/internal/transport"
)

type quitCounter struct{ n atomic.Int32 }

func (q *quitCounter) OnQuit() { q.n.Add(1) }

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newPipeEntity(t *testing.T, opts ...FactoryOption) (*Entity, net.Conn) {
	t.Helper()
	local, peer := net.Pipe()
	t.Cleanup(func() { _ = peer.Close() })
	ep, err := transport.NewTCPEndpoint(local)
	require.NoError(t, err)
	ent, err := NewFactory(testr.New(t), opts...).Create(ep)
	require.NoError(t, err)
	return ent.(*Entity), peer
}

func TestEntityDeliversToSink(t *testing.T) {
	sink := &lockedBuffer{}
	ent, peer := newPipeEntity(t, WithSinkFactory(func(string, api.Endpoint) io.Writer { return sink }))
	q := &quitCounter{}
	require.NoError(t, ent.Start(q))

	_, err := peer.Write([]byte("frame"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return sink.String() == "frame" }, time.Second, 5*time.Millisecond)

	require.NoError(t, ent.Stop())
	assert.Equal(t, int32(1), q.n.Load())
	assert.Equal(t, uint64(5), ent.Stats().BytesIn)
}

func TestEntityPauseDropsInbound(t *testing.T) {
	sink := &lockedBuffer{}
	ent, peer := newPipeEntity(t, WithSinkFactory(func(string, api.Endpoint) io.Writer { return sink }))
	require.NoError(t, ent.Start(&quitCounter{}))
	defer ent.Stop()

	require.NoError(t, ent.Pause())
	assert.True(t, ent.Paused())
	_, err := peer.Write([]byte("drop"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return ent.Stats().BytesDropped == 4 }, time.Second, 5*time.Millisecond)

	require.NoError(t, ent.Resume())
	_, err = peer.Write([]byte("keep"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return sink.String() == "keep" }, time.Second, 5*time.Millisecond)
}

func TestEntityQuitsOnceWhenPeerLeaves(t *testing.T) {
	ent, peer := newPipeEntity(t)
	q := &quitCounter{}
	require.NoError(t, ent.Start(q))

	require.NoError(t, peer.Close())
	select {
	case <-ent.Done():
	case <-time.After(time.Second):
		t.Fatal("pump did not exit")
	}
	require.Eventually(t, func() bool { return q.n.Load() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, ent.Stop())
	require.NoError(t, ent.Stop())
	assert.Equal(t, int32(1), q.n.Load())
}

func TestEntityLifecycleErrors(t *testing.T) {
	ent, _ := newPipeEntity(t)
	assert.ErrorIs(t, ent.Pause(), api.ErrSessionNotStarted)
	assert.ErrorIs(t, ent.Resume(), api.ErrSessionNotStarted)

	require.NoError(t, ent.Start(&quitCounter{}))
	assert.ErrorIs(t, ent.Start(&quitCounter{}), api.ErrSessionAlreadyStarted)

	require.NoError(t, ent.Stop())
	assert.ErrorIs(t, ent.Start(&quitCounter{}), api.ErrTransportClosed)
	assert.ErrorIs(t, ent.Pause(), api.ErrSessionNotStarted)
}

func TestEntityHandshakeFailureEndsSession(t *testing.T) {
	boom := errors.New("version mismatch")
	ent, _ := newPipeEntity(t, WithHandshake(func(api.Endpoint) error { return boom }))
	q := &quitCounter{}

	require.NoError(t, ent.Start(q))
	select {
	case <-ent.Done():
	case <-time.After(time.Second):
		t.Fatal("pump did not exit after handshake failure")
	}
	assert.Equal(t, int32(1), q.n.Load())
	err := ent.Err()
	require.Error(t, err)
	assert.True(t, api.IsNegotiation(err))
	assert.ErrorIs(t, err, boom)

	require.NoError(t, ent.Stop())
	assert.Equal(t, int32(1), q.n.Load())
}

func TestEntityStartDoesNotWaitForHandshake(t *testing.T) {
	entered := make(chan struct{})
	hs := func(ep api.Endpoint) error {
		close(entered)
		// Blocks until Stop closes the endpoint.
		_, err := ep.Read(make([]byte, 1))
		return err
	}
	ent, _ := newPipeEntity(t, WithHandshake(hs))
	q := &quitCounter{}

	require.NoError(t, ent.Start(q))
	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("handshake never ran")
	}
	require.NoError(t, ent.Pause())

	require.NoError(t, ent.Stop())
	assert.Equal(t, int32(1), q.n.Load())
	assert.Error(t, ent.Err())
}

func TestFactoryRejectsNilEndpoint(t *testing.T) {
	_, err := NewFactory(testr.New(t)).Create(nil)
	require.Error(t, err)
	assert.True(t, api.IsNegotiation(err))
}

func TestFactoryAssignsDistinctIDs(t *testing.T) {
	a, _ := newPipeEntity(t)
	b, _ := newPipeEntity(t)
	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
}
