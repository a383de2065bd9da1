package concurrency

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrandPreservesDispatchOrder(t *testing.T) {
	s := NewStrand(testr.New(t))

	var got []int
	for i := 0; i < 500; i++ {
		i := i
		require.NoError(t, s.Dispatch(func() { got = append(got, i) }))
	}
	s.Close()

	require.Len(t, got, 500)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestStrandNeverRunsTasksConcurrently(t *testing.T) {
	s := NewStrand(testr.New(t))
	defer s.Close()

	var inFlight, maxInFlight atomic.Int32
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_ = s.Dispatch(func() {
					n := inFlight.Add(1)
					for {
						m := maxInFlight.Load()
						if n <= m || maxInFlight.CompareAndSwap(m, n) {
							break
						}
					}
					inFlight.Add(-1)
				})
			}
		}()
	}
	wg.Wait()

	done := make(chan struct{})
	require.NoError(t, s.Dispatch(func() { close(done) }))
	<-done
	assert.Equal(t, int32(1), maxInFlight.Load())
}

func TestStrandDispatchFromTaskIsQueuedNotInline(t *testing.T) {
	s := NewStrand(testr.New(t))

	var order []string
	require.NoError(t, s.Dispatch(func() {
		_ = s.Dispatch(func() { order = append(order, "inner") })
		order = append(order, "outer")
	}))
	time.Sleep(10 * time.Millisecond)
	s.Close()

	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestStrandSurvivesPanickingTask(t *testing.T) {
	s := NewStrand(testr.New(t))

	ran := false
	require.NoError(t, s.Dispatch(func() { panic("task failure") }))
	require.NoError(t, s.Dispatch(func() { ran = true }))
	s.Close()

	assert.True(t, ran)
}

func TestStrandCloseDrainsAndRejects(t *testing.T) {
	s := NewStrand(testr.New(t))

	var count atomic.Int32
	for i := 0; i < 10; i++ {
		require.NoError(t, s.Dispatch(func() {
			time.Sleep(time.Millisecond)
			count.Add(1)
		}))
	}
	s.Close()

	assert.Equal(t, int32(10), count.Load())
	assert.ErrorIs(t, s.Dispatch(func() {}), ErrExecutorClosed)
	assert.ErrorIs(t, s.Dispatch(nil), ErrNilTask)
	assert.Equal(t, 0, s.Pending())

	select {
	case <-s.Done():
	default:
		t.Fatal("strand consumer still running after Close")
	}
}
