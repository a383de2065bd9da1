// File: internal/concurrency/strand.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Strand is a serialized execution context: an unbounded FIFO mailbox drained
// by exactly one goroutine. Tasks dispatched from any goroutine run one at a
// time, in dispatch order, so state touched only from strand tasks needs no
// further locking.

package concurrency

import (
	"sync"

	"github.com/eapache/queue"
	"github.com/go-logr/logr"

	"github.com/momentics/hioload-headunit/api"
	"github.com/momentics/hioload-headunit/internal/resiliency"
)

// TaskFunc is a unit of work to execute.
type TaskFunc func()

// Strand implements api.Executor with single-consumer semantics.
type Strand struct {
	log logr.Logger

	mu     sync.Mutex
	tasks  *queue.Queue // of TaskFunc, guarded by mu
	closed bool

	wakeCh chan struct{}
	doneCh chan struct{}
}

var _ api.Executor = (*Strand)(nil)

// NewStrand creates a strand and starts its consumer goroutine.
func NewStrand(log logr.Logger) *Strand {
	s := &Strand{
		log:    log,
		tasks:  queue.New(),
		wakeCh: make(chan struct{}, 1),
		doneCh: make(chan struct{}),
	}
	go s.run()
	return s
}

// Dispatch enqueues task. It never runs task inline, even when called from
// a task already executing on this strand.
func (s *Strand) Dispatch(task func()) error {
	if task == nil {
		return ErrNilTask
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrExecutorClosed
	}
	s.tasks.Add(TaskFunc(task))
	s.mu.Unlock()
	s.wake()
	return nil
}

// Pending returns the number of queued tasks not yet started.
func (s *Strand) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks.Length()
}

// Close stops intake, lets the consumer drain tasks already queued and waits
// for it to exit. Calling Close from inside a strand task deadlocks.
func (s *Strand) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wake()
	<-s.doneCh
}

// Done is closed once the consumer has exited.
func (s *Strand) Done() <-chan struct{} {
	return s.doneCh
}

func (s *Strand) wake() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

func (s *Strand) run() {
	defer close(s.doneCh)
	for {
		s.mu.Lock()
		if s.tasks.Length() == 0 {
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return
			}
			<-s.wakeCh
			continue
		}
		task := s.tasks.Remove().(TaskFunc)
		s.mu.Unlock()
		s.safeExecute(task)
	}
}

func (s *Strand) safeExecute(task TaskFunc) {
	defer func() {
		if r := recover(); r != nil {
			_ = resiliency.MakePanicError(r, s.log)
		}
	}()
	task()
}
