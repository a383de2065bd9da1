// Package api
// Author: momentics
//
// Executor contract for serialized task dispatch.

package api

// Executor abstracts an ordered, single-consumer task queue. Tasks submitted
// through Dispatch never run concurrently with each other and run in the
// order they were accepted.
type Executor interface {
	// Dispatch enqueues task for execution. It never runs task inline.
	Dispatch(task func()) error

	// Pending returns the number of queued tasks not yet started.
	Pending() int

	// Close stops intake, drains already queued tasks and waits for them.
	Close()
}
