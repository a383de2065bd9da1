// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Concurrency primitives for the head unit. The Strand serializes every
// orchestrator state change onto one goroutine fed by an unbounded FIFO.
package concurrency
