// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations for testing and development.
// Provides predictable, controllable behavior for all collaborator contracts
// the orchestrator consumes. Completions are delivered synchronously from the
// test goroutine through Fire* helpers.
package fake
