// Package session
// Author: momentics <momentics@gmail.com>
//
// Session journal: the currently active projection session and a bounded
// history of finished ones, built from orchestrator transition events.
package session
