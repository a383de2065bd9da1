// File: api/control.go
// Package api defines the session control contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import "context"

// SessionController is the command surface the UI side drives.
// None of the commands report errors: they are queued and applied in order.
type SessionController interface {
	BeginWaitingForDevice()
	StopAll()
	PauseActiveSession()
	ResumeActiveSession()
	Snapshot(ctx context.Context) (Snapshot, error)
}

// AutostartPolicy is consulted on every USB device-found event.
type AutostartPolicy interface {
	AutostartDisabled() bool
}
