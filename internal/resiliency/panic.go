// File: internal/resiliency/panic.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package resiliency

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-logr/logr"
)

// MakePanicError logs a panic value with its call stack and returns it as a
// permanent error. Returns nil for a nil panic value.
func MakePanicError(panicVal any, log logr.Logger) error {
	if panicVal == nil {
		return nil
	}

	panicErr, isError := panicVal.(error)
	if !isError {
		panicErr = fmt.Errorf("%v", panicVal)
	}
	var permanent *backoff.PermanentError
	if !errors.As(panicErr, &permanent) {
		panicErr = backoff.Permanent(panicErr)
	}

	log.Error(panicErr, "Recovered from panic", "stack", string(debug.Stack()))

	return panicErr
}
