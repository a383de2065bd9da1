// File: internal/resiliency/isolate.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Per-step isolation for best-effort teardown sequences. Each step reports
// its own result; a failing or panicking step never prevents its siblings
// from running.

package resiliency

import (
	"errors"

	"github.com/go-logr/logr"
)

// Step is one named best-effort call.
type Step struct {
	Name string
	Fn   func() error
}

// StepError records the failure of a named step.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return e.Step + ": " + e.Err.Error()
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Isolate runs fn, converting a panic into an error. A failure is logged
// under step and returned wrapped in *StepError; success returns nil.
func Isolate(log logr.Logger, step string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &StepError{Step: step, Err: MakePanicError(r, log)}
		}
	}()

	if fnErr := fn(); fnErr != nil {
		log.Error(fnErr, "Best-effort step failed", "step", step)
		return &StepError{Step: step, Err: fnErr}
	}
	return nil
}

// RunSteps runs every step in order through Isolate and joins the failures.
// All steps run regardless of earlier failures.
func RunSteps(log logr.Logger, steps ...Step) error {
	var errs []error
	for _, s := range steps {
		if err := Isolate(log, s.Name, s.Fn); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FailedSteps lists the step names recorded in an error returned by
// Isolate or RunSteps.
func FailedSteps(err error) []string {
	if err == nil {
		return nil
	}
	var names []string
	var walk func(error)
	walk = func(e error) {
		if joined, ok := e.(interface{ Unwrap() []error }); ok {
			for _, inner := range joined.Unwrap() {
				walk(inner)
			}
			return
		}
		var se *StepError
		if errors.As(e, &se) {
			names = append(names, se.Step)
		}
	}
	walk(err)
	return names
}
