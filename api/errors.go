// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for the head unit.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the module.
var (
	ErrTransportClosed       = fmt.Errorf("transport is closed")
	ErrInvalidArgument       = fmt.Errorf("invalid argument")
	ErrNotSupported          = fmt.Errorf("operation not supported")
	ErrNotFound              = fmt.Errorf("resource not found")
	ErrOperationAborted      = fmt.Errorf("operation aborted")
	ErrOperationInProgress   = fmt.Errorf("operation already in progress")
	ErrSessionAlreadyStarted = fmt.Errorf("session already started")
	ErrSessionNotStarted     = fmt.Errorf("session not started")
	ErrNegotiationFailed     = fmt.Errorf("session negotiation failed")
)

// ErrorCode represents specific error conditions in the module.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeNotSupported
	ErrCodeNotFound
	ErrCodeOperationAborted
	ErrCodeOperationInProgress
	ErrCodeNegotiation
	ErrCodeInternal
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeOK:
		return "ok"
	case ErrCodeInvalidArgument:
		return "invalid_argument"
	case ErrCodeNotSupported:
		return "not_supported"
	case ErrCodeNotFound:
		return "not_found"
	case ErrCodeOperationAborted:
		return "operation_aborted"
	case ErrCodeOperationInProgress:
		return "operation_in_progress"
	case ErrCodeNegotiation:
		return "negotiation"
	default:
		return "internal"
	}
}

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if len(e.Context) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (context: %+v)", msg, e.Context)
}

// Unwrap exposes the cause to errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// NegotiationError marks err as a failure to bring up a projection session
// over a transport. Orchestration treats this kind as recoverable.
func NegotiationError(message string, err error) *Error {
	e := NewError(ErrCodeNegotiation, message)
	e.Err = err
	return e
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// CodeOf returns the ErrorCode carried by err, ErrCodeOK for nil and
// ErrCodeInternal for errors that are not *Error.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	switch {
	case errors.Is(err, ErrNegotiationFailed):
		return ErrCodeNegotiation
	case errors.Is(err, ErrOperationAborted):
		return ErrCodeOperationAborted
	case errors.Is(err, ErrOperationInProgress):
		return ErrCodeOperationInProgress
	case errors.Is(err, ErrNotSupported):
		return ErrCodeNotSupported
	}
	return ErrCodeInternal
}

// IsNegotiation reports whether err is a session negotiation failure.
func IsNegotiation(err error) bool {
	return CodeOf(err) == ErrCodeNegotiation
}
