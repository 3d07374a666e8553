package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrValidation marks input rejected locally before any remote call.
	ErrValidation = errors.New("validation failed")
	// ErrRequest marks a network or remote failure.
	ErrRequest = errors.New("remote request failed")
	// ErrInvalidTransition marks an action that is not legal from the current state.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrBusy is returned when a clock action is already in flight.
	ErrBusy = errors.New("another clock action is in progress")
	// ErrNotAuthenticated is returned for actions that need a signed-in worker.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrSessionActive is returned by the store when the worker already has an open session.
	ErrSessionActive = errors.New("session already active")
	// ErrNoActiveSession is returned when a clock-out finds nothing to close.
	ErrNoActiveSession = errors.New("no active session")
	// ErrTaskNotFound is returned when a clock-in references an unknown task.
	ErrTaskNotFound = errors.New("task not found")
)

// ValidationError describes a missing or malformed field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// RequestError wraps a failed remote operation.
type RequestError struct {
	Op     string
	Status int
	Code   string
	Err    error
}

func (e *RequestError) Error() string {
	msg := e.Op + ": "
	if e.Status != 0 {
		msg += fmt.Sprintf("status %d", e.Status)
		if e.Code != "" {
			msg += " (" + e.Code + ")"
		}
		if e.Err != nil {
			msg += ": "
		}
	}
	if e.Err != nil {
		msg += e.Err.Error()
	}
	return msg
}

func (e *RequestError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrRequest}
	}
	return []error{ErrRequest, e.Err}
}

// Unauthorized reports whether the remote rejected the credentials.
func (e *RequestError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// TransitionError records which action was attempted from which state.
type TransitionError struct {
	Action string
	From   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Action, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }
