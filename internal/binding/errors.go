package binding

import (
	"errors"
	"fmt"
)

var (
	// ErrTypeMismatch is returned when a renderer handle is not the kind a Playable specialization draws into
	ErrTypeMismatch = errors.New("renderer type mismatch")
	// ErrIllegalState is returned for operations on torn down objects or beyond the configured binding limits
	ErrIllegalState = errors.New("illegal state")
)

// TypeMismatchError describes a rejected renderer
type TypeMismatchError struct {
	Want string
	Got  string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("renderer type mismatch: want %s, got %s", e.Want, e.Got)
}

func (e *TypeMismatchError) Unwrap() error {
	return ErrTypeMismatch
}

// StateError describes an operation refused because of the current state
type StateError struct {
	Op     string
	Reason string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: illegal state: %s", e.Op, e.Reason)
}

func (e *StateError) Unwrap() error {
	return ErrIllegalState
}

func illegalState(op, format string, args ...any) error {
	return &StateError{Op: op, Reason: fmt.Sprintf(format, args...)}
}
