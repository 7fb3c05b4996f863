package medipix

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState is returned when an operation is not allowed in the
	// current shutter state.
	ErrInvalidState = errors.New("invalid state")
	// ErrInvalidArgument is returned for out-of-range parameters.
	ErrInvalidArgument = errors.New("invalid argument")
)

// StateError represents an operation attempted in the wrong frame state.
type StateError struct {
	Op    string
	State FrameState
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s not allowed while shutter is %s: %v", e.Op, e.State, ErrInvalidState)
}

func (e *StateError) Unwrap() error {
	return ErrInvalidState
}

// ArgumentError represents a rejected parameter value.
type ArgumentError struct {
	Name   string
	Value  any
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s = %v: %s: %v", e.Name, e.Value, e.Reason, ErrInvalidArgument)
}

func (e *ArgumentError) Unwrap() error {
	return ErrInvalidArgument
}

func stateError(op string, state FrameState) error {
	return &StateError{Op: op, State: state}
}

func argumentError(name string, value any, reason string) error {
	return &ArgumentError{Name: name, Value: value, Reason: reason}
}

// ErrOpenFile represents an error when opening a file.
type ErrOpenFile struct {
	Filename string
	Err      error
}

func (e *ErrOpenFile) Error() string {
	return fmt.Sprintf("error opening file %q: %v", e.Filename, e.Err)
}

func (e *ErrOpenFile) Unwrap() error {
	return e.Err
}
