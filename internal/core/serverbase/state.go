// SPDX-License-Identifier: MPL-2.0

package serverbase

import (
	"errors"
	"fmt"
)

const (
	// StateCreated means New returned but Start was not called.
	StateCreated State = iota
	// StateStarting means Start is binding or adopting the listener.
	StateStarting
	// StateRunning means the accept loop is live.
	StateRunning
	// StateStopping means Stop was called and connections are draining.
	StateStopping
	// StateStopped is terminal.
	StateStopped
	// StateFailed is terminal: startup failed or the accept loop died.
	StateFailed
)

// ErrInvalidState is the sentinel wrapped by InvalidStateError.
var ErrInvalidState = errors.New("invalid state")

type (
	// State is a server lifecycle state.
	State int32

	// InvalidStateError reports a State outside the defined set.
	InvalidStateError struct {
		Value State
	}
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Error implements the error interface for InvalidStateError.
func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid server state %d", e.Value)
}

// Unwrap returns ErrInvalidState.
func (e *InvalidStateError) Unwrap() error {
	return ErrInvalidState
}

// Validate returns an *InvalidStateError for values outside the defined states.
func (s State) Validate() error {
	switch s {
	case StateCreated, StateStarting, StateRunning, StateStopping, StateStopped, StateFailed:
		return nil
	default:
		return &InvalidStateError{Value: s}
	}
}

// IsTerminal reports whether s is Stopped or Failed.
func (s State) IsTerminal() bool {
	return s == StateStopped || s == StateFailed
}

// AcceptsConnections reports whether new connections should be served in state s.
func (s State) AcceptsConnections() bool {
	return s == StateRunning
}
