// SPDX-License-Identifier: MPL-2.0

package bootstrap

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

const (
	// PhaseStarting covers signal setup and identity resolution.
	PhaseStarting Phase = iota
	// PhasePrivilegeDropping is the setgid, setgroups, chroot, setuid sequence.
	PhasePrivilegeDropping
	// PhaseListening means the listener is bound.
	PhaseListening
	// PhaseDaemonized means the process is detached and the launcher released.
	PhaseDaemonized
	// PhaseServing means the accept loop is running.
	PhaseServing
	// PhaseFailed is terminal.
	PhaseFailed
)

var (
	// ErrInvalidPhase is wrapped by InvalidPhaseError.
	ErrInvalidPhase = errors.New("invalid bootstrap phase")
	// ErrPhaseTransition is returned when a phase is entered out of order.
	ErrPhaseTransition = errors.New("invalid bootstrap phase transition")

	// phaseEdges lists, for each phase, the phases that may follow it.
	phaseEdges = map[Phase][]Phase{
		PhaseStarting:          {PhasePrivilegeDropping, PhaseListening, PhaseDaemonized, PhaseFailed},
		PhasePrivilegeDropping: {PhaseListening, PhaseFailed},
		PhaseListening:         {PhaseDaemonized, PhaseServing, PhaseFailed},
		PhaseDaemonized:        {PhaseServing, PhaseFailed},
		PhaseServing:           {PhaseFailed},
	}
)

type (
	// Phase is a bootstrap state.
	Phase int

	// InvalidPhaseError reports a Phase outside the defined set.
	InvalidPhaseError struct {
		Value Phase
	}

	// Tracker records the phases a process goes through and rejects
	// out-of-order transitions. It starts in PhaseStarting.
	Tracker struct {
		mu       sync.Mutex
		history  []Phase
		onChange func(from, to Phase)
	}
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseStarting:
		return "starting"
	case PhasePrivilegeDropping:
		return "privilege-dropping"
	case PhaseListening:
		return "listening"
	case PhaseDaemonized:
		return "daemonized"
	case PhaseServing:
		return "serving"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Validate returns an *InvalidPhaseError for undefined values.
func (p Phase) Validate() error {
	if p < PhaseStarting || p > PhaseFailed {
		return &InvalidPhaseError{Value: p}
	}
	return nil
}

// Error implements the error interface for InvalidPhaseError.
func (e *InvalidPhaseError) Error() string {
	return fmt.Sprintf("invalid bootstrap phase %d", e.Value)
}

// Unwrap returns ErrInvalidPhase.
func (e *InvalidPhaseError) Unwrap() error { return ErrInvalidPhase }

// NewTracker returns a Tracker in PhaseStarting. onChange may be nil.
func NewTracker(onChange func(from, to Phase)) *Tracker {
	return &Tracker{history: []Phase{PhaseStarting}, onChange: onChange}
}

// Current returns the latest phase.
func (t *Tracker) Current() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.history[len(t.history)-1]
}

// History returns every phase entered so far, oldest first.
func (t *Tracker) History() []Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.history)
}

// Advance moves to next if the transition is allowed.
func (t *Tracker) Advance(next Phase) error {
	if err := next.Validate(); err != nil {
		return err
	}

	t.mu.Lock()
	current := t.history[len(t.history)-1]
	if !slices.Contains(phaseEdges[current], next) {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrPhaseTransition, current, next)
	}
	t.history = append(t.history, next)
	t.mu.Unlock()

	if t.onChange != nil {
		t.onChange(current, next)
	}
	return nil
}

// Fail moves to PhaseFailed from any non-terminal phase.
func (t *Tracker) Fail() {
	if t.Current() != PhaseFailed {
		_ = t.Advance(PhaseFailed)
	}
}
