// SPDX-License-Identifier: MPL-2.0

package serverbase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Base is embedded by concrete servers. It owns the lifecycle state, the
// internal context, goroutine accounting, and the live connection registry.
//
// A Base is single-use: after Stopped or Failed, build a new server.
type Base struct {
	state atomic.Int32

	stateMu sync.Mutex
	lastErr error

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startedCh chan struct{}
	errCh     chan error

	connMu   sync.Mutex
	conns    map[Closer]struct{}
	connHook func(active int)
	served   atomic.Uint64
}

// NewBase returns a Base in StateCreated.
func NewBase(opts ...Option) *Base {
	b := &Base{
		startedCh: make(chan struct{}),
		errCh:     make(chan error, 1),
		conns:     make(map[Closer]struct{}),
	}
	b.state.Store(int32(StateCreated))

	for _, opt := range opts {
		opt(b)
	}
	return b
}

// State returns the current state without locking.
func (b *Base) State() State {
	return State(b.state.Load())
}

// IsRunning reports whether the server is in StateRunning.
func (b *Base) IsRunning() bool {
	return b.State() == StateRunning
}

// Err returns the channel on which asynchronous failures are delivered.
func (b *Base) Err() <-chan error {
	return b.errCh
}

// LastError returns the error recorded by TransitionToFailed, or nil.
func (b *Base) LastError() error {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	return b.lastErr
}

// TransitionToStarting moves Created to Starting and creates the internal
// context. It fails if ctx is already done or the server was started before.
func (b *Base) TransitionToStarting(ctx context.Context) error {
	// A cancelled ctx must be seen before the accept goroutine can reach Running.
	select {
	case <-ctx.Done():
		b.TransitionToFailed(fmt.Errorf("context cancelled before start: %w", ctx.Err()))
		return b.LastError()
	default:
	}

	if !b.state.CompareAndSwap(int32(StateCreated), int32(StateStarting)) {
		return fmt.Errorf("cannot start server in state %s", b.State())
	}

	b.ctx, b.cancel = context.WithCancel(context.Background())
	return nil
}

// TransitionToRunning moves Starting to Running and releases WaitForReady callers.
func (b *Base) TransitionToRunning() {
	if b.state.CompareAndSwap(int32(StateStarting), int32(StateRunning)) {
		close(b.startedCh)
	}
}

// TransitionToFailed records err, marks the server Failed, cancels the
// internal context and offers err on the error channel.
func (b *Base) TransitionToFailed(err error) {
	b.stateMu.Lock()
	b.lastErr = err
	b.stateMu.Unlock()

	b.state.Store(int32(StateFailed))

	if b.cancel != nil {
		b.cancel()
	}
	b.SendError(err)
}

// TransitionToStopping moves Starting or Running to Stopping and cancels the
// internal context. It returns false when there is nothing to stop; a server
// that was never started goes straight to Stopped.
func (b *Base) TransitionToStopping() bool {
	for {
		current := b.State()
		switch current {
		case StateStopped, StateFailed, StateStopping:
			return false
		case StateCreated:
			if b.state.CompareAndSwap(int32(StateCreated), int32(StateStopped)) {
				return false
			}
		case StateStarting, StateRunning:
			if b.state.CompareAndSwap(int32(current), int32(StateStopping)) {
				if b.cancel != nil {
					b.cancel()
				}
				return true
			}
		default:
			return false
		}
	}
}

// TransitionToStopped marks the server Stopped. Call it after WaitForShutdown.
func (b *Base) TransitionToStopped() {
	b.state.Store(int32(StateStopped))
}

// WaitForReady blocks until Running or until ctx is done.
func (b *Base) WaitForReady(ctx context.Context) error {
	select {
	case <-b.startedCh:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for server ready: %w", ctx.Err())
	}
}

// WaitForShutdown blocks until every goroutine registered with AddGoroutine is done.
func (b *Base) WaitForShutdown() {
	b.wg.Wait()
}

// Context returns the internal context, or nil before Start.
func (b *Base) Context() context.Context {
	return b.ctx
}

// AddGoroutine registers one goroutine; call it before the go statement.
func (b *Base) AddGoroutine() {
	b.wg.Add(1)
}

// DoneGoroutine releases one goroutine; defer it first thing.
func (b *Base) DoneGoroutine() {
	b.wg.Done()
}

// SendError offers err on the error channel, dropping it when the buffer is full.
func (b *Base) SendError(err error) {
	select {
	case b.errCh <- err:
	default:
	}
}

// CloseErrChannel closes the error channel once the server is fully stopped.
func (b *Base) CloseErrChannel() {
	close(b.errCh)
}

// StartedChannel is closed on the transition to Running.
func (b *Base) StartedChannel() <-chan struct{} {
	return b.startedCh
}
