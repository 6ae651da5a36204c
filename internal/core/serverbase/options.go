// SPDX-License-Identifier: MPL-2.0

package serverbase

// Option configures a Base.
type Option func(*Base)

// WithErrorChannel sets the buffer size of the asynchronous error channel (default 1).
func WithErrorChannel(size int) Option {
	return func(b *Base) {
		b.errCh = make(chan error, size)
	}
}

// WithConnHook registers fn to be called with the live connection count
// each time a connection is tracked or forgotten.
func WithConnHook(fn func(active int)) Option {
	return func(b *Base) {
		b.connHook = fn
	}
}
