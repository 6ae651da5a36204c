// SPDX-License-Identifier: MPL-2.0

package serverbase

import (
	"errors"
	"io"
)

// Closer is anything tracked in the connection registry, typically a net.Conn.
type Closer = io.Closer

// TrackConn adds c to the registry. It returns false, leaving c untracked,
// when the server no longer accepts connections; the caller then closes c.
func (b *Base) TrackConn(c Closer) bool {
	b.connMu.Lock()
	if !b.State().AcceptsConnections() {
		b.connMu.Unlock()
		return false
	}
	b.conns[c] = struct{}{}
	active := len(b.conns)
	b.connMu.Unlock()

	b.served.Add(1)
	b.notify(active)
	return true
}

// ForgetConn removes c from the registry. It does not close c.
func (b *Base) ForgetConn(c Closer) {
	b.connMu.Lock()
	if _, ok := b.conns[c]; !ok {
		b.connMu.Unlock()
		return
	}
	delete(b.conns, c)
	active := len(b.conns)
	b.connMu.Unlock()

	b.notify(active)
}

// ActiveConns returns the number of tracked connections.
func (b *Base) ActiveConns() int {
	b.connMu.Lock()
	defer b.connMu.Unlock()
	return len(b.conns)
}

// ServedConns returns how many connections were ever tracked.
func (b *Base) ServedConns() uint64 {
	return b.served.Load()
}

// CloseConns closes every tracked connection and empties the registry.
// The joined close errors are returned.
func (b *Base) CloseConns() error {
	b.connMu.Lock()
	conns := b.conns
	b.conns = make(map[Closer]struct{})
	b.connMu.Unlock()

	var errs []error
	for c := range conns {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(conns) > 0 {
		b.notify(0)
	}
	return errors.Join(errs...)
}

func (b *Base) notify(active int) {
	if b.connHook != nil {
		b.connHook(active)
	}
}
