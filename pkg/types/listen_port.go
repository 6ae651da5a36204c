// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

// ErrInvalidListenPort is the sentinel error wrapped by InvalidListenPortError.
var ErrInvalidListenPort = errors.New("invalid listen port")

type (
	// ListenPort is the TCP port the daemon binds.
	// Zero asks the kernel for an ephemeral port, which is what the tests use.
	ListenPort int

	// InvalidListenPortError is returned when a ListenPort is outside 0-65535.
	InvalidListenPortError struct {
		Value ListenPort
	}
)

// String returns the decimal form of the port, suitable for use as a service name.
func (p ListenPort) String() string { return strconv.Itoa(int(p)) }

// Validate returns an error if the port is outside 0-65535.
func (p ListenPort) Validate() error {
	if p < 0 || p > 65535 {
		return &InvalidListenPortError{Value: p}
	}
	return nil
}

// IsPrivileged reports whether binding the port normally needs root.
func (p ListenPort) IsPrivileged() bool { return p > 0 && p < 1024 }

// JoinHost returns host:port for the given host.
func (p ListenPort) JoinHost(host string) string {
	return net.JoinHostPort(host, p.String())
}

// Error implements the error interface for InvalidListenPortError.
func (e *InvalidListenPortError) Error() string {
	return fmt.Sprintf("invalid listen port %d: must be 0 (auto-select) or 1-65535", e.Value)
}

// Unwrap returns ErrInvalidListenPort for errors.Is() compatibility.
func (e *InvalidListenPortError) Unwrap() error { return ErrInvalidListenPort }
