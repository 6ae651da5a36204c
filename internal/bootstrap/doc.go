// SPDX-License-Identifier: MPL-2.0

// Package bootstrap prepares the process before the dispatcher accepts its
// first connection: signal disposition, the optional chroot and identity
// switch, binding the listener, and detaching from the terminal.
//
// Detaching re-executes the binary in a new session because a Go process
// cannot fork. The parent waits on a status pipe until the child is serving or
// has failed, so startup errors still reach the terminal.
package bootstrap
