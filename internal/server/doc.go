// SPDX-License-Identifier: MPL-2.0

// Package server is the connection dispatcher. It owns the listening socket,
// accepts connections in a single loop, and gives each one its own goroutine
// that reads one request, writes one response, and closes the connection.
//
// A failure inside one connection, panics included, ends only that connection.
package server
