// SPDX-License-Identifier: MPL-2.0

// Package serverbase holds the lifecycle state machine shared by long-running
// listeners: atomic state reads, guarded transitions, goroutine accounting,
// and a registry of live connections that can be force-closed on shutdown.
package serverbase
