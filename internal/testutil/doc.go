// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers shared by the daemon's tests: Must* wrappers
// that fail the test on error, a fake clock for deterministic Date headers,
// document-root fixtures and a raw one-shot HTTP exchange over TCP.
package testutil
