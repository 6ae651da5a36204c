// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable errors for startup failures and a catalog
// of Markdown guidance rendered when the daemon refuses to start.
//
// Connection-level failures never reach this package; they are logged and the
// connection is dropped.
package issue
