// SPDX-License-Identifier: MPL-2.0

// Package logging builds the daemon's structured logger. In the foreground it
// writes to the console; once detached it writes to the system logger under
// the daemon facility.
package logging
