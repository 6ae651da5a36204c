// SPDX-License-Identifier: MPL-2.0

package bootstrap

import (
	"context"
	"os/signal"

	"golang.org/x/sys/unix"
)

// InstallSignalHandlers ignores SIGPIPE, so a peer that disconnects mid-write
// surfaces as a write error on that connection only, and returns a context
// cancelled by SIGINT or SIGTERM. Connections run as goroutines, so there
// are no child processes to reap.
func InstallSignalHandlers(ctx context.Context) (context.Context, context.CancelFunc) {
	signal.Ignore(unix.SIGPIPE)
	return signal.NotifyContext(ctx, unix.SIGINT, unix.SIGTERM)
}
