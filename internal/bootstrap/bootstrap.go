// SPDX-License-Identifier: MPL-2.0

package bootstrap

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/myhttpd/myhttpd/internal/config"
	"github.com/myhttpd/myhttpd/internal/logging"
	"github.com/myhttpd/myhttpd/internal/server"

	"github.com/charmbracelet/log"
)

// Bootstrap turns a validated ServerConfig into a serving process.
type Bootstrap struct {
	Config *config.ServerConfig
	// System performs the privilege drop; nil means OS().
	System System
	// Console receives foreground logs; nil means os.Stderr.
	Console io.Writer
	// Executable and Args are what Daemonize re-executes. An empty
	// Executable means os.Executable().
	Executable string
	Args       []string
	// Now stamps the Date header; nil means time.Now.
	Now func() time.Time
	// OnServing, when set, is called with the bound address once the process
	// is serving.
	OnServing func(net.Addr)

	phases *Tracker
}

// New returns a Bootstrap for cfg that re-executes itself with args.
func New(cfg *config.ServerConfig, args []string) *Bootstrap {
	return &Bootstrap{Config: cfg, Args: args}
}

// Phases returns the phase tracker, creating it on first use.
func (b *Bootstrap) Phases() *Tracker {
	if b.phases == nil {
		b.phases = NewTracker(nil)
	}
	return b.phases
}

// Run starts the server and blocks until ctx is cancelled or a termination
// signal arrives. Without --debug the first invocation returns as soon as the
// detached process reports it is serving. Returned errors are classified.
func (b *Bootstrap) Run(ctx context.Context) error {
	ctx, stop := InstallSignalHandlers(ctx)
	defer stop()

	switch {
	case IsDaemonChild():
		return b.runDetached(ctx)
	case b.Config.Daemonize():
		return b.runLauncher(ctx)
	default:
		sink := logging.NewStderr(b.Config.Debug)
		if b.Console != nil {
			sink = logging.NewConsole(b.Console, b.Config.Debug)
		}
		defer func() { _ = sink.Close() }()
		return b.serve(ctx, sink.Logger(), nil)
	}
}

// runLauncher checks what can be checked without privileges, then starts
// the detached process and waits for its report.
func (b *Bootstrap) runLauncher(ctx context.Context) error {
	phases := b.Phases()
	if b.Config.Chroot {
		if _, err := ResolveIdentity(b.system(), b.Config.User, b.Config.Group); err != nil {
			phases.Fail()
			return Classify(err)
		}
	}

	exe := b.Executable
	if exe == "" {
		var err error
		if exe, err = os.Executable(); err != nil {
			phases.Fail()
			return Classify(fmt.Errorf("%w: locate executable: %w", ErrDaemonize, err))
		}
	}
	if err := Daemonize(ctx, exe, b.Args); err != nil {
		phases.Fail()
		return Classify(err)
	}
	return phases.Advance(PhaseDaemonized)
}

// runDetached is the re-executed process. Syslog is opened before any
// chroot hides its socket.
func (b *Bootstrap) runDetached(ctx context.Context) error {
	notifier, err := InheritedNotifier()
	if err != nil {
		return Classify(err)
	}
	sink, err := logging.NewSyslog(logging.SyslogTag, b.Config.Debug)
	if err != nil {
		err = Classify(err)
		_ = notifier.Fail(err)
		return err
	}
	defer func() { _ = sink.Close() }()
	return b.serve(ctx, sink.Logger(), notifier)
}

func (b *Bootstrap) serve(ctx context.Context, logger *log.Logger, notifier *Notifier) (err error) {
	phases := b.Phases()
	defer func() {
		if err != nil {
			phases.Fail()
			err = Classify(err)
			logger.Error("startup failed", "error", err)
			_ = notifier.Fail(err)
		}
	}()

	if b.Config.Chroot {
		if err := phases.Advance(PhasePrivilegeDropping); err != nil {
			return err
		}
		id, err := ResolveIdentity(b.system(), b.Config.User, b.Config.Group)
		if err != nil {
			return err
		}
		if err := DropPrivileges(b.system(), id, b.Config.DocRoot); err != nil {
			return err
		}
		logger.Info("dropped privileges", "user", id.User, "uid", id.UID, "group", id.Group, "gid", id.GID, "root", b.Config.DocRoot)
	}

	if err := phases.Advance(PhaseListening); err != nil {
		return err
	}
	srv := server.New(server.Config{
		DocRoot: b.Config.EffectiveDocRoot(),
		Host:    b.Config.Host,
		Port:    b.Config.Port,
		Now:     b.Now,
		Logger:  logger,
	})
	if err := srv.Start(ctx); err != nil {
		return err
	}

	if notifier != nil {
		if err := phases.Advance(PhaseDaemonized); err != nil {
			return err
		}
		if err := notifier.Ready(); err != nil {
			logger.Warn("could not report readiness", "error", err)
		}
	}
	if err := phases.Advance(PhaseServing); err != nil {
		return err
	}
	if b.OnServing != nil {
		b.OnServing(srv.Addr())
	}

	<-ctx.Done()
	logger.Info("shutting down", "cause", context.Cause(ctx))
	if err := srv.Stop(); err != nil {
		logger.Error("shutdown", "error", err)
	}
	return nil
}

func (b *Bootstrap) system() System {
	if b.System == nil {
		return OS()
	}
	return b.System
}
