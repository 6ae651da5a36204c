// SPDX-License-Identifier: MPL-2.0

package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"

	"github.com/myhttpd/myhttpd/internal/issue"

	"golang.org/x/sys/unix"
)

const (
	// EnvDaemon marks the re-executed, detached process.
	EnvDaemon = "MYHTTPD_DAEMON"

	// statusFD is where the detached process finds the status pipe.
	statusFD = 3

	statusReady = "ready"
	statusFail  = "fail"
)

// ErrDaemonize is wrapped when the detached process cannot be started or
// dies without reporting.
var ErrDaemonize = errors.New("daemon startup failed")

// Notifier reports the detached process's startup outcome to the launcher.
// A nil Notifier discards reports.
type Notifier struct {
	f *os.File
}

// IsDaemonChild reports whether this process was started by Daemonize.
func IsDaemonChild() bool {
	return os.Getenv(EnvDaemon) == "1"
}

// Daemonize re-executes exe with args in a new session, working directory
// "/", and standard streams on the null device, then waits until the new
// process reports it is serving or has failed. On success the launcher should
// exit; the returned error otherwise carries the detached process's failure.
func Daemonize(ctx context.Context, exe string, args []string) error {
	r, w, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("%w: status pipe: %w", ErrDaemonize, err)
	}
	defer func() { _ = r.Close() }()

	cmd := exec.Command(exe, args...)
	cmd.Env = append(os.Environ(), EnvDaemon+"=1")
	cmd.Dir = "/"
	cmd.ExtraFiles = []*os.File{w}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	err = cmd.Start()
	_ = w.Close()
	if err != nil {
		return fmt.Errorf("%w: start %s: %w", ErrDaemonize, exe, err)
	}

	type report struct {
		line string
		err  error
	}
	reports := make(chan report, 1)
	go func() {
		b, err := io.ReadAll(r)
		reports <- report{line: string(b), err: err}
	}()

	select {
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("%w: %w", ErrDaemonize, ctx.Err())
	case rep := <-reports:
		if rep.err != nil {
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
			return fmt.Errorf("%w: read status: %w", ErrDaemonize, rep.err)
		}
		if err := parseStatus(rep.line); err != nil {
			_ = cmd.Wait()
			return err
		}
		if err := cmd.Process.Release(); err != nil {
			return fmt.Errorf("%w: release: %w", ErrDaemonize, err)
		}
		return nil
	}
}

// parseStatus decodes "ready" or "fail <issue> <message>".
func parseStatus(line string) error {
	line = strings.TrimSpace(line)
	switch {
	case line == statusReady:
		return nil
	case line == "":
		return fmt.Errorf("%w: process exited before reporting status", ErrDaemonize)
	case strings.HasPrefix(line, statusFail+" "):
		idText, msg, _ := strings.Cut(strings.TrimPrefix(line, statusFail+" "), " ")
		id, err := strconv.Atoi(idText)
		if err != nil {
			return fmt.Errorf("%w: malformed status %q", ErrDaemonize, line)
		}
		return &issue.ActionableError{
			Operation: "start daemon",
			Issue:     issue.Id(id),
			Cause:     errors.New(msg),
		}
	default:
		return fmt.Errorf("%w: malformed status %q", ErrDaemonize, line)
	}
}

// InheritedNotifier adopts the status pipe Daemonize passed down.
func InheritedNotifier() (*Notifier, error) {
	if _, err := unix.FcntlInt(statusFD, unix.F_GETFD, 0); err != nil {
		return nil, fmt.Errorf("%w: status descriptor %d: %w", ErrDaemonize, statusFD, err)
	}
	unix.CloseOnExec(statusFD)
	return &Notifier{f: os.NewFile(statusFD, "daemon-status")}, nil
}

// Ready tells the launcher the process is serving and closes the pipe.
func (n *Notifier) Ready() error {
	return n.send(statusReady)
}

// Fail sends err and its catalog id to the launcher and closes the pipe.
func (n *Notifier) Fail(err error) error {
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	return n.send(fmt.Sprintf("%s %d %s", statusFail, issue.IssueOf(err), msg))
}

// send writes one status line. Only the first call has an effect.
func (n *Notifier) send(line string) error {
	if n == nil || n.f == nil {
		return nil
	}
	f := n.f
	n.f = nil

	_, err := io.WriteString(f, line+"\n")
	return errors.Join(err, f.Close())
}
