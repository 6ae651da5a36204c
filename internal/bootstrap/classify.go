// SPDX-License-Identifier: MPL-2.0

package bootstrap

import (
	"errors"

	"github.com/myhttpd/myhttpd/internal/config"
	"github.com/myhttpd/myhttpd/internal/issue"
	"github.com/myhttpd/myhttpd/internal/logging"
	"github.com/myhttpd/myhttpd/internal/server"
)

// Classify attaches an operation, suggestions, and a catalog issue to the
// startup errors this package knows about. Errors that already carry an
// issue, and unknown errors, are returned unchanged.
func Classify(err error) error {
	if err == nil || issue.IssueOf(err) != 0 {
		return err
	}

	ec := issue.NewErrorContext().Wrap(err)
	switch {
	case errors.Is(err, config.ErrInvalidConfig):
		ec.WithOperation("load configuration").
			WithIssue(issue.InvalidConfigId).
			WithSuggestion("Run 'myhttpd --help' for usage")
	case errors.Is(err, ErrUnknownGroup):
		ec.WithOperation("resolve group").
			WithIssue(issue.UnknownGroupId).
			WithSuggestion("Check the --group name with 'getent group'")
	case errors.Is(err, ErrUnknownUser):
		ec.WithOperation("resolve user").
			WithIssue(issue.UnknownUserId).
			WithSuggestion("Check the --user name with 'getent passwd'")
	case errors.Is(err, ErrPrivilegeDrop):
		ec.WithOperation("drop privileges").
			WithIssue(issue.PrivilegeDropFailedId).
			WithSuggestions("--chroot must be started as root", "The document root must be a directory")
	case errors.Is(err, server.ErrListen):
		ec.WithOperation("start server").
			WithIssue(issue.ListenFailedId).
			WithSuggestions("Pick a free port with --port", "Ports below 1024 need root, and the socket is bound after --chroot drops privileges")
	case errors.Is(err, logging.ErrSyslogUnavailable):
		ec.WithOperation("open system log").
			WithIssue(issue.SyslogUnavailableId).
			WithSuggestion("Run in the foreground with --debug")
	case errors.Is(err, ErrDaemonize):
		ec.WithOperation("detach from terminal").
			WithIssue(issue.DaemonizeFailedId).
			WithSuggestion("Run in the foreground with --debug to see the failure")
	default:
		return err
	}
	return ec.BuildError()
}
