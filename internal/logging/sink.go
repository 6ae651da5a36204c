// SPDX-License-Identifier: MPL-2.0

package logging

import (
	"errors"
	"fmt"
	"io"
	"log/syslog"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

const (
	// SyslogTag identifies the daemon's entries in the system log.
	SyslogTag = "myHTTP"

	consolePrefix = "myhttpd"
)

// ErrSyslogUnavailable is returned when no system logger accepts the connection.
var ErrSyslogUnavailable = errors.New("system logger unavailable")

// Destinations a Sink can write to.
const (
	DestinationConsole Destination = "console"
	DestinationSyslog  Destination = "syslog"
)

type (
	// Destination names where log records end up.
	Destination string

	// Sink couples a logger with the resource it writes to.
	Sink struct {
		logger *log.Logger
		dest   Destination
		closer io.Closer
	}
)

// String returns the destination name.
func (d Destination) String() string { return string(d) }

// NewConsole logs to w with timestamps. Debug enables debug-level records.
func NewConsole(w io.Writer, debug bool) *Sink {
	logger := log.NewWithOptions(w, log.Options{
		Prefix:          consolePrefix,
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Level:           level(debug),
	})
	return &Sink{logger: logger, dest: DestinationConsole}
}

// NewStderr is NewConsole on os.Stderr.
func NewStderr(debug bool) *Sink {
	return NewConsole(os.Stderr, debug)
}

// NewSyslog connects to the local system logger with the given tag under the
// daemon facility. Records are logfmt without timestamps; syslog adds its own.
// The connection is opened immediately so it survives a later chroot.
func NewSyslog(tag string, debug bool) (*Sink, error) {
	w, err := syslog.New(syslog.LOG_DAEMON|syslog.LOG_INFO, tag)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSyslogUnavailable, err)
	}
	logger := log.NewWithOptions(w, log.Options{
		Formatter: log.LogfmtFormatter,
		Level:     level(debug),
	})
	return &Sink{logger: logger, dest: DestinationSyslog, closer: w}, nil
}

// Discard returns a Sink that drops every record.
func Discard() *Sink {
	return NewConsole(io.Discard, false)
}

// Logger returns the structured logger.
func (s *Sink) Logger() *log.Logger { return s.logger }

// Destination reports where the sink writes.
func (s *Sink) Destination() Destination { return s.dest }

// Close releases the syslog connection. It is a no-op for console sinks.
func (s *Sink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func level(debug bool) log.Level {
	if debug {
		return log.DebugLevel
	}
	return log.InfoLevel
}
