// SPDX-License-Identifier: MPL-2.0

package protocol

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/myhttpd/myhttpd/internal/docroot"
)

const (
	// ServerName and ServerVersion form the Server header value.
	ServerName    = "myHTTP"
	ServerVersion = "1.0"
	// ResponseMinor is the minor version on every status line; the server never
	// offers HTTP/1.1 features, so it always answers as HTTP/1.0.
	ResponseMinor = 0
	// DefaultContentType is reported for every file.
	DefaultContentType = "text/plain"

	// DateFormat is RFC 1123 with a literal GMT zone; times are converted to UTC first.
	DateFormat = "Mon, 02 Jan 2006 15:04:05 GMT"
)

// Status is the code and reason phrase written after the protocol version.
type Status string

// Statuses the server produces.
const (
	StatusOK               Status = "200 OK"
	StatusBadRequest       Status = "400 Bad Request"
	StatusNotFound         Status = "404 Not Found"
	StatusMethodNotAllowed Status = "405 Method Not Allowed"
)

// String returns the status line text.
func (s Status) String() string { return string(s) }

// HasBody reports whether a response with this status may carry a body.
// Only file responses do; the error statuses are header-only.
func (s Status) HasBody() bool { return s == StatusOK }

// Responder writes the single response of a connection.
type Responder struct {
	// DocRoot is prepended to request paths. It is empty once the process has chrooted.
	DocRoot string
	// Now supplies the Date header; nil means time.Now.
	Now func() time.Time
}

// Respond writes the response for req to w and flushes it. The returned status
// is what was sent; a non-nil error means the connection must be dropped.
func (rs *Responder) Respond(w io.Writer, req *Request) (Status, error) {
	bw := bufio.NewWriterSize(w, docroot.BlockSize)

	var (
		status Status
		err    error
	)
	switch req.Method {
	case MethodGet, MethodHead:
		status, err = rs.fileResponse(bw, req)
	case MethodPost:
		status = StatusMethodNotAllowed
		err = rs.headerOnly(bw, status)
	default:
		status = StatusBadRequest
		err = rs.headerOnly(bw, status)
	}
	if err != nil {
		return status, err
	}
	if err := bw.Flush(); err != nil {
		return status, fmt.Errorf("flush %s response: %w", status, err)
	}
	return status, nil
}

func (rs *Responder) fileResponse(w io.Writer, req *Request) (Status, error) {
	info := docroot.Resolve(rs.DocRoot, req.Path)
	if !info.OK {
		return StatusNotFound, rs.headerOnly(w, StatusNotFound)
	}

	if err := WriteStatus(w, StatusOK, rs.now()); err != nil {
		return StatusOK, err
	}
	if _, err := fmt.Fprintf(w, "Content-Length: %d\r\nContent-Type: %s\r\n\r\n", info.Size, ContentType(info)); err != nil {
		return StatusOK, fmt.Errorf("write %s response: %w", StatusOK, err)
	}
	if req.Method == MethodHead {
		return StatusOK, nil
	}
	return StatusOK, docroot.Stream(w, info)
}

func (rs *Responder) headerOnly(w io.Writer, status Status) error {
	if err := WriteStatus(w, status, rs.now()); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "\r\n"); err != nil {
		return fmt.Errorf("write %s response: %w", status, err)
	}
	return nil
}

func (rs *Responder) now() time.Time {
	if rs.Now == nil {
		return time.Now()
	}
	return rs.Now()
}

// WriteStatus writes the status line and the common header block
// (Date, Server, Connection: close). The caller terminates the header section.
func WriteStatus(w io.Writer, status Status, now time.Time) error {
	_, err := fmt.Fprintf(w,
		"HTTP/1.%d %s\r\nDate: %s\r\nServer: %s/%s\r\nConnection: close\r\n",
		ResponseMinor, status, now.UTC().Format(DateFormat), ServerName, ServerVersion)
	if err != nil {
		return fmt.Errorf("write %s response: %w", status, err)
	}
	return nil
}

// ContentType returns the media type reported for a file. There is no
// sniffing or extension lookup: it is always DefaultContentType.
func ContentType(docroot.FileInfo) string {
	return DefaultContentType
}
