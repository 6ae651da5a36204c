// SPDX-License-Identifier: MPL-2.0

package protocol

import (
	"errors"
	"fmt"
)

// Parse failures. Every one of them is fatal for the connection: once the
// stream is out of step there is no position to resume from, so no response is sent.
var (
	ErrNoRequestLine         = errors.New("no request line")
	ErrMalformedRequestLine  = errors.New("malformed request line")
	ErrLineTooLong           = errors.New("line too long")
	ErrHeaderRead            = errors.New("failed to read request header field")
	ErrMalformedHeader       = errors.New("malformed header field")
	ErrInvalidContentLength  = errors.New("invalid content length")
	ErrNegativeContentLength = errors.New("negative content length")
	ErrBodyTooLong           = errors.New("request body too long")
	ErrTruncatedBody         = errors.New("truncated body")
)

// ParseError reports why a request could not be read.
// Kind is one of the Err* sentinels above and is what errors.Is matches.
type ParseError struct {
	Kind   error
	Detail string
	Err    error
}

// Error implements the error interface for ParseError.
func (e *ParseError) Error() string {
	msg := "parse request: " + e.Kind.Error()
	if e.Detail != "" {
		msg += fmt.Sprintf(": %q", e.Detail)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the sentinel kind and the underlying I/O error, if any.
func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func parseError(kind error, detail string, err error) *ParseError {
	return &ParseError{Kind: kind, Detail: detail, Err: err}
}
