// SPDX-License-Identifier: MPL-2.0

package docroot

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// BlockSize is the read size used when copying a file to the connection.
const BlockSize = 4096

// Stream operations reported in StreamError.Op.
const (
	OpOpen  = "open"
	OpRead  = "read"
	OpWrite = "write"
)

// ErrStream is the sentinel wrapped by every StreamError.
var ErrStream = errors.New("file stream failed")

// StreamError is a failure while sending a file body. It is never retried:
// the response is already partially on the wire.
type StreamError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface for StreamError.
func (e *StreamError) Error() string {
	if e.Op == OpWrite {
		return fmt.Sprintf("failed to write %s to connection: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns ErrStream and the underlying cause.
func (e *StreamError) Unwrap() []error { return []error{ErrStream, e.Err} }

// Stream copies the file at info.Path to w in BlockSize reads.
func Stream(w io.Writer, info FileInfo) (err error) {
	f, err := os.Open(info.Path)
	if err != nil {
		return &StreamError{Op: OpOpen, Path: info.Path, Err: err}
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = &StreamError{Op: OpRead, Path: info.Path, Err: closeErr}
		}
	}()

	buf := make([]byte, BlockSize)
	for {
		n, readErr := f.Read(buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				return &StreamError{Op: OpWrite, Path: info.Path, Err: writeErr}
			}
		}
		if errors.Is(readErr, io.EOF) {
			return nil
		}
		if readErr != nil {
			return &StreamError{Op: OpRead, Path: info.Path, Err: readErr}
		}
	}
}
