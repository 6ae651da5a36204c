// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"errors"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"syscall"
	"testing"
	"time"
)

// NewDocRoot creates a temporary document root holding files, keyed by
// slash-separated relative path. Parent directories are created as needed.
func NewDocRoot(t testing.TB, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		MustMkdirAll(t, filepath.Dir(path), 0o755)
		MustWriteFile(t, path, []byte(content))
	}
	return root
}

// Exchange dials addr, writes raw, half-closes the write side and returns
// everything the server sent until it closed the connection.
func Exchange(t testing.TB, addr, raw string) []byte {
	t.Helper()
	resp, err := TryExchange(addr, raw)
	if err != nil {
		t.Fatalf("exchange with %s: %v", addr, err)
	}
	return resp
}

// TryExchange is Exchange for goroutines that must not call t.Fatal.
// A connection reset after the response is not an error.
func TryExchange(addr, raw string) ([]byte, error) {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(10 * time.Second)); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}
	if _, err := io.WriteString(conn, raw); err != nil && !isConnReset(err) {
		return nil, fmt.Errorf("write request: %w", err)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.CloseWrite()
	}

	resp, err := io.ReadAll(conn)
	if err != nil && !isConnReset(err) {
		return resp, fmt.Errorf("read response: %w", err)
	}
	return resp, nil
}

func isConnReset(err error) bool {
	return errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE)
}
