// SPDX-License-Identifier: MPL-2.0

package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/myhttpd/myhttpd/internal/core/serverbase"
	"github.com/myhttpd/myhttpd/internal/logging"
	"github.com/myhttpd/myhttpd/internal/protocol"
	"github.com/myhttpd/myhttpd/internal/testutil"
	"github.com/myhttpd/myhttpd/pkg/types"
)

// fileContent is 37 bytes long.
const fileContent = "The quick brown fox jumps over a dog\n"

const commonBlock = "Date: Sun, 06 Nov 1994 08:49:37 GMT\r\nServer: myHTTP/1.0\r\nConnection: close\r\n"

type testServer struct {
	*Server
	logs *bytes.Buffer
}

func newTestServer(t *testing.T, cfg Config) *testServer {
	t.Helper()
	if cfg.DocRoot == "" {
		cfg.DocRoot = testutil.NewDocRoot(t, map[string]string{
			"existing-file.txt": fileContent,
			"big.bin":           strings.Repeat("0123456789abcdef", 1024),
		})
	}
	if cfg.Listener == nil && cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Now == nil {
		cfg.Now = testutil.NewFakeClock(testutil.ReferenceTime).Now
	}
	var logs bytes.Buffer
	cfg.Logger = logging.NewConsole(&logs, true).Logger()

	return &testServer{Server: New(cfg), logs: &logs}
}

func startTestServer(t *testing.T, cfg Config) *testServer {
	t.Helper()
	s := newTestServer(t, cfg)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(testutil.DeferStop(t, s))
	return s
}

func (s *testServer) exchange(t *testing.T, raw string) string {
	t.Helper()
	return string(testutil.Exchange(t, s.Addr().String(), raw))
}

func TestServer_Responses(t *testing.T) {
	t.Parallel()

	s := startTestServer(t, Config{})

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "get_existing",
			raw:  "GET /existing-file.txt HTTP/1.0\r\n\r\n",
			want: "HTTP/1.0 200 OK\r\n" + commonBlock + "Content-Length: 37\r\nContent-Type: text/plain\r\n\r\n" + fileContent,
		},
		{
			name: "head_existing",
			raw:  "HEAD /existing-file.txt HTTP/1.1\r\nHost: localhost\r\n\r\n",
			want: "HTTP/1.0 200 OK\r\n" + commonBlock + "Content-Length: 37\r\nContent-Type: text/plain\r\n\r\n",
		},
		{
			name: "lower_case_method",
			raw:  "get /existing-file.txt http/1.0\n\n",
			want: "HTTP/1.0 200 OK\r\n" + commonBlock + "Content-Length: 37\r\nContent-Type: text/plain\r\n\r\n" + fileContent,
		},
		{
			name: "missing",
			raw:  "GET /missing.txt HTTP/1.0\r\n\r\n",
			want: "HTTP/1.0 404 Not Found\r\n" + commonBlock + "\r\n",
		},
		{
			name: "post",
			raw:  "POST /anything HTTP/1.0\r\nContent-Length: 5\r\n\r\nhello",
			want: "HTTP/1.0 405 Method Not Allowed\r\n" + commonBlock + "\r\n",
		},
		{
			name: "patch",
			raw:  "PATCH /anything HTTP/1.0\r\n\r\n",
			want: "HTTP/1.0 400 Bad Request\r\n" + commonBlock + "\r\n",
		},
		{
			name: "body_too_long",
			raw:  "GET /existing-file.txt HTTP/1.0\r\nContent-Length: 2000\r\n\r\n",
			want: "",
		},
		{
			name: "negative_length",
			raw:  "GET /existing-file.txt HTTP/1.0\r\nContent-Length: -1\r\n\r\n",
			want: "",
		},
		{
			name: "malformed_request_line",
			raw:  "GARBAGE\r\n\r\n",
			want: "",
		},
		{
			name: "header_without_colon",
			raw:  "GET /existing-file.txt HTTP/1.0\r\nNoColonHere\r\n\r\n",
			want: "",
		},
		{
			name: "truncated_body",
			raw:  "POST /x HTTP/1.0\r\nContent-Length: 10\r\n\r\nabc",
			want: "",
		},
		{
			name: "empty_connection",
			raw:  "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := s.exchange(t, tt.raw); got != tt.want {
				t.Errorf("response mismatch\n got: %q\nwant: %q", got, tt.want)
			}
		})
	}
}

func TestServer_RoundTripLargeFile(t *testing.T) {
	t.Parallel()

	s := startTestServer(t, Config{})
	resp := s.exchange(t, "GET /big.bin HTTP/1.0\r\n\r\n")

	_, body, ok := strings.Cut(resp, "\r\n\r\n")
	if !ok {
		t.Fatalf("response has no header terminator: %q", resp[:min(len(resp), 200)])
	}
	want := strings.Repeat("0123456789abcdef", 1024)
	if body != want {
		t.Errorf("body is %d bytes, want %d identical bytes", len(body), len(want))
	}
	if !strings.Contains(resp, fmt.Sprintf("Content-Length: %d\r\n", len(want))) {
		t.Error("Content-Length does not match file size")
	}
}

func TestServer_BadConnectionDoesNotAffectNext(t *testing.T) {
	t.Parallel()

	s := startTestServer(t, Config{})

	if got := s.exchange(t, "BROKEN-LINE-WITHOUT-SPACES\r\n"); got != "" {
		t.Errorf("malformed request got a response: %q", got)
	}
	if got := s.exchange(t, "GET /existing-file.txt HTTP/1.0\r\nContent-Length: 2000\r\n\r\n"); got != "" {
		t.Errorf("oversized body got a response: %q", got)
	}

	got := s.exchange(t, "GET /existing-file.txt HTTP/1.0\r\n\r\n")
	if !strings.HasPrefix(got, "HTTP/1.0 200 OK\r\n") || !strings.HasSuffix(got, fileContent) {
		t.Errorf("well-formed request after bad ones was not served: %q", got)
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	logs := s.logs.String()
	if !strings.Contains(logs, "fatal connection error") {
		t.Errorf("fatal connection errors should be logged:\n%s", logs)
	}
	if !strings.Contains(logs, "request body too long") {
		t.Errorf("log should carry the parse error:\n%s", logs)
	}
}

func TestServer_ConcurrentConnections(t *testing.T) {
	t.Parallel()

	s := startTestServer(t, Config{})

	const clients = 20
	var wg sync.WaitGroup
	errs := make(chan string, clients)
	for i := range clients {
		wg.Go(func() {
			raw := "GET /existing-file.txt HTTP/1.0\r\n\r\n"
			if i%2 == 1 {
				raw = "GET /missing-" + fmt.Sprint(i) + " HTTP/1.0\r\n\r\n"
			}
			resp, err := testutil.TryExchange(s.Addr().String(), raw)
			if err != nil {
				errs <- fmt.Sprintf("client %d: %v", i, err)
				return
			}
			got := string(resp)
			switch {
			case i%2 == 0 && !strings.HasSuffix(got, fileContent):
				errs <- fmt.Sprintf("client %d: %q", i, got)
			case i%2 == 1 && !strings.HasPrefix(got, "HTTP/1.0 404 Not Found"):
				errs <- fmt.Sprintf("client %d: %q", i, got)
			}
		})
	}
	wg.Wait()
	close(errs)

	for e := range errs {
		t.Error(e)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if s.ServedConns() != clients {
		t.Errorf("ServedConns() = %d, want %d", s.ServedConns(), clients)
	}
}

func TestServer_PanicIsContained(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Config{})
	normal := s.respond
	s.respond = func(w io.Writer, req *protocol.Request) (protocol.Status, error) {
		if req.Path == "/panic" {
			panic("handler exploded")
		}
		return normal(w, req)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(testutil.DeferStop(t, s))

	if got := s.exchange(t, "GET /panic HTTP/1.0\r\n\r\n"); got != "" {
		t.Errorf("panicking connection got a response: %q", got)
	}
	if got := s.exchange(t, "GET /existing-file.txt HTTP/1.0\r\n\r\n"); !strings.HasSuffix(got, fileContent) {
		t.Errorf("server did not survive a panicking connection: %q", got)
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if !strings.Contains(s.logs.String(), "handler exploded") {
		t.Errorf("panic should be logged:\n%s", s.logs.String())
	}
}

func TestServer_Lifecycle(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Config{})
	if s.Addr() != nil {
		t.Error("Addr() before Start should be nil")
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if s.State() != serverbase.StateRunning {
		t.Errorf("State() = %s, want running", s.State())
	}
	if err := s.Start(context.Background()); err == nil {
		t.Error("second Start() should fail")
	}
	addr := s.Addr().String()

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
	if err := s.Wait(); err != nil {
		t.Errorf("Wait() error = %v", err)
	}
	if s.State() != serverbase.StateStopped {
		t.Errorf("State() = %s, want stopped", s.State())
	}

	if conn, err := net.DialTimeout("tcp", addr, time.Second); err == nil {
		testutil.MustClose(t, conn)
		t.Error("listener should be closed after Stop")
	}
}

func TestServer_StopBeforeStart(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Config{})
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := s.Wait(); err != nil {
		t.Errorf("Wait() error = %v", err)
	}
}

func TestServer_StartFailure(t *testing.T) {
	t.Parallel()

	busy, err := Listen(context.Background(), "127.0.0.1", 0)
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer testutil.MustClose(t, busy)

	s := newTestServer(t, Config{Port: types.ListenPort(busy.Addr().(*net.TCPAddr).Port)})
	err = s.Start(context.Background())
	if !errors.Is(err, ErrListen) {
		t.Fatalf("Start() error = %v, want ErrListen", err)
	}
	if s.State() != serverbase.StateFailed {
		t.Errorf("State() = %s, want failed", s.State())
	}
	if err := s.Wait(); !errors.Is(err, ErrListen) {
		t.Errorf("Wait() = %v, want ErrListen", err)
	}
}

func TestServer_AdoptsListener(t *testing.T) {
	t.Parallel()

	ln, err := Listen(context.Background(), "127.0.0.1", 0)
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

	s := startTestServer(t, Config{Listener: ln})
	if s.Addr().String() != ln.Addr().String() {
		t.Errorf("Addr() = %s, want %s", s.Addr(), ln.Addr())
	}
	if got := s.exchange(t, "GET /existing-file.txt HTTP/1.0\r\n\r\n"); !strings.HasSuffix(got, fileContent) {
		t.Errorf("adopted listener did not serve: %q", got)
	}
}

func TestServer_StopClosesHungConnections(t *testing.T) {
	t.Parallel()

	s := startTestServer(t, Config{ShutdownTimeout: 50 * time.Millisecond})

	conn, err := net.DialTimeout("tcp", s.Addr().String(), 5*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for s.ActiveConns() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("connection was never tracked")
		}
		time.Sleep(5 * time.Millisecond)
	}

	done := make(chan error, 1)
	go func() { done <- s.Stop() }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Stop() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Stop() did not force-close the idle connection")
	}
	if s.ActiveConns() != 0 {
		t.Errorf("ActiveConns() = %d after Stop, want 0", s.ActiveConns())
	}

	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline: %v", err)
	}
	if n, _ := conn.Read(make([]byte, 1)); n != 0 {
		t.Error("force-closed connection should not receive data")
	}
}
