// SPDX-License-Identifier: MPL-2.0

package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"runtime/debug"
	"sync"
	"time"

	"github.com/myhttpd/myhttpd/internal/core/serverbase"
	"github.com/myhttpd/myhttpd/internal/logging"
	"github.com/myhttpd/myhttpd/internal/protocol"
	"github.com/myhttpd/myhttpd/pkg/types"

	"github.com/charmbracelet/log"
)

const (
	// DefaultShutdownTimeout bounds how long Stop waits for in-flight connections.
	DefaultShutdownTimeout = 5 * time.Second

	maxAcceptBackoff = time.Second
)

type (
	// Config holds the dispatcher settings. It is copied by New.
	Config struct {
		// DocRoot is the effective document root, empty after a chroot.
		DocRoot string
		// Listener, when set, is served as-is and Host/Port are ignored.
		Listener net.Listener
		Host     string
		Port     types.ListenPort
		// ShutdownTimeout defaults to DefaultShutdownTimeout.
		ShutdownTimeout time.Duration
		// Now stamps the Date header; nil means time.Now.
		Now    func() time.Time
		Logger *log.Logger
	}

	// Server is the accept loop plus its per-connection goroutines.
	// A Server is single-use.
	Server struct {
		*serverbase.Base

		cfg     Config
		logger  *log.Logger
		respond func(io.Writer, *protocol.Request) (protocol.Status, error)

		mu       sync.Mutex
		listener net.Listener

		stopped     chan struct{}
		stoppedOnce sync.Once
	}
)

// New creates a Server in the created state.
func New(cfg Config) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard().Logger()
	}

	responder := &protocol.Responder{DocRoot: cfg.DocRoot, Now: cfg.Now}
	return &Server{
		Base:    serverbase.NewBase(),
		cfg:     cfg,
		logger:  cfg.Logger,
		respond: responder.Respond,
		stopped: make(chan struct{}),
	}
}

// Start binds (or adopts) the listener and launches the accept loop.
// It returns once the server is accepting.
func (s *Server) Start(ctx context.Context) error {
	if err := s.TransitionToStarting(ctx); err != nil {
		if s.State() == serverbase.StateFailed {
			s.markStopped()
		}
		return err
	}

	ln := s.cfg.Listener
	if ln == nil {
		var err error
		ln, err = Listen(ctx, s.cfg.Host, s.cfg.Port)
		if err != nil {
			s.TransitionToFailed(err)
			s.markStopped()
			return err
		}
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	// Running before the loop starts so the first connection is trackable.
	s.TransitionToRunning()

	s.AddGoroutine()
	go s.acceptLoop(ln)

	s.logger.Info("listening", "addr", ln.Addr().String(), "docroot", s.cfg.DocRoot)
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop closes the listener and waits up to the shutdown timeout for
// in-flight connections before force-closing them. It is safe to call more
// than once; later calls wait for the first to finish.
func (s *Server) Stop() error {
	if !s.TransitionToStopping() {
		if s.State() == serverbase.StateStopping {
			<-s.stopped
		} else {
			s.markStopped()
		}
		return nil
	}

	s.logger.Debug("stopping", "active", s.ActiveConns())

	var stopErr error
	s.mu.Lock()
	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			stopErr = fmt.Errorf("close listener: %w", err)
		}
	}
	s.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		s.WaitForShutdown()
		close(drained)
	}()

	select {
	case <-drained:
	case <-time.After(s.cfg.ShutdownTimeout):
		s.logger.Warn("shutdown timeout, closing connections", "active", s.ActiveConns())
		if err := s.CloseConns(); err != nil {
			s.logger.Debug("close connections", "error", err)
		}
		<-drained
	}

	s.TransitionToStopped()
	s.CloseErrChannel()
	s.markStopped()
	s.logger.Info("server stopped", "served", s.ServedConns())
	return stopErr
}

// Wait blocks until the server has stopped and returns the error that failed
// it, if any. It does not return for a server that is never started or stopped.
func (s *Server) Wait() error {
	<-s.stopped
	return s.LastError()
}

func (s *Server) markStopped() {
	s.stoppedOnce.Do(func() { close(s.stopped) })
}

// acceptLoop runs until the listener is closed. Other accept errors, such as
// descriptor exhaustion, are logged and retried with backoff.
func (s *Server) acceptLoop(ln net.Listener) {
	defer s.DoneGoroutine()

	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || s.Context().Err() != nil {
				return
			}
			backoff = nextBackoff(backoff)
			s.logger.Error("accept failed", "error", err, "retry", backoff)
			select {
			case <-time.After(backoff):
			case <-s.Context().Done():
				return
			}
			continue
		}
		backoff = 0

		if !s.TrackConn(conn) {
			_ = conn.Close()
			continue
		}
		s.AddGoroutine()
		go s.serveConn(conn)
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	return min(2*d, maxAcceptBackoff)
}

// serveConn handles exactly one request on conn and closes it. Every error
// here is fatal for this connection only.
func (s *Server) serveConn(conn net.Conn) {
	remote := conn.RemoteAddr().String()

	defer s.DoneGoroutine()
	defer s.ForgetConn(conn)
	defer func() { _ = conn.Close() }()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("connection panicked", "remote", remote, "error", r, "stack", string(debug.Stack()))
		}
	}()

	req, err := protocol.ReadRequest(bufio.NewReader(conn))
	if err != nil {
		s.logger.Error("fatal connection error", "remote", remote, "error", err)
		return
	}

	status, err := s.respond(conn, req)
	if err != nil {
		s.logger.Error("fatal connection error", "remote", remote, "method", req.Method, "path", req.Path, "error", err)
		return
	}
	s.logger.Debug("served", "remote", remote, "method", req.Method, "path", req.Path, "status", status.String())
}
