// SPDX-License-Identifier: MPL-2.0

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/myhttpd/myhttpd/pkg/types"

	"golang.org/x/sys/unix"
)

// Backlog is the pending-connection queue length passed to listen(2).
const Backlog = 5

// ErrListen is wrapped by every error Listen returns.
var ErrListen = errors.New("cannot listen on")

// Listen resolves host and binds the first candidate address that accepts
// both bind(2) and listen(2). An empty host means the IPv4 wildcard.
func Listen(ctx context.Context, host string, port types.ListenPort) (net.Listener, error) {
	addr := port.JoinHost(host)

	candidates, err := candidateIPs(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrListen, addr, err)
	}

	var errs []error
	for _, ip := range candidates {
		ln, err := listenTCP(ip, int(port))
		if err == nil {
			return ln, nil
		}
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("%w %s: %w", ErrListen, addr, errors.Join(errs...))
}

func candidateIPs(ctx context.Context, host string) ([]net.IP, error) {
	if host == "" {
		return []net.IP{net.IPv4zero}, nil
	}
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}
	ips := make([]net.IP, 0, len(addrs))
	for _, a := range addrs {
		ips = append(ips, a.IP)
	}
	return ips, nil
}

// listenTCP builds the socket by hand so the backlog is exactly Backlog;
// net.Listen always uses the kernel's somaxconn.
func listenTCP(ip net.IP, port int) (net.Listener, error) {
	family, sa := sockaddr(ip, port)

	fd, err := unix.Socket(family, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, os.NewSyscallError("socket", err)
	}
	unix.CloseOnExec(fd)

	if err := setupSocket(fd, sa); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}

	f := os.NewFile(uintptr(fd), "tcp:"+net.JoinHostPort(ip.String(), fmt.Sprint(port)))
	defer func() { _ = f.Close() }()

	ln, err := net.FileListener(f)
	if err != nil {
		return nil, fmt.Errorf("adopt socket: %w", err)
	}
	return ln, nil
}

func setupSocket(fd int, sa unix.Sockaddr) error {
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return os.NewSyscallError("setsockopt", err)
	}
	if err := unix.Bind(fd, sa); err != nil {
		return os.NewSyscallError("bind", err)
	}
	if err := unix.Listen(fd, Backlog); err != nil {
		return os.NewSyscallError("listen", err)
	}
	return nil
}

func sockaddr(ip net.IP, port int) (int, unix.Sockaddr) {
	if ip4 := ip.To4(); ip4 != nil {
		sa := &unix.SockaddrInet4{Port: port}
		copy(sa.Addr[:], ip4)
		return unix.AF_INET, sa
	}
	sa := &unix.SockaddrInet6{Port: port}
	copy(sa.Addr[:], ip.To16())
	return unix.AF_INET6, sa
}
