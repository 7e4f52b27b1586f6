//go:build linux
// +build linux

// File: reactor/socket_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Raw non-blocking TCP sockets on top of golang.org/x/sys/unix.

package reactor

import (
	"fmt"
	"io"
	"net"
	"strconv"

	"golang.org/x/sys/unix"
)

type tcpListener struct {
	fd   int
	addr *net.TCPAddr
}

// listenTCP binds a non-blocking listening socket. An empty host binds all
// IPv4 interfaces.
func listenTCP(addr string, backlog int) (listener, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", addr, err)
	}
	family, sa, err := toSockaddr(tcpAddr)
	if err != nil {
		return nil, err
	}
	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, fmt.Errorf("socket create: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("setsockopt SO_REUSEADDR: %w", err)
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bind %s: %w", tcpAddr, err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("listen %s: %w", tcpAddr, err)
	}
	local := tcpAddr
	if bound, err := unix.Getsockname(fd); err == nil {
		if a := fromSockaddr(bound); a != nil {
			local = a
		}
	}
	return &tcpListener{fd: fd, addr: local}, nil
}

func (l *tcpListener) Fd() int        { return l.fd }
func (l *tcpListener) Addr() net.Addr { return l.addr }
func (l *tcpListener) Close() error   { return unix.Close(l.fd) }

// Accept takes one pending connection.
func (l *tcpListener) Accept() (endpoint, error) {
	for {
		nfd, sa, err := unix.Accept4(l.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		switch err {
		case nil:
		case unix.EINTR:
			continue
		case unix.EAGAIN, unix.ECONNABORTED:
			return nil, nil
		default:
			return nil, fmt.Errorf("accept: %w", err)
		}
		_ = unix.SetsockoptInt(nfd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
		remote := ""
		if a := fromSockaddr(sa); a != nil {
			remote = a.String()
		}
		return &fdEndpoint{fd: nfd, remote: remote}, nil
	}
}

type fdEndpoint struct {
	fd     int
	remote string
}

func (e *fdEndpoint) Fd() int            { return e.fd }
func (e *fdEndpoint) RemoteAddr() string { return e.remote }
func (e *fdEndpoint) Close() error       { return unix.Close(e.fd) }

func (e *fdEndpoint) Read(p []byte) (int, error) {
	for {
		n, err := unix.Read(e.fd, p)
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN:
			return 0, nil
		case err != nil:
			return 0, err
		case n == 0 && len(p) > 0:
			return 0, io.EOF
		}
		return n, nil
	}
}

func (e *fdEndpoint) Write(p []byte) (int, error) {
	for {
		n, err := unix.Write(e.fd, p)
		switch err {
		case nil:
			return n, nil
		case unix.EINTR:
			continue
		case unix.EAGAIN:
			return 0, nil
		default:
			return 0, err
		}
	}
}

func toSockaddr(a *net.TCPAddr) (int, unix.Sockaddr, error) {
	if a.IP == nil || a.IP.IsUnspecified() && a.IP.To4() != nil {
		return unix.AF_INET, &unix.SockaddrInet4{Port: a.Port}, nil
	}
	if ip4 := a.IP.To4(); ip4 != nil {
		sa := &unix.SockaddrInet4{Port: a.Port}
		copy(sa.Addr[:], ip4)
		return unix.AF_INET, sa, nil
	}
	if ip6 := a.IP.To16(); ip6 != nil {
		sa := &unix.SockaddrInet6{Port: a.Port}
		copy(sa.Addr[:], ip6)
		if a.Zone != "" {
			if ifi, err := net.InterfaceByName(a.Zone); err == nil {
				sa.ZoneId = uint32(ifi.Index)
			} else if z, err := strconv.Atoi(a.Zone); err == nil {
				sa.ZoneId = uint32(z)
			}
		}
		return unix.AF_INET6, sa, nil
	}
	return 0, nil, fmt.Errorf("unsupported address %s", a)
}

func fromSockaddr(sa unix.Sockaddr) *net.TCPAddr {
	switch s := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: net.IP(append([]byte(nil), s.Addr[:]...)), Port: s.Port}
	case *unix.SockaddrInet6:
		return &net.TCPAddr{IP: net.IP(append([]byte(nil), s.Addr[:]...)), Port: s.Port}
	}
	return nil
}
