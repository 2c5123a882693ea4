// File: transport/tcp/sockaddr.go
// Author: momentics <momentics@gmail.com>
//
// Target address resolution with IPv4-mapped-IPv6 dualstack handling.

package tcp

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-netcore/api"
)

// target is a resolved connect destination. IPv4 addresses carry both the
// dualstack v4-mapped-v6 form (preferred) and the plain v4 form used when
// the platform rejects a dualstack socket.
type target struct {
	sa6    *unix.SockaddrInet6
	sa4    *unix.SockaddrInet4
	saUnix *unix.SockaddrUnix
	str    string
}

// resolveTarget maps a network/address pair to a target.
func resolveTarget(network, address string) (*target, error) {
	switch network {
	case "unix":
		return &target{
			saUnix: &unix.SockaddrUnix{Name: address},
			str:    "unix:" + address,
		}, nil
	case "tcp", "tcp4", "tcp6":
	default:
		return nil, fmt.Errorf("%w: network %q", api.ErrInvalidArgument, network)
	}
	ta, err := net.ResolveTCPAddr(network, address)
	if err != nil {
		return nil, fmt.Errorf("resolve %s %q: %w", network, address, err)
	}
	ip := ta.IP
	if ip == nil {
		ip = net.IPv6loopback
	}
	t := &target{str: ta.String()}
	if ip4 := ip.To4(); ip4 != nil {
		// Use dualstack sockets where available.
		var sa4 unix.SockaddrInet4
		copy(sa4.Addr[:], ip4)
		sa4.Port = ta.Port
		t.sa4 = &sa4

		var sa6 unix.SockaddrInet6
		copy(sa6.Addr[:], ip.To16()) // ::ffff:a.b.c.d
		sa6.Port = ta.Port
		t.sa6 = &sa6
		return t, nil
	}
	var sa6 unix.SockaddrInet6
	copy(sa6.Addr[:], ip.To16())
	sa6.Port = ta.Port
	if ta.Zone != "" {
		ifi, err := net.InterfaceByName(ta.Zone)
		if err == nil {
			sa6.ZoneId = uint32(ifi.Index)
		}
	}
	t.sa6 = &sa6
	return t, nil
}

// openSocket creates a stream socket for the target, preferring an IPv6
// dualstack socket and mapping the address back to IPv4 when only an
// AF_INET socket can be had.
func openSocket(t *target) (int, unix.Sockaddr, error) {
	if t.saUnix != nil {
		fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
		if err != nil {
			return -1, nil, fmt.Errorf("socket(AF_UNIX): %w", err)
		}
		return fd, t.saUnix, nil
	}
	fd, err := unix.Socket(unix.AF_INET6, unix.SOCK_STREAM, 0)
	if err == nil {
		// Dualstack: accept v4-mapped peers on the same socket.
		_ = unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, 0)
		return fd, t.sa6, nil
	}
	if t.sa4 == nil {
		return -1, nil, fmt.Errorf("socket(AF_INET6): %w", err)
	}
	// Platform rejected dualstack; fall back to a v4-only socket with the
	// address mapped back to its IPv4 form.
	fd, err = unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, nil, fmt.Errorf("socket(AF_INET): %w", err)
	}
	return fd, t.sa4, nil
}
