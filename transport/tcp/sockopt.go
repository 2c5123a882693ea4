// File: transport/tcp/sockopt.go
// Author: momentics <momentics@gmail.com>
//
// Socket preparation for outbound connects.

package tcp

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// prepareSocket switches the socket into non-blocking close-on-exec mode and
// requests low-latency delivery for non-unix-domain families. Any failure
// here is a configuration failure: terminal, reported synchronously.
func prepareSocket(fd int, sa unix.Sockaddr) error {
	if err := unix.SetNonblock(fd, true); err != nil {
		return fmt.Errorf("set nonblock: %w", err)
	}
	unix.CloseOnExec(fd)
	if _, isUnix := sa.(*unix.SockaddrUnix); !isUnix {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
			return fmt.Errorf("set TCP_NODELAY: %w", err)
		}
	}
	if err := setNoSigpipeIfPossible(fd); err != nil {
		return fmt.Errorf("suppress SIGPIPE: %w", err)
	}
	return nil
}

// soError reads the pending socket error after a deferred connect resolves.
func soError(fd int) (int, error) {
	for {
		v, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
		if err == unix.EINTR {
			continue
		}
		return v, err
	}
}
