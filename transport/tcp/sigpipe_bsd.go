//go:build darwin || freebsd || netbsd || openbsd || dragonfly

// File: transport/tcp/sigpipe_bsd.go
// Author: momentics <momentics@gmail.com>

package tcp

import "golang.org/x/sys/unix"

// setNoSigpipeIfPossible disables SIGPIPE generation on the socket.
func setNoSigpipeIfPossible(fd int) error {
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_NOSIGPIPE, 1)
}
