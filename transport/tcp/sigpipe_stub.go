//go:build !darwin && !freebsd && !netbsd && !openbsd && !dragonfly

// File: transport/tcp/sigpipe_stub.go
// Author: momentics <momentics@gmail.com>

package tcp

// setNoSigpipeIfPossible is a no-op where SO_NOSIGPIPE does not exist
// (Linux avoids SIGPIPE per-write with MSG_NOSIGNAL instead).
func setNoSigpipeIfPossible(fd int) error {
	return nil
}
