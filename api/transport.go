// File: api/transport.go
// Author: momentics <momentics@gmail.com>
//
// Transport socket abstraction for connections established through the
// async connector machinery.

package api

// Transport abstracts an established full-duplex byte stream layered above
// a connected, non-blocking socket.
type Transport interface {
	// Read reads into a preallocated buffer. Returns ErrWouldBlock when the
	// socket has no data; callers re-arm read interest and retry.
	Read(p []byte) (n int, err error)

	// Write writes buffer contents into the connection. Short writes are
	// reported via n; ErrWouldBlock means the kernel send buffer is full.
	Write(p []byte) (n int, err error)

	// Close shuts down the connection and releases the descriptor.
	Close() error

	// RawFD returns the underlying OS-level file descriptor.
	RawFD() uintptr

	// Peer returns a human-readable peer address string.
	Peer() string
}
