// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package transport

import (
	"io"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-netcore/api"
	"github.com/momentics/hioload-netcore/poller"
	"github.com/momentics/hioload-netcore/pool"
)

// Conn implements api.Transport over a connected non-blocking descriptor.
type Conn struct {
	fd     *poller.FD
	peer   string
	bp     *pool.BytePool
	closed atomic.Bool
}

// NewConn wraps an established descriptor plus a human-readable peer string
// into a transport. bp supplies ReadChunk buffers; nil selects a pool of
// DefaultReadSliceSize buffers.
func NewConn(fd *poller.FD, peer string, bp *pool.BytePool) *Conn {
	if bp == nil {
		bp = pool.NewBytePool(pool.DefaultReadSliceSize)
	}
	return &Conn{fd: fd, peer: peer, bp: bp}
}

// FD exposes the underlying descriptor for readiness registration.
func (c *Conn) FD() *poller.FD { return c.fd }

// Read reads into a preallocated buffer. io.EOF signals an orderly peer
// close, api.ErrWouldBlock an empty socket buffer.
func (c *Conn) Read(p []byte) (int, error) {
	if c.closed.Load() {
		return 0, api.ErrTransportClosed
	}
	for {
		n, err := unix.Read(c.fd.Raw(), p)
		if err == unix.EINTR {
			continue
		}
		if err == unix.EAGAIN {
			return 0, api.ErrWouldBlock
		}
		if err != nil {
			return 0, err
		}
		if n == 0 && len(p) > 0 {
			return 0, io.EOF
		}
		return n, nil
	}
}

// ReadChunk reads into a pooled buffer and returns it with a release
// function. The chunk is valid until release runs.
func (c *Conn) ReadChunk() ([]byte, func(), error) {
	buf := c.bp.GetBuffer()
	n, err := c.Read(buf)
	if err != nil {
		c.bp.PutBuffer(buf)
		return nil, nil, err
	}
	release := func() { c.bp.PutBuffer(buf) }
	return buf[:n], release, nil
}

// Write writes buffer contents into the connection. Partial progress is
// reported through n alongside api.ErrWouldBlock.
func (c *Conn) Write(p []byte) (int, error) {
	if c.closed.Load() {
		return 0, api.ErrTransportClosed
	}
	written := 0
	for written < len(p) {
		n, err := unix.Write(c.fd.Raw(), p[written:])
		if err == unix.EINTR {
			continue
		}
		if err == unix.EAGAIN {
			return written, api.ErrWouldBlock
		}
		if err != nil {
			return written, err
		}
		written += n
	}
	return written, nil
}

// Close shuts down the connection and orphans the descriptor. Safe to call
// more than once.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.fd.Orphan(nil, "transport_close")
	return nil
}

// RawFD returns the underlying OS-level file descriptor.
func (c *Conn) RawFD() uintptr { return uintptr(c.fd.Raw()) }

// Peer returns the human-readable peer address string.
func (c *Conn) Peer() string { return c.peer }
