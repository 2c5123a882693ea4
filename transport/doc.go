// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package transport wraps connected descriptors into the byte-stream
// Transport abstraction returned by connectors. I/O is non-blocking: reads
// and writes report api.ErrWouldBlock and callers re-arm readiness interest
// through the underlying poller.FD.
package transport
