// Package pool
// Author: momentics <momentics@gmail.com>
//
// Sized read-buffer pooling for hioload-netcore transports. Buffers handed
// to transport reads are recycled through a sync.Pool to keep the steady
// state allocation-free.
package pool
