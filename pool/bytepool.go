// File: pool/bytepool.go
// Author: momentics <momentics@gmail.com>

package pool

import "sync"

// DefaultReadSliceSize is the read buffer size transports request when the
// caller does not specify one.
const DefaultReadSliceSize = 8192

// BytePool recycles fixed-size byte buffers.
type BytePool struct {
	size int
	p    sync.Pool
}

// NewBytePool creates a pool of size-byte buffers.
func NewBytePool(size int) *BytePool {
	if size <= 0 {
		size = DefaultReadSliceSize
	}
	bp := &BytePool{size: size}
	bp.p.New = func() any {
		return make([]byte, size)
	}
	return bp
}

// Size returns the buffer size this pool vends.
func (b *BytePool) Size() int { return b.size }

// GetBuffer returns a buffer from the pool.
func (b *BytePool) GetBuffer() []byte {
	return b.p.Get().([]byte)
}

// PutBuffer returns a buffer to the pool. Buffers of a foreign size are
// dropped for the GC.
func (b *BytePool) PutBuffer(buf []byte) {
	if cap(buf) != b.size {
		return
	}
	b.p.Put(buf[:b.size])
}
