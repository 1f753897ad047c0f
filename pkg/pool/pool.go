// Copyright (c) Wirebound
// SPDX-License-Identifier: Apache-2.0

// Package pool provides reusable byte buffers for frame assembly.
package pool

import "sync"

// defaultBufferSize is the initial capacity of pooled buffers. Buffers
// grow on demand when a payload exceeds it and keep the larger capacity
// when returned.
const defaultBufferSize = 4096

// maxPooledSize caps the capacity of buffers accepted back into the
// pool so a single huge frame does not pin memory forever.
const maxPooledSize = 1 << 20

// BufferPool hands out zero-length byte slices with preallocated
// capacity, amortizing per-frame allocations on the encode path.
type BufferPool struct {
	size int
	pool sync.Pool
}

// New creates a buffer pool whose fresh buffers have the given capacity.
// A non-positive size selects the default.
func New(size int) *BufferPool {
	if size <= 0 {
		size = defaultBufferSize
	}

	p := &BufferPool{size: size}
	p.pool.New = func() any {
		buf := make([]byte, 0, p.size)
		return &buf
	}
	return p
}

// Get returns a zero-length buffer ready for appending.
func (p *BufferPool) Get() []byte {
	return (*(p.pool.Get().(*[]byte)))[:0]
}

// Put returns a buffer to the pool. Oversized buffers are dropped.
func (p *BufferPool) Put(buf []byte) {
	if cap(buf) > maxPooledSize {
		return
	}
	buf = buf[:0]
	p.pool.Put(&buf)
}
