// Copyright (c) Wirebound
// SPDX-License-Identifier: Apache-2.0

package pool

import "testing"

func TestGetReturnsEmptyBuffer(t *testing.T) {
	p := New(128)

	buf := p.Get()
	if len(buf) != 0 {
		t.Errorf("len = %d, want 0", len(buf))
	}
	if cap(buf) != 128 {
		t.Errorf("cap = %d, want 128", cap(buf))
	}
}

func TestDefaultSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		p := New(size)
		if got := cap(p.Get()); got != defaultBufferSize {
			t.Errorf("New(%d): cap = %d, want %d", size, got, defaultBufferSize)
		}
	}
}

func TestPutPreservesGrownCapacity(t *testing.T) {
	p := New(16)

	buf := p.Get()
	buf = append(buf, make([]byte, 1024)...)
	p.Put(buf)

	// sync.Pool gives no reuse guarantee, but the returned buffer must
	// come back empty regardless of which one we get.
	got := p.Get()
	if len(got) != 0 {
		t.Errorf("reused buffer len = %d, want 0", len(got))
	}
}

func TestPutDropsOversized(t *testing.T) {
	p := New(16)

	huge := make([]byte, 0, maxPooledSize+1)
	p.Put(huge) // must not panic; buffer is discarded
}
