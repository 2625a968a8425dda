// Copyright 2020-2021 The Mox Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package moxtypes

import "sync/atomic"

// DataChunk is a reference-counted, growable byte buffer. Go's garbage
// collector owns the underlying memory; the reference count exists so
// FrameBuffer/AudioBuffer can assert the "released when last reference
// drops" lifecycle the container and codec layers depend on for testing
// and for eagerly returning chunks to a pool.
type DataChunk struct {
	buf   []byte
	refs  *int32
	onGC  func()
}

// NewDataChunk allocates a chunk of the given size, rounded up to
// granularity (0 means no rounding).
func NewDataChunk(size, granularity int) *DataChunk {
	capSize := size
	if granularity > 1 {
		rem := size % granularity
		if rem != 0 {
			capSize = size + (granularity - rem)
		}
	}
	refs := int32(1)
	return &DataChunk{buf: make([]byte, size, capSize), refs: &refs}
}

// WrapDataChunk builds a chunk around an existing slice without copying.
func WrapDataChunk(b []byte) *DataChunk {
	refs := int32(1)
	return &DataChunk{buf: b, refs: &refs}
}

// Bytes returns the chunk's current contents.
func (d *DataChunk) Bytes() []byte { return d.buf }

// Len returns the current logical size.
func (d *DataChunk) Len() int { return len(d.buf) }

// Grow resizes the chunk to n bytes, preserving existing content.
func (d *DataChunk) Grow(n int) {
	if n <= cap(d.buf) {
		d.buf = d.buf[:n]
		return
	}
	grown := make([]byte, n)
	copy(grown, d.buf)
	d.buf = grown
}

// Retain increments the reference count and returns the same chunk, the
// way a caller hands a shared chunk to a second owner (e.g. a FrameBuffer
// attaching a codec's output buffer).
func (d *DataChunk) Retain() *DataChunk {
	atomic.AddInt32(d.refs, 1)
	return d
}

// Release decrements the reference count. When it reaches zero and an
// OnRelease callback was set, the callback runs (e.g. to return the chunk
// to a pool).
func (d *DataChunk) Release() {
	if atomic.AddInt32(d.refs, -1) == 0 && d.onGC != nil {
		d.onGC()
	}
}

// RefCount returns the current reference count, for tests.
func (d *DataChunk) RefCount() int32 { return atomic.LoadInt32(d.refs) }

// OnRelease sets a callback invoked when the last reference is released.
func (d *DataChunk) OnRelease(f func()) { d.onGC = f }
