// Copyright (c) 2026 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package framebuf pools the buffers transports use to coalesce frames that
// were sent without a flush.
package framebuf

import (
	"flag"
	"sync"
)

var _pool = NewPool()

func init() {
	// Unit tests get use-after-free detection.
	if flag.Lookup("test.v") != nil {
		_pool = NewPool(DetectUseAfterFreeForTests())
	}
}

// Option configures a Pool.
type Option func(*Pool)

// DetectUseAfterFreeForTests makes released buffers unusable instead of
// returning them to the pool.
func DetectUseAfterFreeForTests() Option {
	return func(p *Pool) {
		p.detectUseAfterFree = true
	}
}

// Pool is a pool of frame buffers.
type Pool struct {
	detectUseAfterFree bool
	pool               sync.Pool
}

// NewPool returns a new Pool.
func NewPool(opts ...Option) *Pool {
	p := &Pool{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Get returns an empty buffer.
func (p *Pool) Get() *Buffer {
	if b, ok := p.pool.Get().(*Buffer); ok {
		b.released = false
		return b
	}
	return &Buffer{pool: p}
}

// Get returns an empty buffer from the default pool.
func Get() *Buffer {
	return _pool.Get()
}

// Buffer holds one or more complete frames back to back.
type Buffer struct {
	pool *Pool

	// version changes on every operation so overlapping operations panic.
	version  uint
	released bool

	data []byte
	ends []int
}

func (b *Buffer) preOp() uint {
	if b.released {
		panic("use-after-free of frame buffer")
	}
	b.version++
	return b.version
}

func (b *Buffer) postOp(v uint) {
	if b.released || v != b.version {
		panic("concurrent use of frame buffer")
	}
	b.version++
}

// Append copies frame into the buffer.
func (b *Buffer) Append(frame []byte) {
	v := b.preOp()
	b.data = append(b.data, frame...)
	b.ends = append(b.ends, len(b.data))
	b.postOp(v)
}

// Len is the number of buffered bytes.
func (b *Buffer) Len() int {
	v := b.preOp()
	n := len(b.data)
	b.postOp(v)
	return n
}

// Frames is the number of buffered frames.
func (b *Buffer) Frames() int {
	v := b.preOp()
	n := len(b.ends)
	b.postOp(v)
	return n
}

// Bytes returns the buffered frames back to back. The slice is only valid
// until Release.
func (b *Buffer) Bytes() []byte {
	v := b.preOp()
	data := b.data
	b.postOp(v)
	return data
}

// Each calls f with every buffered frame in order. The frames are only valid
// until Release.
func (b *Buffer) Each(f func(frame []byte)) {
	v := b.preOp()
	start := 0
	for _, end := range b.ends {
		f(b.data[start:end:end])
		start = end
	}
	b.postOp(v)
}

// Release returns the buffer to its pool. The buffer must not be used
// afterwards.
func (b *Buffer) Release() {
	b.postOp(b.preOp())

	if b.pool.detectUseAfterFree {
		for i := range b.data {
			b.data[i] = 0xFF
		}
		b.released = true
		b.data = nil
		b.ends = nil
		return
	}

	b.data = b.data[:0]
	b.ends = b.ends[:0]
	b.released = true
	b.pool.pool.Put(b)
}
