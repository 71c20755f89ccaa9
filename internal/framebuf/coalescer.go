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

package framebuf

import "sync"

// Coalescer accumulates unflushed frames for one endpoint. It is safe for
// concurrent use.
type Coalescer struct {
	pool  *Pool
	limit int

	mu      sync.Mutex
	pending *Buffer
}

// NewCoalescer returns a Coalescer that hands out its buffer once limit bytes
// are pending, regardless of flush. A limit <= 0 only hands out on flush.
func NewCoalescer(pool *Pool, limit int) *Coalescer {
	if pool == nil {
		pool = _pool
	}
	return &Coalescer{pool: pool, limit: limit}
}

// Add buffers frame. When flush is set, or the pending bytes reach the
// limit, the pending buffer is returned and the caller owns it; otherwise
// Add returns nil.
func (c *Coalescer) Add(frame []byte, flush bool) *Buffer {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending == nil {
		c.pending = c.pool.Get()
	}
	c.pending.Append(frame)
	if !flush && (c.limit <= 0 || c.pending.Len() < c.limit) {
		return nil
	}
	b := c.pending
	c.pending = nil
	return b
}

// Flush returns the pending buffer, or nil if nothing is pending.
func (c *Coalescer) Flush() *Buffer {
	c.mu.Lock()
	defer c.mu.Unlock()

	b := c.pending
	c.pending = nil
	return b
}

// Pending reports whether frames are waiting for a flush.
func (c *Coalescer) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending != nil
}

// Discard releases anything pending.
func (c *Coalescer) Discard() {
	if b := c.Flush(); b != nil {
		b.Release()
	}
}
