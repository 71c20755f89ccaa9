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

package inproc

import (
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/ybus/api/endpoint"
	"go.uber.org/ybus/internal/framebuf"
	"go.uber.org/ybus/ybuserrors"
	"go.uber.org/zap"
)

// link is one direction of a connection. Frames handed to send reach
// to.OnMessage on the link's own goroutine, with from as the reply
// endpoint.
type link struct {
	transport *Transport
	to        endpoint.Host
	from      endpoint.Endpoint

	queue         chan *framebuf.Buffer
	coalescer     *framebuf.Coalescer
	flushInterval time.Duration
	flushArmed    atomic.Int32

	// writeMu orders taking a buffer from the coalescer with queueing it.
	writeMu sync.Mutex

	closeOnce sync.Once
	closed    chan struct{}
}

func newLink(t *Transport, to endpoint.Host, from endpoint.Endpoint) *link {
	opts := t.opts
	l := &link{
		transport:     t,
		to:            to,
		from:          from,
		queue:         make(chan *framebuf.Buffer, opts.queueSize),
		coalescer:     framebuf.NewCoalescer(nil, opts.coalesceLimit),
		flushInterval: opts.flushInterval,
		closed:        make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *link) send(frame []byte, flush bool) error {
	select {
	case <-l.closed:
		return ybuserrors.UnavailableErrorf("inproc connection to %q is closed", l.from.Address())
	default:
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	buf := l.coalescer.Add(frame, flush)
	if buf == nil {
		l.armFlush()
		return nil
	}
	return l.enqueue(buf)
}

func (l *link) enqueue(buf *framebuf.Buffer) error {
	select {
	case l.queue <- buf:
		return nil
	case <-l.closed:
		buf.Release()
		return ybuserrors.UnavailableErrorf("inproc connection to %q is closed", l.from.Address())
	default:
		buf.Release()
		l.transport.observer.incQueueFull()
		return ybuserrors.UnavailableErrorf("inproc connection to %q has a full write queue", l.from.Address())
	}
}

func (l *link) armFlush() {
	if l.flushInterval <= 0 || !l.flushArmed.CAS(0, 1) {
		return
	}
	time.AfterFunc(l.flushInterval, func() {
		l.writeMu.Lock()
		defer l.writeMu.Unlock()

		l.flushArmed.Store(0)
		buf := l.coalescer.Flush()
		if buf == nil {
			return
		}
		frames := buf.Frames()
		if err := l.enqueue(buf); err != nil {
			l.transport.observer.addDropped(frames)
			l.transport.opts.logger.Warn("dropping frames held for flush",
				zap.String("address", l.from.Address()),
				zap.Int("frames", frames),
				zap.Error(err))
		}
	})
}

func (l *link) run() {
	for {
		select {
		case buf := <-l.queue:
			buf.Each(func(frame []byte) {
				l.to.OnMessage(frame, l.from)
			})
			buf.Release()
		case <-l.closed:
			l.coalescer.Discard()
			return
		}
	}
}

func (l *link) close() {
	l.closeOnce.Do(func() { close(l.closed) })
}

func (l *link) isClosed() bool {
	select {
	case <-l.closed:
		return true
	default:
		return false
	}
}
