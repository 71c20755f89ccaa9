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

package uds

import (
	"bufio"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/ybus/api/endpoint"
	"go.uber.org/ybus/internal/framebuf"
	"go.uber.org/ybus/wire"
	"go.uber.org/ybus/ybuserrors"
	"go.uber.org/zap"
)

var errPeerClosed = ybuserrors.UnavailableErrorf("unix socket connection closed by peer")

// streamConn is one stream socket. Frames handed to send are coalesced and
// written by the writer goroutine; inbound frames reach host.OnMessage on
// the reader goroutine with from as the reply endpoint.
type streamConn struct {
	transport *Transport
	nc        net.Conn
	host      endpoint.Host
	from      endpoint.Endpoint

	queue      chan *framebuf.Buffer
	coalescer  *framebuf.Coalescer
	flushArmed atomic.Int32

	// writeMu orders taking a buffer from the coalescer with queueing it.
	writeMu sync.Mutex

	closeOnce sync.Once
	closed    chan struct{}
	onClose   func(*streamConn, error)
}

func newStreamConn(t *Transport, nc net.Conn, host endpoint.Host, from endpoint.Endpoint, onClose func(*streamConn, error)) *streamConn {
	return &streamConn{
		transport: t,
		nc:        nc,
		host:      host,
		from:      from,
		queue:     make(chan *framebuf.Buffer, t.opts.queueSize),
		coalescer: framebuf.NewCoalescer(nil, t.opts.coalesceLimit),
		closed:    make(chan struct{}),
		onClose:   onClose,
	}
}

// start runs the reader and writer goroutines. Both exit once the
// connection closes.
func (c *streamConn) start() {
	go c.writeLoop()
	go c.readLoop()
}

func (c *streamConn) send(frame []byte, flush bool) error {
	if c.isClosed() {
		return ybuserrors.UnavailableErrorf("unix socket connection to %q is closed", c.from.Address())
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	buf := c.coalescer.Add(frame, flush)
	if buf == nil {
		c.armFlush()
		return nil
	}
	return c.enqueue(buf)
}

func (c *streamConn) enqueue(buf *framebuf.Buffer) error {
	select {
	case c.queue <- buf:
		return nil
	case <-c.closed:
		buf.Release()
		return ybuserrors.UnavailableErrorf("unix socket connection to %q is closed", c.from.Address())
	default:
		buf.Release()
		c.transport.observer.incQueueFull()
		return ybuserrors.UnavailableErrorf("unix socket connection to %q has a full write queue", c.from.Address())
	}
}

func (c *streamConn) armFlush() {
	interval := c.transport.opts.flushInterval
	if interval <= 0 || !c.flushArmed.CAS(0, 1) {
		return
	}
	time.AfterFunc(interval, func() {
		c.writeMu.Lock()
		defer c.writeMu.Unlock()

		c.flushArmed.Store(0)
		buf := c.coalescer.Flush()
		if buf == nil {
			return
		}
		frames := buf.Frames()
		if err := c.enqueue(buf); err != nil {
			c.transport.observer.addDropped(frames)
			c.transport.logger().Warn("dropping frames held for flush",
				zap.String("address", c.from.Address()),
				zap.Int("frames", frames),
				zap.Error(err))
		}
	})
}

func (c *streamConn) writeLoop() {
	for {
		select {
		case buf := <-c.queue:
			err := c.write(buf.Bytes())
			buf.Release()
			if err != nil {
				c.transport.observer.incWriteErrors()
				c.close(ybuserrors.Wrap(ybuserrors.CodeUnavailable, err))
				return
			}
		case <-c.closed:
			c.coalescer.Discard()
			for {
				select {
				case buf := <-c.queue:
					buf.Release()
				default:
					return
				}
			}
		}
	}
}

func (c *streamConn) write(b []byte) error {
	if timeout := c.transport.opts.writeTimeout; timeout > 0 {
		if err := c.nc.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return err
		}
	}
	_, err := c.nc.Write(b)
	return err
}

func (c *streamConn) readLoop() {
	fr := wire.NewFrameReader(bufio.NewReader(c.nc))
	for {
		frame, err := fr.Next()
		if err != nil {
			c.close(c.readError(err))
			return
		}
		c.host.OnMessage(frame, c.from)
	}
}

// readError classifies why reading stopped. A stream cannot recover from a
// malformed frame, so those end the connection too.
func (c *streamConn) readError(err error) error {
	switch {
	case c.isClosed():
		return nil
	case err == io.EOF:
		return errPeerClosed
	case errors.Is(err, wire.ErrMalformed):
		c.transport.observer.incMalformed()
		c.transport.logger().Warn("closing unix socket connection after malformed frame",
			zap.String("address", c.from.Address()), zap.Error(err))
		return err
	default:
		return ybuserrors.Wrap(ybuserrors.CodeUnavailable, err)
	}
}

// close shuts the socket and reports err to onClose once. A nil err means
// the connection was closed locally.
func (c *streamConn) close(err error) {
	c.closeOnce.Do(func() {
		close(c.closed)
		if cerr := c.nc.Close(); cerr != nil {
			c.transport.logger().Debug("error closing unix socket",
				zap.String("address", c.from.Address()), zap.Error(cerr))
		}
		c.onClose(c, err)
	})
}

func (c *streamConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}
