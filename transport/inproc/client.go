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

	"go.uber.org/ybus/api/endpoint"
	"go.uber.org/ybus/pkg/lifecycle"
	"go.uber.org/ybus/ybuserrors"
	"go.uber.org/zap"
)

type clientEndpoint struct {
	transport *Transport
	addr      string
	reliable  bool
	host      endpoint.Host
	once      *lifecycle.Once

	mu   sync.Mutex
	conn *conn

	changed chan struct{}
	timer   *time.Timer
	wg      sync.WaitGroup
}

var _ endpoint.Endpoint = (*clientEndpoint)(nil)

func newClientEndpoint(t *Transport, addr string, reliable bool, host endpoint.Host) *clientEndpoint {
	// A defused timer for the reconnect loop.
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}

	return &clientEndpoint{
		transport: t,
		addr:      addr,
		reliable:  reliable,
		host:      host,
		once:      lifecycle.NewOnce(),
		changed:   make(chan struct{}, 1),
		timer:     timer,
	}
}

func (c *clientEndpoint) logger() *zap.Logger {
	return c.transport.opts.logger
}

func (c *clientEndpoint) Start() error {
	return c.once.Start(nil, func() error {
		if err := c.dial(); err != nil {
			c.logger().Debug("inproc endpoint not connected yet",
				zap.String("address", c.addr), zap.Error(err))
		}
		c.wg.Add(1)
		go c.maintainConn()
		return nil
	})
}

func (c *clientEndpoint) Stop() error {
	return c.once.Stop(func() error {
		// The reconnect loop may still be dialing; close whatever it left.
		c.wg.Wait()

		c.mu.Lock()
		cn := c.conn
		c.mu.Unlock()

		if cn != nil {
			cn.close(true)
		}
		return nil
	})
}

func (c *clientEndpoint) IsRunning() bool { return c.once.IsRunning() }

func (c *clientEndpoint) Address() string { return c.addr }

func (c *clientEndpoint) IsReliable() bool { return c.reliable }

func (c *clientEndpoint) Send(frame []byte, flush bool) error {
	c.mu.Lock()
	cn := c.conn
	c.mu.Unlock()

	if cn == nil {
		return ybuserrors.UnavailableErrorf("inproc endpoint %q is not connected", c.addr)
	}
	return cn.up.send(frame, flush)
}

func (c *clientEndpoint) connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *clientEndpoint) dial() error {
	cn, err := c.transport.dial(c)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = cn
	c.mu.Unlock()

	c.logger().Debug("inproc endpoint connected", zap.String("address", c.addr))
	c.host.OnConnect(c)
	return nil
}

// lost forgets cn and wakes up the reconnect loop.
func (c *clientEndpoint) lost(cn *conn) {
	c.mu.Lock()
	if c.conn == cn {
		c.conn = nil
	}
	c.mu.Unlock()

	select {
	case c.changed <- struct{}{}:
	default:
	}
}

// maintainConn keeps the endpoint connected until it stops.
func (c *clientEndpoint) maintainConn() {
	defer c.wg.Done()

	backoff := c.transport.opts.backoff.Backoff()
	var attempts uint
	for {
		if c.connected() {
			attempts = 0
			if !c.waitForChange() {
				return
			}
			continue
		}

		if err := c.dial(); err == nil {
			continue
		}
		if !c.sleep(backoff.Duration(attempts)) {
			return
		}
		attempts++
	}
}

// waitForChange reports whether the connection changed before the endpoint
// began stopping.
func (c *clientEndpoint) waitForChange() bool {
	select {
	case <-c.changed:
		return true
	case <-c.once.Stopping():
		return false
	}
}

// sleep reports whether it waited the whole delay before the endpoint began
// stopping.
func (c *clientEndpoint) sleep(delay time.Duration) bool {
	c.timer.Reset(delay)

	select {
	case <-c.timer.C:
		return true
	case <-c.once.Stopping():
	}

	if !c.timer.Stop() {
		<-c.timer.C
	}
	return false
}
