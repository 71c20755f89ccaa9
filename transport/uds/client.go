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
	"net"
	"sync"
	"time"

	"go.uber.org/ybus/api/endpoint"
	"go.uber.org/ybus/pkg/lifecycle"
	"go.uber.org/ybus/ybuserrors"
	"go.uber.org/zap"
)

// streamClient keeps one stream connection to addr alive.
type streamClient struct {
	transport *Transport
	addr      string
	host      endpoint.Host
	once      *lifecycle.Once

	mu   sync.Mutex
	conn *streamConn

	changed chan struct{}
	timer   *time.Timer
	wg      sync.WaitGroup
}

var _ endpoint.Endpoint = (*streamClient)(nil)

func newStreamClient(t *Transport, addr string, host endpoint.Host) *streamClient {
	// A defused timer for the reconnect loop.
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}

	return &streamClient{
		transport: t,
		addr:      addr,
		host:      host,
		once:      lifecycle.NewOnce(),
		changed:   make(chan struct{}, 1),
		timer:     timer,
	}
}

func (c *streamClient) Start() error {
	return c.once.Start(nil, func() error {
		if err := c.dial(); err != nil {
			c.transport.logger().Debug("unix socket endpoint not connected yet",
				zap.String("address", c.addr), zap.Error(err))
		}
		c.wg.Add(1)
		go c.maintainConn()
		return nil
	})
}

// Stop closes the connection. It does not wait for the reader goroutine,
// so it may be called from Host callbacks other than OnConnect.
func (c *streamClient) Stop() error {
	return c.once.Stop(func() error {
		// The reconnect loop may still be dialing; close whatever it left.
		c.wg.Wait()

		c.mu.Lock()
		sc := c.conn
		c.mu.Unlock()

		if sc != nil {
			sc.close(nil)
		}
		return nil
	})
}

func (c *streamClient) IsRunning() bool { return c.once.IsRunning() }

func (c *streamClient) Address() string { return c.addr }

func (c *streamClient) IsReliable() bool { return true }

func (c *streamClient) Send(frame []byte, flush bool) error {
	c.mu.Lock()
	sc := c.conn
	c.mu.Unlock()

	if sc == nil {
		return ybuserrors.UnavailableErrorf("unix socket endpoint %q is not connected", c.addr)
	}
	return sc.send(frame, flush)
}

func (c *streamClient) connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *streamClient) dial() error {
	nc, err := net.DialTimeout(_streamNetwork, c.addr, c.transport.opts.dialTimeout)
	if err != nil {
		c.transport.observer.incDialFailures()
		return ybuserrors.Wrap(ybuserrors.CodeUnavailable, err)
	}

	sc := newStreamConn(c.transport, nc, c.host, c, c.lost)
	c.mu.Lock()
	c.conn = sc
	c.mu.Unlock()

	c.transport.observer.connected(_sideDial)
	c.transport.logger().Debug("unix socket endpoint connected", zap.String("address", c.addr))
	c.host.OnConnect(c)
	sc.start()
	return nil
}

// lost forgets sc, tells the host and wakes up the reconnect loop.
func (c *streamClient) lost(sc *streamConn, err error) {
	c.mu.Lock()
	if c.conn == sc {
		c.conn = nil
	}
	c.mu.Unlock()

	c.transport.logger().Debug("unix socket connection closed",
		zap.String("address", c.addr), zap.Error(err))
	c.host.OnDisconnect(c, err)

	select {
	case c.changed <- struct{}{}:
	default:
	}
}

// maintainConn keeps the endpoint connected until it stops.
func (c *streamClient) maintainConn() {
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
func (c *streamClient) waitForChange() bool {
	select {
	case <-c.changed:
		return true
	case <-c.once.Stopping():
		return false
	}
}

// sleep reports whether it waited the whole delay before the endpoint began
// stopping.
func (c *streamClient) sleep(delay time.Duration) bool {
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

// datagramClient sends one datagram per frame to addr. Datagram channels
// are one way; flush has no effect.
type datagramClient struct {
	transport *Transport
	addr      string
	host      endpoint.Host
	once      *lifecycle.Once

	mu   sync.Mutex
	conn *net.UnixConn
}

var _ endpoint.Endpoint = (*datagramClient)(nil)

func newDatagramClient(t *Transport, addr string, host endpoint.Host) *datagramClient {
	return &datagramClient{
		transport: t,
		addr:      addr,
		host:      host,
		once:      lifecycle.NewOnce(),
	}
}

// Start tries to reach the socket once. Sends retry if it is not bound
// yet.
func (c *datagramClient) Start() error {
	return c.once.Start(nil, func() error {
		if _, err := c.connect(); err != nil {
			c.transport.logger().Debug("unix datagram endpoint not connected yet",
				zap.String("address", c.addr), zap.Error(err))
		}
		return nil
	})
}

func (c *datagramClient) Stop() error {
	return c.once.Stop(func() error {
		c.disconnect(nil)
		return nil
	})
}

func (c *datagramClient) IsRunning() bool { return c.once.IsRunning() }

func (c *datagramClient) Address() string { return c.addr }

func (c *datagramClient) IsReliable() bool { return false }

func (c *datagramClient) Send(frame []byte, _ bool) error {
	if !c.once.IsRunning() {
		return ybuserrors.UnavailableErrorf("unix datagram endpoint %q is not running", c.addr)
	}
	uc, err := c.connect()
	if err != nil {
		return err
	}
	if _, err := uc.Write(frame); err != nil {
		c.transport.observer.incWriteErrors()
		err = ybuserrors.Wrap(ybuserrors.CodeUnavailable, err)
		c.disconnect(err)
		return err
	}
	return nil
}

// connect returns the socket, dialing it if needed.
func (c *datagramClient) connect() (*net.UnixConn, error) {
	c.mu.Lock()
	if c.conn != nil {
		uc := c.conn
		c.mu.Unlock()
		return uc, nil
	}

	uc, err := net.DialUnix(_datagramNetwork, nil, &net.UnixAddr{Name: c.addr, Net: _datagramNetwork})
	if err != nil {
		c.mu.Unlock()
		c.transport.observer.incDialFailures()
		return nil, ybuserrors.Wrap(ybuserrors.CodeUnavailable, err)
	}
	c.conn = uc
	c.mu.Unlock()

	c.host.OnConnect(c)
	return uc, nil
}

func (c *datagramClient) disconnect(err error) {
	c.mu.Lock()
	uc := c.conn
	c.conn = nil
	c.mu.Unlock()

	if uc == nil {
		return
	}
	uc.Close()
	c.host.OnDisconnect(c, err)
}
