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

	"go.uber.org/ybus/api/endpoint"
	"go.uber.org/ybus/pkg/lifecycle"
	"go.uber.org/ybus/ybuserrors"
	"go.uber.org/zap"
)

type serverEndpoint struct {
	transport *Transport
	addr      string
	reliable  bool
	host      endpoint.Host
	once      *lifecycle.Once

	mu    sync.Mutex
	conns map[*acceptedEndpoint]*conn
}

var _ endpoint.Endpoint = (*serverEndpoint)(nil)

func newServerEndpoint(t *Transport, addr string, reliable bool, host endpoint.Host) *serverEndpoint {
	return &serverEndpoint{
		transport: t,
		addr:      addr,
		reliable:  reliable,
		host:      host,
		once:      lifecycle.NewOnce(),
		conns:     make(map[*acceptedEndpoint]*conn),
	}
}

func (s *serverEndpoint) Start() error {
	return s.once.Start(nil, func() error {
		return s.transport.listen(s)
	})
}

func (s *serverEndpoint) Stop() error {
	return s.once.Stop(func() error {
		s.transport.unlisten(s)

		s.mu.Lock()
		conns := make([]*conn, 0, len(s.conns))
		for _, cn := range s.conns {
			conns = append(conns, cn)
		}
		s.mu.Unlock()

		for _, cn := range conns {
			cn.close(false)
		}
		return nil
	})
}

func (s *serverEndpoint) IsRunning() bool { return s.once.IsRunning() }

func (s *serverEndpoint) Address() string { return s.addr }

func (s *serverEndpoint) IsReliable() bool { return s.reliable }

// Send on a server endpoint has no peer; replies go through the accepted
// connection passed to OnMessage.
func (s *serverEndpoint) Send([]byte, bool) error {
	return ybuserrors.InvalidArgumentErrorf("inproc server endpoint %q cannot send, reply on an accepted connection", s.addr)
}

func (s *serverEndpoint) accept(c *clientEndpoint) (*conn, error) {
	acc := &acceptedEndpoint{server: s}
	cn := &conn{client: c, accepted: acc}
	acc.conn = cn

	s.mu.Lock()
	if s.once.State() != lifecycle.Started {
		s.mu.Unlock()
		return nil, ybuserrors.UnavailableErrorf("inproc address %q is not accepting connections", s.addr)
	}
	opts := s.transport.opts
	cn.up = newLink(s.transport, s.host, acc)
	cn.down = newLink(s.transport, c.host, c)
	s.conns[acc] = cn
	s.mu.Unlock()

	opts.logger.Debug("inproc connection accepted", zap.String("address", s.addr))
	s.host.OnConnect(acc)
	return cn, nil
}

func (s *serverEndpoint) forget(acc *acceptedEndpoint) {
	s.mu.Lock()
	delete(s.conns, acc)
	s.mu.Unlock()
}

// acceptedEndpoint is the server side of one connection.
type acceptedEndpoint struct {
	server *serverEndpoint
	conn   *conn
}

var _ endpoint.Endpoint = (*acceptedEndpoint)(nil)

func (a *acceptedEndpoint) Start() error { return nil }

func (a *acceptedEndpoint) Stop() error {
	a.conn.close(false)
	return nil
}

func (a *acceptedEndpoint) IsRunning() bool { return !a.conn.down.isClosed() }

func (a *acceptedEndpoint) Address() string { return a.server.addr }

func (a *acceptedEndpoint) IsReliable() bool { return a.server.reliable }

func (a *acceptedEndpoint) Send(frame []byte, flush bool) error {
	return a.conn.down.send(frame, flush)
}
