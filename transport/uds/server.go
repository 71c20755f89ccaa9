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
	"os"
	"sync"
	"time"

	"go.uber.org/ybus/api/endpoint"
	"go.uber.org/ybus/pkg/lifecycle"
	"go.uber.org/ybus/wire"
	"go.uber.org/ybus/ybuserrors"
	"go.uber.org/zap"
)

// _acceptRetryDelay is how long the accept loop waits after a temporary
// error.
const _acceptRetryDelay = 10 * time.Millisecond

// streamServer accepts stream connections on addr.
type streamServer struct {
	transport *Transport
	addr      string
	host      endpoint.Host
	once      *lifecycle.Once

	ln *net.UnixListener
	wg sync.WaitGroup

	mu    sync.Mutex
	conns map[*acceptedEndpoint]struct{}
}

var _ endpoint.Endpoint = (*streamServer)(nil)

func newStreamServer(t *Transport, addr string, host endpoint.Host) *streamServer {
	return &streamServer{
		transport: t,
		addr:      addr,
		host:      host,
		once:      lifecycle.NewOnce(),
		conns:     make(map[*acceptedEndpoint]struct{}),
	}
}

func (s *streamServer) Start() error {
	return s.once.Start(nil, func() error {
		if err := s.transport.claim(_streamNetwork, s.addr); err != nil {
			return err
		}
		ln, err := net.ListenUnix(_streamNetwork, &net.UnixAddr{Name: s.addr, Net: _streamNetwork})
		if err != nil {
			return ybuserrors.Wrap(ybuserrors.CodeUnavailable, err)
		}
		ln.SetUnlinkOnClose(true)
		s.ln = ln

		s.wg.Add(1)
		go s.acceptLoop()
		return nil
	})
}

// Stop closes the listener and every accepted connection. It waits for the
// accept loop but not for connection readers.
func (s *streamServer) Stop() error {
	return s.once.Stop(func() error {
		err := s.ln.Close()
		s.wg.Wait()

		s.mu.Lock()
		conns := make([]*acceptedEndpoint, 0, len(s.conns))
		for acc := range s.conns {
			conns = append(conns, acc)
		}
		s.mu.Unlock()

		for _, acc := range conns {
			acc.conn.close(nil)
		}
		if err != nil {
			return ybuserrors.Wrap(ybuserrors.CodeUnavailable, err)
		}
		return nil
	})
}

func (s *streamServer) IsRunning() bool { return s.once.IsRunning() }

func (s *streamServer) Address() string { return s.addr }

func (s *streamServer) IsReliable() bool { return true }

// Send on a server endpoint has no peer; replies go through the accepted
// connection passed to OnMessage.
func (s *streamServer) Send([]byte, bool) error {
	return ybuserrors.InvalidArgumentErrorf("unix socket server endpoint %q cannot send, reply on an accepted connection", s.addr)
}

func (s *streamServer) stopping() bool {
	select {
	case <-s.once.Stopping():
		return true
	default:
		return false
	}
}

func (s *streamServer) acceptLoop() {
	defer s.wg.Done()

	for {
		nc, err := s.ln.AcceptUnix()
		if err != nil {
			if s.stopping() {
				return
			}
			if ne, ok := err.(net.Error); ok && ne.Temporary() {
				s.transport.logger().Debug("temporary accept error", zap.String("address", s.addr), zap.Error(err))
				time.Sleep(_acceptRetryDelay)
				continue
			}
			s.transport.logger().Error("unix socket listener failed", zap.String("address", s.addr), zap.Error(err))
			return
		}
		s.accept(nc)
	}
}

func (s *streamServer) accept(nc net.Conn) {
	acc := &acceptedEndpoint{server: s}
	acc.conn = newStreamConn(s.transport, nc, s.host, acc, s.lost)

	s.mu.Lock()
	s.conns[acc] = struct{}{}
	s.mu.Unlock()

	s.transport.observer.connected(_sideAccept)
	s.transport.logger().Debug("unix socket connection accepted", zap.String("address", s.addr))
	s.host.OnConnect(acc)
	acc.conn.start()
}

func (s *streamServer) lost(sc *streamConn, err error) {
	acc := sc.from.(*acceptedEndpoint)

	s.mu.Lock()
	delete(s.conns, acc)
	s.mu.Unlock()

	s.host.OnDisconnect(acc, err)
}

// acceptedEndpoint is the server side of one stream connection.
type acceptedEndpoint struct {
	server *streamServer
	conn   *streamConn
}

var _ endpoint.Endpoint = (*acceptedEndpoint)(nil)

func (a *acceptedEndpoint) Start() error { return nil }

func (a *acceptedEndpoint) Stop() error {
	a.conn.close(nil)
	return nil
}

func (a *acceptedEndpoint) IsRunning() bool { return !a.conn.isClosed() }

func (a *acceptedEndpoint) Address() string { return a.server.addr }

func (a *acceptedEndpoint) IsReliable() bool { return true }

func (a *acceptedEndpoint) Send(frame []byte, flush bool) error {
	return a.conn.send(frame, flush)
}

// datagramServer receives datagrams on addr. Each datagram holds one or
// more whole frames, which are delivered with the server itself as the
// reply endpoint.
type datagramServer struct {
	transport *Transport
	addr      string
	host      endpoint.Host
	once      *lifecycle.Once

	pc *net.UnixConn
}

var _ endpoint.Endpoint = (*datagramServer)(nil)

func newDatagramServer(t *Transport, addr string, host endpoint.Host) *datagramServer {
	return &datagramServer{
		transport: t,
		addr:      addr,
		host:      host,
		once:      lifecycle.NewOnce(),
	}
}

func (s *datagramServer) Start() error {
	return s.once.Start(nil, func() error {
		if err := s.transport.claim(_datagramNetwork, s.addr); err != nil {
			return err
		}
		pc, err := net.ListenUnixgram(_datagramNetwork, &net.UnixAddr{Name: s.addr, Net: _datagramNetwork})
		if err != nil {
			return ybuserrors.Wrap(ybuserrors.CodeUnavailable, err)
		}
		s.pc = pc
		go s.readLoop()
		return nil
	})
}

// Stop closes and unlinks the socket without waiting for the reader.
func (s *datagramServer) Stop() error {
	return s.once.Stop(func() error {
		err := s.pc.Close()
		if rerr := os.Remove(s.addr); rerr != nil && !os.IsNotExist(rerr) && err == nil {
			err = rerr
		}
		if err != nil {
			return ybuserrors.Wrap(ybuserrors.CodeUnavailable, err)
		}
		return nil
	})
}

func (s *datagramServer) IsRunning() bool { return s.once.IsRunning() }

func (s *datagramServer) Address() string { return s.addr }

func (s *datagramServer) IsReliable() bool { return false }

func (s *datagramServer) Send([]byte, bool) error {
	return ybuserrors.InvalidArgumentErrorf("unix datagram server endpoint %q cannot send", s.addr)
}

func (s *datagramServer) readLoop() {
	buf := make([]byte, maxDatagramSize)
	for {
		n, _, err := s.pc.ReadFromUnix(buf)
		if err != nil {
			select {
			case <-s.once.Stopping():
			default:
				s.transport.logger().Error("unix datagram socket failed", zap.String("address", s.addr), zap.Error(err))
			}
			return
		}
		s.deliver(buf[:n])
	}
}

func (s *datagramServer) deliver(b []byte) {
	for len(b) > 0 {
		size, err := wire.FrameSize(b)
		if err == nil && size > len(b) {
			err = ybuserrors.InvalidArgumentErrorf("datagram holds %d of %d frame bytes", len(b), size)
		}
		if err != nil {
			s.transport.observer.incMalformed()
			s.transport.logger().Warn("dropping malformed datagram", zap.String("address", s.addr), zap.Error(err))
			return
		}
		s.host.OnMessage(b[:size], s)
		b = b[size:]
	}
}
