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

// Package inproc implements endpoints that connect within one process
// through a shared Transport. Every Transport is its own namespace of
// addresses.
//
//	t := inproc.NewTransport()
//	p := proxy.New(host, proxy.Transport(t))
//
// Frames are delivered asynchronously, one goroutine per direction of each
// connection, in the order they were sent.
package inproc

import (
	"sync"
	"time"

	"go.uber.org/net/metrics"
	backoffapi "go.uber.org/ybus/api/backoff"
	"go.uber.org/ybus/api/endpoint"
	"go.uber.org/ybus/internal/backoff"
	"go.uber.org/ybus/ybuserrors"
	"go.uber.org/zap"
)

const (
	defaultQueueSize     = 1024
	defaultFlushInterval = 5 * time.Millisecond
	defaultCoalesceLimit = 64 * 1024
)

// TransportOption customizes a Transport.
type TransportOption func(*transportOptions)

type transportOptions struct {
	logger        *zap.Logger
	meter         *metrics.Scope
	queueSize     int
	flushInterval time.Duration
	coalesceLimit int
	backoff       backoffapi.Strategy
}

func newTransportOptions() transportOptions {
	return transportOptions{
		logger:        zap.NewNop(),
		queueSize:     defaultQueueSize,
		flushInterval: defaultFlushInterval,
		coalesceLimit: defaultCoalesceLimit,
		backoff:       backoff.DefaultExponential,
	}
}

// Logger sets the logger for connection events.
func Logger(logger *zap.Logger) TransportOption {
	return func(o *transportOptions) {
		o.logger = logger
	}
}

// Meter sets the scope for transport metrics. By default the transport
// registers them with a private registry.
func Meter(meter *metrics.Scope) TransportOption {
	return func(o *transportOptions) {
		o.meter = meter
	}
}

// QueueSize bounds the number of pending writes on each direction of a
// connection. Send fails with an unavailable error when the queue is full.
func QueueSize(n int) TransportOption {
	return func(o *transportOptions) {
		o.queueSize = n
	}
}

// FlushInterval is how long unflushed frames may wait for a flush before
// they are delivered anyway. Zero holds them until the next flushed frame.
func FlushInterval(d time.Duration) TransportOption {
	return func(o *transportOptions) {
		o.flushInterval = d
	}
}

// ConnBackoff sets the strategy client endpoints use between connection
// attempts.
func ConnBackoff(s backoffapi.Strategy) TransportOption {
	return func(o *transportOptions) {
		o.backoff = s
	}
}

// Transport is a namespace of in-process addresses.
type Transport struct {
	opts     transportOptions
	observer *observer

	mu        sync.Mutex
	listeners map[string]*serverEndpoint
}

var _ endpoint.Transport = (*Transport)(nil)

// NewTransport returns a new Transport.
func NewTransport(opts ...TransportOption) *Transport {
	options := newTransportOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.queueSize <= 0 {
		options.queueSize = defaultQueueSize
	}
	if options.meter == nil {
		options.meter = metrics.New().Scope()
	}
	return &Transport{
		opts:      options,
		observer:  newObserver(options.meter, options.logger),
		listeners: make(map[string]*serverEndpoint),
	}
}

// NewClientEndpoint returns an endpoint that connects to the server endpoint
// listening on addr, and reconnects whenever that connection ends.
func (t *Transport) NewClientEndpoint(addr string, reliable bool, host endpoint.Host) (endpoint.Endpoint, error) {
	if host == nil {
		return nil, ybuserrors.InvalidArgumentErrorf("inproc client endpoint %q requires a host", addr)
	}
	return newClientEndpoint(t, addr, reliable, host), nil
}

// NewServerEndpoint returns an endpoint that accepts connections on addr.
func (t *Transport) NewServerEndpoint(addr string, reliable bool, host endpoint.Host) (endpoint.Endpoint, error) {
	if host == nil {
		return nil, ybuserrors.InvalidArgumentErrorf("inproc server endpoint %q requires a host", addr)
	}
	return newServerEndpoint(t, addr, reliable, host), nil
}

// Listening reports whether a server endpoint is running on addr.
func (t *Transport) Listening(addr string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.listeners[addr]
	return ok
}

func (t *Transport) listen(s *serverEndpoint) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.listeners[s.addr]; ok {
		return ybuserrors.UnavailableErrorf("inproc address %q is already in use", s.addr)
	}
	t.listeners[s.addr] = s
	return nil
}

func (t *Transport) unlisten(s *serverEndpoint) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.listeners[s.addr] == s {
		delete(t.listeners, s.addr)
	}
}

func (t *Transport) dial(c *clientEndpoint) (*conn, error) {
	t.mu.Lock()
	s, ok := t.listeners[c.addr]
	t.mu.Unlock()

	if !ok {
		return nil, ybuserrors.UnavailableErrorf("nothing is listening on inproc address %q", c.addr)
	}
	return s.accept(c)
}
