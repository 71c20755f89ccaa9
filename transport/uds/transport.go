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

// Package uds implements endpoints over Unix domain sockets. Reliable
// endpoints use stream sockets; unreliable endpoints use datagram sockets
// and carry one frame per datagram.
//
//	p := proxy.New(host, proxy.Transport(uds.NewTransport()))
//
// Every stream connection has a reader goroutine delivering frames to the
// Host and a writer goroutine draining coalesced writes.
package uds

import (
	"net"
	"os"
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
	defaultDialTimeout   = time.Second
	defaultCoalesceLimit = 64 * 1024

	// maxDatagramSize bounds what a datagram endpoint reads at once.
	maxDatagramSize = 64 * 1024

	_streamNetwork   = "unix"
	_datagramNetwork = "unixgram"
)

// TransportOption customizes a Transport.
type TransportOption func(*transportOptions)

type transportOptions struct {
	logger        *zap.Logger
	meter         *metrics.Scope
	queueSize     int
	flushInterval time.Duration
	dialTimeout   time.Duration
	writeTimeout  time.Duration
	coalesceLimit int
	backoff       backoffapi.Strategy
}

func newTransportOptions() transportOptions {
	return transportOptions{
		logger:        zap.NewNop(),
		queueSize:     defaultQueueSize,
		flushInterval: defaultFlushInterval,
		dialTimeout:   defaultDialTimeout,
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

// Meter sets the scope connection metrics are registered on. By default
// every Transport registers on a private scope.
func Meter(meter *metrics.Scope) TransportOption {
	return func(o *transportOptions) {
		o.meter = meter
	}
}

// QueueSize bounds the number of pending writes on each stream connection.
// Send fails with an unavailable error when the queue is full.
func QueueSize(n int) TransportOption {
	return func(o *transportOptions) {
		o.queueSize = n
	}
}

// FlushInterval is how long unflushed frames may wait before they are
// written anyway. Zero holds them until a flushed frame follows.
func FlushInterval(d time.Duration) TransportOption {
	return func(o *transportOptions) {
		o.flushInterval = d
	}
}

// DialTimeout bounds every connection attempt.
func DialTimeout(d time.Duration) TransportOption {
	return func(o *transportOptions) {
		o.dialTimeout = d
	}
}

// WriteTimeout bounds every socket write. A connection whose write times
// out is closed. Zero disables the deadline.
func WriteTimeout(d time.Duration) TransportOption {
	return func(o *transportOptions) {
		o.writeTimeout = d
	}
}

// ConnBackoff sets the delay between attempts to re-establish a stream
// connection.
func ConnBackoff(s backoffapi.Strategy) TransportOption {
	return func(o *transportOptions) {
		o.backoff = s
	}
}

// Transport builds Unix domain socket endpoints. Addresses are socket
// paths.
type Transport struct {
	opts     transportOptions
	observer *observer
}

var _ endpoint.Transport = (*Transport)(nil)

// NewTransport returns a new Transport.
func NewTransport(opts ...TransportOption) *Transport {
	options := newTransportOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.meter == nil {
		options.meter = metrics.New().Scope()
	}

	return &Transport{
		opts:     options,
		observer: newObserver(options.meter, options.logger),
	}
}

// NewClientEndpoint returns an endpoint that connects to the socket at
// addr. Reliable endpoints reconnect whenever their connection ends.
func (t *Transport) NewClientEndpoint(addr string, reliable bool, host endpoint.Host) (endpoint.Endpoint, error) {
	if err := validate(addr, host); err != nil {
		return nil, err
	}
	if reliable {
		return newStreamClient(t, addr, host), nil
	}
	return newDatagramClient(t, addr, host), nil
}

// NewServerEndpoint returns an endpoint that binds the socket at addr. A
// stale socket file left behind by a dead process is replaced.
func (t *Transport) NewServerEndpoint(addr string, reliable bool, host endpoint.Host) (endpoint.Endpoint, error) {
	if err := validate(addr, host); err != nil {
		return nil, err
	}
	if reliable {
		return newStreamServer(t, addr, host), nil
	}
	return newDatagramServer(t, addr, host), nil
}

func validate(addr string, host endpoint.Host) error {
	if addr == "" {
		return ybuserrors.InvalidArgumentErrorf("unix socket endpoint requires an address")
	}
	if host == nil {
		return ybuserrors.InvalidArgumentErrorf("unix socket endpoint %q requires a host", addr)
	}
	return nil
}

func (t *Transport) logger() *zap.Logger {
	return t.opts.logger
}

// claim prepares addr for binding. It fails if something still answers
// there and removes the socket file otherwise.
func (t *Transport) claim(network, addr string) error {
	info, err := os.Stat(addr)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return ybuserrors.Wrap(ybuserrors.CodeUnavailable, err)
	}
	if info.Mode()&os.ModeSocket == 0 {
		return ybuserrors.InvalidArgumentErrorf("%q exists and is not a socket", addr)
	}

	if nc, err := net.DialTimeout(network, addr, t.opts.dialTimeout); err == nil {
		nc.Close()
		return ybuserrors.UnavailableErrorf("unix socket address %q is already in use", addr)
	}

	t.logger().Debug("removing stale socket", zap.String("address", addr))
	if err := os.Remove(addr); err != nil && !os.IsNotExist(err) {
		return ybuserrors.Wrap(ybuserrors.CodeUnavailable, err)
	}
	return nil
}
