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

package proxy

import (
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/uber-go/tally"
	backoffapi "go.uber.org/ybus/api/backoff"
	"go.uber.org/ybus/api/endpoint"
	"go.uber.org/ybus/internal/backoff"
	"go.uber.org/ybus/pkg/eventloop"
	"go.uber.org/zap"
)

const (
	// DefaultAddressPrefix is the prefix of every well-known endpoint
	// address unless AddressPrefix says otherwise.
	DefaultAddressPrefix = "/tmp/ybus"

	// DefaultRegistrationTimeout is how long the proxy waits for the daemon
	// to acknowledge a registration before it asks again.
	DefaultRegistrationTimeout = time.Second
)

// Option customizes a Proxy.
type Option func(*options)

type options struct {
	transport           endpoint.Transport
	prefix              string
	logger              *zap.Logger
	scope               tally.Scope
	tracer              opentracing.Tracer
	loop                *eventloop.Loop
	registrationTimeout time.Duration
	registrationBackoff backoffapi.Strategy
	unreliable          bool
}

func newOptions() options {
	return options{
		prefix:              DefaultAddressPrefix,
		logger:              zap.NewNop(),
		scope:               tally.NoopScope,
		tracer:              opentracing.NoopTracer{},
		registrationTimeout: DefaultRegistrationTimeout,
		registrationBackoff: backoff.DefaultExponential,
	}
}

// Transport builds the proxy's endpoints. It is required.
func Transport(t endpoint.Transport) Option {
	return func(o *options) {
		o.transport = t
	}
}

// AddressPrefix namespaces the well-known endpoint addresses.
func AddressPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// Logger sets the logger. Defaults to a no-op logger.
func Logger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Scope sets the metrics scope. Defaults to a no-op scope.
func Scope(scope tally.Scope) Option {
	return func(o *options) {
		o.scope = scope
	}
}

// Tracer sets the tracer for data sends and inbound dispatch. Defaults to a
// no-op tracer.
func Tracer(tracer opentracing.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// Loop sets the event loop returned by IO. By default the proxy makes its
// own.
func Loop(loop *eventloop.Loop) Option {
	return func(o *options) {
		o.loop = loop
	}
}

// RegistrationTimeout is how long to wait for the daemon's acknowledgement
// before registering again.
func RegistrationTimeout(d time.Duration) Option {
	return func(o *options) {
		o.registrationTimeout = d
	}
}

// RegistrationBackoff adds a growing delay to every registration retry.
func RegistrationBackoff(s backoffapi.Strategy) Option {
	return func(o *options) {
		o.registrationBackoff = s
	}
}

// Unreliable enables datagram channels: the proxy listens on its datagram
// address and opens datagram channels to local peers for sends that are not
// reliable.
func Unreliable(enabled bool) Option {
	return func(o *options) {
		o.unreliable = enabled
	}
}
