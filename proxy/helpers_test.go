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
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
	"go.uber.org/ybus/api/endpoint"
	"go.uber.org/ybus/api/endpoint/endpointtest"
	"go.uber.org/ybus/api/routing"
	"go.uber.org/ybus/internal/backoff"
	"go.uber.org/ybus/internal/routingdaemontest"
	"go.uber.org/ybus/transport/inproc"
	"go.uber.org/ybus/wire"
)

const (
	_testPrefix  = "ybus-test"
	_waitTimeout = 2 * time.Second
	_tick        = time.Millisecond
)

type availabilityEvent struct {
	service   wire.ServiceID
	instance  wire.InstanceID
	available bool
}

// testHost is a routing.Host that records callbacks on channels.
type testHost struct {
	client       wire.ClientID
	messages     chan *wire.Message
	states       chan routing.State
	availability chan availabilityEvent
	errors       chan error
}

var _ routing.Host = (*testHost)(nil)

func newTestHost(client wire.ClientID) *testHost {
	return &testHost{
		client:       client,
		messages:     make(chan *wire.Message, 1024),
		states:       make(chan routing.State, 64),
		availability: make(chan availabilityEvent, 64),
		errors:       make(chan error, 64),
	}
}

func (h *testHost) Client() wire.ClientID { return h.client }

func (h *testHost) OnMessage(m *wire.Message) { h.messages <- m }

func (h *testHost) OnState(s routing.State) { h.states <- s }

func (h *testHost) OnAvailability(service wire.ServiceID, instance wire.InstanceID, available bool) {
	h.availability <- availabilityEvent{service, instance, available}
}

func (h *testHost) OnError(err error) { h.errors <- err }

func (h *testHost) nextMessage(t *testing.T) *wire.Message {
	t.Helper()
	select {
	case m := <-h.messages:
		return m
	case <-time.After(_waitTimeout):
		t.Fatalf("client %v: timed out waiting for a message", h.client)
	}
	return nil
}

func (h *testHost) nextState(t *testing.T) routing.State {
	t.Helper()
	select {
	case s := <-h.states:
		return s
	case <-time.After(_waitTimeout):
		t.Fatalf("client %v: timed out waiting for a state change", h.client)
	}
	return 0
}

func (h *testHost) nextError(t *testing.T) error {
	t.Helper()
	select {
	case err := <-h.errors:
		return err
	case <-time.After(_waitTimeout):
		t.Fatalf("client %v: timed out waiting for an error", h.client)
	}
	return nil
}

func (h *testHost) nextAvailability(t *testing.T) availabilityEvent {
	t.Helper()
	select {
	case a := <-h.availability:
		return a
	case <-time.After(_waitTimeout):
		t.Fatalf("client %v: timed out waiting for availability", h.client)
	}
	return availabilityEvent{}
}

func (h *testHost) assertNoMessage(t *testing.T) {
	t.Helper()
	select {
	case m := <-h.messages:
		t.Fatalf("client %v: unexpected message %+v", h.client, m)
	case <-time.After(20 * time.Millisecond):
	}
}

// bus is an in-process bus with a fake routing daemon.
type bus struct {
	t         *testing.T
	transport *inproc.Transport
	daemon    *routingdaemontest.Daemon
	apps      []*app
}

type app struct {
	proxy  *Proxy
	host   *testHost
	scope  tally.TestScope
	cancel context.CancelFunc
	done   chan struct{}
}

func newBus(t *testing.T, opts ...routingdaemontest.Option) *bus {
	connBackoff, err := backoff.NewExponential(backoff.First(time.Millisecond), backoff.Max(5*time.Millisecond))
	require.NoError(t, err)

	b := &bus{
		t:         t,
		transport: inproc.NewTransport(inproc.ConnBackoff(connBackoff)),
	}
	b.daemon = b.startDaemon(opts...)
	return b
}

func (b *bus) startDaemon(opts ...routingdaemontest.Option) *routingdaemontest.Daemon {
	d, err := routingdaemontest.New(b.transport, _testPrefix, opts...)
	require.NoError(b.t, err)
	require.NoError(b.t, d.Start())
	return d
}

// start runs a proxy for client on the bus and its event loop.
func (b *bus) start(client wire.ClientID, opts ...Option) *app {
	a := &app{
		host:  newTestHost(client),
		scope: tally.NewTestScope("", nil),
		done:  make(chan struct{}),
	}
	base := []Option{
		Transport(b.transport),
		AddressPrefix(_testPrefix),
		Scope(a.scope),
		RegistrationTimeout(time.Hour),
	}
	a.proxy = New(a.host, append(base, opts...)...)

	var ctx context.Context
	ctx, a.cancel = context.WithCancel(context.Background())
	go func() {
		defer close(a.done)
		_ = a.proxy.IO().Run(ctx)
	}()

	require.NoError(b.t, a.proxy.Start())
	b.apps = append(b.apps, a)
	return a
}

// startRegistered is start followed by waiting for registration.
func (b *bus) startRegistered(client wire.ClientID, opts ...Option) *app {
	a := b.start(client, opts...)
	require.Equal(b.t, routing.Registered, a.host.nextState(b.t))
	return a
}

func (b *bus) stop() {
	for _, a := range b.apps {
		a.stop(b.t)
	}
	require.NoError(b.t, b.daemon.Stop())
}

func (a *app) stop(t *testing.T) {
	require.NoError(t, a.proxy.Stop())
	a.cancel()
	<-a.done
}

// counter reads a counter by "name" or "name+tag=value,..." key.
func counter(scope tally.TestScope, key string) int64 {
	name, tags := key, map[string]string{}
	if i := strings.IndexByte(key, '+'); i >= 0 {
		name = key[:i]
		for _, pair := range strings.Split(key[i+1:], ",") {
			if kv := strings.SplitN(pair, "=", 2); len(kv) == 2 {
				tags[kv[0]] = kv[1]
			}
		}
	}

	var total int64
	for _, c := range scope.Snapshot().Counters() {
		if c.Name() == name && reflect.DeepEqual(c.Tags(), tags) {
			total += c.Value()
		}
	}
	return total
}

func eventually(t *testing.T, cond func() bool, msgAndArgs ...interface{}) {
	t.Helper()
	require.Eventually(t, cond, _waitTimeout, _tick, msgAndArgs...)
}

// mockProxy is a proxy whose endpoints are mocks.
type mockProxy struct {
	*Proxy
	ctrl      *gomock.Controller
	transport *endpointtest.MockTransport
	sender    *endpointtest.MockEndpoint
	receiver  *endpointtest.MockEndpoint
	scope     tally.TestScope
}

const _mockClient wire.ClientID = 0x0042

func newMockProxy(t *testing.T, ctrl *gomock.Controller, host routing.Host, opts ...Option) *mockProxy {
	m := &mockProxy{
		ctrl:      ctrl,
		transport: endpointtest.NewMockTransport(ctrl),
		sender:    endpointtest.NewMockEndpoint(ctrl),
		receiver:  endpointtest.NewMockEndpoint(ctrl),
		scope:     tally.NewTestScope("", nil),
	}
	m.sender.EXPECT().Address().Return(endpoint.Address(_testPrefix, wire.DaemonClient, true)).AnyTimes()
	m.receiver.EXPECT().Address().Return(endpoint.Address(_testPrefix, _mockClient, true)).AnyTimes()
	m.transport.EXPECT().
		NewClientEndpoint(endpoint.Address(_testPrefix, wire.DaemonClient, true), true, gomock.Any()).
		Return(m.sender, nil)
	m.transport.EXPECT().
		NewServerEndpoint(endpoint.Address(_testPrefix, _mockClient, true), true, gomock.Any()).
		Return(m.receiver, nil)

	base := []Option{
		Transport(m.transport),
		AddressPrefix(_testPrefix),
		Scope(m.scope),
		RegistrationTimeout(time.Hour),
	}
	m.Proxy = New(host, append(base, opts...)...)
	return m
}

// start starts the proxy with its endpoints coming up cleanly.
func (m *mockProxy) start(t *testing.T) {
	m.receiver.EXPECT().Start().Return(nil)
	m.sender.EXPECT().Start().Return(nil)
	require.NoError(t, m.Start())
}

// register plays the daemon's side of the handshake.
func (m *mockProxy) register(t *testing.T) {
	s := wire.NewSerializer(0)
	m.sender.EXPECT().Send(s.Control(wire.CommandRegisterApplication, _mockClient), true).Return(nil)
	m.recv.OnConnect(m.sender)
	m.OnMessage(s.Control(wire.CommandRegisterApplicationAck, wire.DaemonClient), m.sender)
	require.True(t, m.reg.isRegistered())
}

// stop expects the proxy's endpoints to be stopped.
func (m *mockProxy) stop(t *testing.T) {
	if m.reg.isRegistered() {
		m.sender.EXPECT().Send(wire.NewSerializer(0).Control(wire.CommandDeregisterApplication, _mockClient), true).Return(nil)
	}
	m.sender.EXPECT().Stop().Return(nil)
	m.receiver.EXPECT().Stop().Return(nil)
	require.NoError(t, m.Stop())
}

func routingInfoFrame(entries ...wire.RoutingEntry) []byte {
	return wire.NewSerializer(0).RoutingInfo(wire.DaemonClient, wire.RoutingInfo{Entries: entries})
}
