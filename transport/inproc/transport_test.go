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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/net/metrics"
	"go.uber.org/ybus/api/endpoint"
	"go.uber.org/ybus/internal/backoff"
	"go.uber.org/ybus/ybuserrors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	zapobserver "go.uber.org/zap/zaptest/observer"
)

type hostEvent struct {
	kind  string
	ep    endpoint.Endpoint
	frame string
	err   error
}

type testHost struct {
	events chan hostEvent
}

func newTestHost() *testHost {
	return &testHost{events: make(chan hostEvent, 128)}
}

func (h *testHost) OnConnect(ep endpoint.Endpoint) {
	h.events <- hostEvent{kind: "connect", ep: ep}
}

func (h *testHost) OnDisconnect(ep endpoint.Endpoint, err error) {
	h.events <- hostEvent{kind: "disconnect", ep: ep, err: err}
}

func (h *testHost) OnMessage(frame []byte, from endpoint.Endpoint) {
	h.events <- hostEvent{kind: "message", ep: from, frame: string(frame)}
}

func (h *testHost) next(t *testing.T, kind string) hostEvent {
	t.Helper()
	select {
	case e := <-h.events:
		require.Equal(t, kind, e.kind, "unexpected host event %+v", e)
		return e
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for %q", kind)
	}
	return hostEvent{}
}

func (h *testHost) assertQuiet(t *testing.T) {
	t.Helper()
	select {
	case e := <-h.events:
		t.Fatalf("unexpected host event %+v", e)
	case <-time.After(20 * time.Millisecond):
	}
}

func newTestTransport(t *testing.T, opts ...TransportOption) *Transport {
	b, err := backoff.NewExponential(backoff.First(time.Millisecond), backoff.Max(5*time.Millisecond))
	require.NoError(t, err)
	return NewTransport(append([]TransportOption{ConnBackoff(b)}, opts...)...)
}

func TestConnectAndExchange(t *testing.T) {
	defer goleak.VerifyNone(t)

	trans := newTestTransport(t)
	serverHost, clientHost := newTestHost(), newTestHost()

	server, err := trans.NewServerEndpoint("bus-0001", true, serverHost)
	require.NoError(t, err)
	require.NoError(t, server.Start())
	assert.True(t, trans.Listening("bus-0001"))

	client, err := trans.NewClientEndpoint("bus-0001", true, clientHost)
	require.NoError(t, err)
	require.NoError(t, client.Start())
	assert.True(t, client.IsRunning())
	assert.True(t, client.IsReliable())
	assert.Equal(t, "bus-0001", client.Address())

	accepted := serverHost.next(t, "connect").ep
	assert.Equal(t, client, clientHost.next(t, "connect").ep)

	require.NoError(t, client.Send([]byte("hello"), true))
	got := serverHost.next(t, "message")
	assert.Equal(t, "hello", got.frame)
	assert.Equal(t, accepted, got.ep, "replies go through the accepted connection")

	require.NoError(t, got.ep.Send([]byte("world"), true))
	reply := clientHost.next(t, "message")
	assert.Equal(t, "world", reply.frame)
	assert.Equal(t, client, reply.ep)

	require.NoError(t, client.Stop())
	assert.Nil(t, clientHost.next(t, "disconnect").err)
	assert.Error(t, serverHost.next(t, "disconnect").err)

	require.NoError(t, server.Stop())
	assert.False(t, trans.Listening("bus-0001"))
}

func TestClientReconnects(t *testing.T) {
	defer goleak.VerifyNone(t)

	trans := newTestTransport(t)
	clientHost := newTestHost()

	client, err := trans.NewClientEndpoint("bus-0000", true, clientHost)
	require.NoError(t, err)
	require.NoError(t, client.Start())
	defer client.Stop()

	err = client.Send([]byte("early"), true)
	assert.True(t, ybuserrors.IsUnavailable(err), "got %v", err)

	for round := 0; round < 2; round++ {
		serverHost := newTestHost()
		server, err := trans.NewServerEndpoint("bus-0000", true, serverHost)
		require.NoError(t, err)
		require.NoError(t, server.Start())

		clientHost.next(t, "connect")
		serverHost.next(t, "connect")

		require.NoError(t, server.Stop())
		assert.Nil(t, serverHost.next(t, "disconnect").err)
		assert.Error(t, clientHost.next(t, "disconnect").err)
	}
}

func TestUnflushedFramesWaitForFlush(t *testing.T) {
	defer goleak.VerifyNone(t)

	trans := newTestTransport(t, FlushInterval(0))
	serverHost, clientHost := newTestHost(), newTestHost()

	server, _ := trans.NewServerEndpoint("bus-0002", true, serverHost)
	require.NoError(t, server.Start())
	defer server.Stop()
	client, _ := trans.NewClientEndpoint("bus-0002", true, clientHost)
	require.NoError(t, client.Start())
	defer client.Stop()
	serverHost.next(t, "connect")

	require.NoError(t, client.Send([]byte("a"), false))
	require.NoError(t, client.Send([]byte("b"), false))
	serverHost.assertQuiet(t)

	require.NoError(t, client.Send([]byte("c"), true))
	for _, want := range []string{"a", "b", "c"} {
		assert.Equal(t, want, serverHost.next(t, "message").frame)
	}
}

func TestFlushInterval(t *testing.T) {
	defer goleak.VerifyNone(t)

	trans := newTestTransport(t, FlushInterval(time.Millisecond))
	serverHost, clientHost := newTestHost(), newTestHost()

	server, _ := trans.NewServerEndpoint("bus-0003", false, serverHost)
	require.NoError(t, server.Start())
	defer server.Stop()
	client, _ := trans.NewClientEndpoint("bus-0003", false, clientHost)
	require.NoError(t, client.Start())
	defer client.Stop()
	assert.False(t, client.IsReliable())
	serverHost.next(t, "connect")

	require.NoError(t, client.Send([]byte("lazy"), false))
	assert.Equal(t, "lazy", serverHost.next(t, "message").frame)
}

func TestAddressInUse(t *testing.T) {
	trans := NewTransport()
	host := newTestHost()

	first, _ := trans.NewServerEndpoint("bus-0004", true, host)
	require.NoError(t, first.Start())
	defer first.Stop()

	second, _ := trans.NewServerEndpoint("bus-0004", true, host)
	err := second.Start()
	assert.True(t, ybuserrors.IsUnavailable(err), "got %v", err)
	assert.True(t, trans.Listening("bus-0004"), "a failed listener must not unregister the running one")
}

func TestServerEndpointCannotSend(t *testing.T) {
	trans := NewTransport()
	server, err := trans.NewServerEndpoint("bus-0005", true, newTestHost())
	require.NoError(t, err)
	assert.True(t, ybuserrors.IsInvalidArgument(server.Send([]byte("x"), true)))
}

func TestEndpointsRequireHost(t *testing.T) {
	trans := NewTransport()
	_, err := trans.NewClientEndpoint("x", true, nil)
	assert.True(t, ybuserrors.IsInvalidArgument(err))
	_, err = trans.NewServerEndpoint("x", true, nil)
	assert.True(t, ybuserrors.IsInvalidArgument(err))
}

// blockingHost holds up delivery until release is closed.
type blockingHost struct {
	entered chan struct{}
	release chan struct{}
}

func (h *blockingHost) OnConnect(endpoint.Endpoint)           {}
func (h *blockingHost) OnDisconnect(endpoint.Endpoint, error) {}

func (h *blockingHost) OnMessage([]byte, endpoint.Endpoint) {
	select {
	case h.entered <- struct{}{}:
	default:
	}
	<-h.release
}

func counterValue(root *metrics.Root, name string) int64 {
	for _, c := range root.Snapshot().Counters {
		if c.Name == name {
			return c.Value
		}
	}
	return 0
}

func TestFlushTimerDropIsReported(t *testing.T) {
	core, logs := zapobserver.New(zapcore.DebugLevel)
	root := metrics.New()
	trans := newTestTransport(t,
		Logger(zap.New(core)),
		Meter(root.Scope()),
		QueueSize(1),
		FlushInterval(20*time.Millisecond))

	from, err := trans.NewClientEndpoint("bus-0002", true, newTestHost())
	require.NoError(t, err)

	host := &blockingHost{entered: make(chan struct{}, 1), release: make(chan struct{})}
	l := newLink(trans, host, from)
	defer l.close()
	defer close(host.release)

	require.NoError(t, l.send([]byte("delivering"), true))
	select {
	case <-host.entered:
	case <-time.After(time.Second):
		t.Fatal("first frame was never delivered")
	}
	require.NoError(t, l.send([]byte("queued"), true))
	require.NoError(t, l.send([]byte("held"), false))
	require.NoError(t, l.send([]byte("held too"), false))

	require.Eventually(t, func() bool {
		return counterValue(root, "dropped_frames") == 2
	}, time.Second, time.Millisecond)
	assert.Equal(t, int64(1), counterValue(root, "write_queue_full"))

	dropped := logs.FilterMessage("dropping frames held for flush").AllUntimed()
	require.Len(t, dropped, 1)
	assert.Equal(t, zapcore.WarnLevel, dropped[0].Level)
	assert.Equal(t, "bus-0002", dropped[0].ContextMap()["address"])
	assert.Equal(t, int64(2), dropped[0].ContextMap()["frames"])
}
