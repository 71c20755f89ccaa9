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

package proxyfx

import (
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/mocktracer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/goleak"
	"go.uber.org/ybus/api/routing"
	"go.uber.org/ybus/api/routing/routingtest"
	"go.uber.org/ybus/internal/routingdaemontest"
	"go.uber.org/ybus/proxy"
	"go.uber.org/ybus/proxyconfig"
	"go.uber.org/ybus/wire"
	"go.uber.org/ybus/ybuserrors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const _client = wire.ClientID(0x0200)

func startDaemon(t *testing.T, prefix string) *routingdaemontest.Daemon {
	daemon, err := routingdaemontest.New(proxyconfig.InprocTransport(prefix), prefix)
	require.NoError(t, err)
	require.NoError(t, daemon.Start())
	return daemon
}

func TestModuleRunsProxy(t *testing.T) {
	defer goleak.VerifyNone(t)

	daemon := startDaemon(t, "proxyfx-run")
	defer daemon.Stop()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registered := make(chan struct{})
	host := routingtest.NewMockHost(ctrl)
	host.EXPECT().Client().Return(_client).AnyTimes()
	host.EXPECT().OnState(routing.Registered).Do(func(routing.State) { close(registered) })
	host.EXPECT().OnAvailability(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()

	core, logs := observer.New(zapcore.InfoLevel)
	tracer := mocktracer.New()
	scope := tally.NewTestScope("", nil)

	var (
		px *proxy.Proxy
		rm routing.RoutingManager
	)
	app := fxtest.New(t,
		ConfigFromYAML(strings.NewReader(`
transport: inproc
prefix: proxyfx-run
registration: {timeout: 1h}
`)),
		fx.Provide(
			func() routing.Host { return host },
			func() *zap.Logger { return zap.New(core) },
			func() opentracing.Tracer { return tracer },
			func() tally.Scope { return scope },
		),
		Module,
		fx.Populate(&px, &rm),
	)
	assert.Equal(t, rm, routing.RoutingManager(px))

	app.RequireStart()
	select {
	case <-registered:
	case <-time.After(2 * time.Second):
		t.Fatal("host was never told about the registration")
	}
	assert.True(t, daemon.Registered(_client))
	assert.Equal(t, 1, logs.FilterMessage("routing proxy started").Len())

	msg := &wire.Message{
		Header: wire.Header{
			Service:         0x1234,
			Method:          0x8001,
			Client:          0x0300,
			Session:         1,
			ProtocolVersion: wire.ProtocolVersion,
			Type:            wire.MessageTypeNotification,
		},
		Instance: 1,
	}
	require.NoError(t, rm.Send(_client, msg, true, true))
	require.Len(t, tracer.FinishedSpans(), 1, "the provided tracer sees sends")

	app.RequireStop()
	assert.Equal(t, 1, logs.FilterMessage("routing proxy stopped").Len())
	assert.True(t, ybuserrors.IsNotReady(px.Send(_client, msg, true, true)))
}

func TestModuleOptionalDependencies(t *testing.T) {
	defer goleak.VerifyNone(t)

	daemon := startDaemon(t, "proxyfx-optional")
	defer daemon.Stop()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	host := routingtest.NewMockHost(ctrl)
	host.EXPECT().Client().Return(_client).AnyTimes()
	host.EXPECT().OnState(gomock.Any()).AnyTimes()
	host.EXPECT().OnAvailability(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()

	app := fxtest.New(t,
		fx.Provide(
			func() routing.Host { return host },
			func() proxyconfig.Config {
				return proxyconfig.Config{Transport: proxyconfig.TransportInproc, Prefix: "proxyfx-optional"}
			},
		),
		Module,
		fx.Invoke(func(*proxy.Proxy) {}),
	)
	app.RequireStart()
	assert.Eventually(t, func() bool { return daemon.Registered(_client) },
		2*time.Second, time.Millisecond)
	app.RequireStop()
}

func TestModuleBuildError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	host := routingtest.NewMockHost(ctrl)
	host.EXPECT().Client().Return(_client).AnyTimes()

	app := fx.New(
		fx.Provide(
			func() routing.Host { return host },
			func() proxyconfig.Config {
				return proxyconfig.Config{Client: 0x0999, Transport: proxyconfig.TransportInproc}
			},
		),
		Module,
		fx.Invoke(func(*proxy.Proxy) {}),
	)
	err := app.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host is client 0200")
}
