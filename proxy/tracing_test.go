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
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/opentracing/opentracing-go/mocktracer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/ybus/api/endpoint/endpointtest"
	"go.uber.org/ybus/api/routing/routingtest"
	"go.uber.org/ybus/wire"
)

func TestSendSpans(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tracer := mocktracer.New()
	host := routingtest.NewMockHost(ctrl)
	host.EXPECT().Client().Return(_mockClient)
	m := newMockProxy(t, ctrl, host, Tracer(tracer))
	m.start(t)
	m.register(t)

	msg := notification(0x1234, 1, 0x8001, 0x99, []byte("v"))
	gomock.InOrder(
		m.sender.EXPECT().Send(gomock.Any(), true).Return(nil),
		m.sender.EXPECT().Send(gomock.Any(), true).Return(errors.New("daemon is gone")),
	)
	require.NoError(t, m.Send(_mockClient, msg, true, true))
	require.Error(t, m.Send(_mockClient, msg, true, true))

	spans := tracer.FinishedSpans()
	require.Len(t, spans, 2)

	ok := spans[0]
	assert.Equal(t, "ybus.send", ok.OperationName)
	assert.Equal(t, map[string]interface{}{
		"ybus.service":  0x1234,
		"ybus.instance": 1,
		"ybus.method":   0x8001,
		"ybus.client":   0x99,
		"ybus.type":     "notification",
		"span.kind":     ext.SpanKindRPCClientEnum,
	}, ok.Tags())

	failed := spans[1]
	assert.Equal(t, true, failed.Tag("error"))
	assert.Equal(t, "unavailable", failed.Tag("ybus.status_code"))
	require.Len(t, failed.Logs(), 1)
	assert.Equal(t, int64(1), counter(m.scope, "frames_dropped+reason=no_route"))

	m.stop(t)
}

func TestDispatchSpan(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tracer := mocktracer.New()
	host := routingtest.NewMockHost(ctrl)
	host.EXPECT().Client().Return(_mockClient)
	m := newMockProxy(t, ctrl, host, Tracer(tracer))
	require.NoError(t, m.Init())

	msg := notification(0x1234, 1, 0x8001, _mockClient, []byte("v"))
	host.EXPECT().OnMessage(msg)
	m.OnMessage(wire.NewSerializer(0).Send(0x10, wire.SendHeader{Instance: 1, Target: _mockClient}, msg),
		endpointtest.NewMockEndpoint(ctrl))

	spans := tracer.FinishedSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "ybus.dispatch", spans[0].OperationName)
	assert.Equal(t, ext.SpanKindRPCServerEnum, spans[0].Tag("span.kind"))
}
