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
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/opentracing/opentracing-go/log"
	"go.uber.org/ybus/wire"
	"go.uber.org/ybus/ybuserrors"
)

const (
	_sendOperation     = "ybus.send"
	_dispatchOperation = "ybus.dispatch"

	_serviceTag  = "ybus.service"
	_instanceTag = "ybus.instance"
	_methodTag   = "ybus.method"
	_clientTag   = "ybus.client"
	_typeTag     = "ybus.type"
	_codeTag     = "ybus.status_code"
)

func (p *Proxy) startSpan(operation string, kind ext.SpanKindEnum, m *wire.Message) opentracing.Span {
	span := p.tracer.StartSpan(operation, opentracing.Tags{
		_serviceTag:  int(m.Service),
		_instanceTag: int(m.Instance),
		_methodTag:   int(m.Method),
		_clientTag:   int(m.Client),
		_typeTag:     m.Type.String(),
	})
	ext.SpanKind.Set(span, kind)
	return span
}

func finishSpan(span opentracing.Span, err error) error {
	if err != nil {
		ext.Error.Set(span, true)
		span.SetTag(_codeTag, ybuserrors.FromError(err).Code().String())
		span.LogFields(log.String("event", "error"), log.String("message", err.Error()))
	}
	span.Finish()
	return err
}
