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

package proxyconfig

import (
	"sync"

	"go.uber.org/ybus/transport/inproc"
	"go.uber.org/ybus/transport/uds"
	"go.uber.org/zap"
)

// Proxies configured for the inproc transport with the same prefix share a
// namespace, so applications built separately in one process can reach
// each other and an in-process daemon.
var _inproc = struct {
	sync.Mutex

	byPrefix map[string]*inproc.Transport
}{byPrefix: make(map[string]*inproc.Transport)}

// InprocTransport returns the inproc transport shared by every proxy
// configured with prefix. An in-process daemon listens on it.
func InprocTransport(prefix string) *inproc.Transport {
	return inprocTransport(prefix, TransportOptions{}, zap.NewNop())
}

// The first caller for a prefix decides the transport options.
func inprocTransport(prefix string, o TransportOptions, logger *zap.Logger) *inproc.Transport {
	_inproc.Lock()
	defer _inproc.Unlock()

	if t, ok := _inproc.byPrefix[prefix]; ok {
		return t
	}
	opts := []inproc.TransportOption{inproc.Logger(logger)}
	if o.QueueSize > 0 {
		opts = append(opts, inproc.QueueSize(o.QueueSize))
	}
	if o.FlushInterval > 0 {
		opts = append(opts, inproc.FlushInterval(o.FlushInterval))
	}
	t := inproc.NewTransport(opts...)
	_inproc.byPrefix[prefix] = t
	return t
}

func udsTransport(o TransportOptions, logger *zap.Logger) *uds.Transport {
	opts := []uds.TransportOption{uds.Logger(logger)}
	if o.QueueSize > 0 {
		opts = append(opts, uds.QueueSize(o.QueueSize))
	}
	if o.FlushInterval > 0 {
		opts = append(opts, uds.FlushInterval(o.FlushInterval))
	}
	if o.DialTimeout > 0 {
		opts = append(opts, uds.DialTimeout(o.DialTimeout))
	}
	if o.WriteTimeout > 0 {
		opts = append(opts, uds.WriteTimeout(o.WriteTimeout))
	}
	return uds.NewTransport(opts...)
}
