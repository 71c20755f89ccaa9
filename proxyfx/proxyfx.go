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

// Package proxyfx runs a routing proxy under an fx application.
//
// The application supplies a proxyconfig.Config and a routing.Host. The
// module builds the proxy, runs its event loop, and starts and stops it with
// the application.
package proxyfx

import (
	"context"
	"io"

	"github.com/opentracing/opentracing-go"
	"github.com/uber-go/tally"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/ybus/api/routing"
	"go.uber.org/ybus/proxy"
	"go.uber.org/ybus/proxyconfig"
	"go.uber.org/zap"
)

// Module provides a *proxy.Proxy and a routing.RoutingManager.
var Module = fx.Options(
	fx.Provide(New),
)

// ConfigFromYAML provides the proxyconfig.Config read from r.
func ConfigFromYAML(r io.Reader) fx.Option {
	return fx.Provide(func() (proxyconfig.Config, error) {
		return proxyconfig.Load(r)
	})
}

// Params defines the dependencies of this module.
type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    proxyconfig.Config
	Host      routing.Host
	Logger    *zap.Logger        `optional:"true"`
	Scope     tally.Scope        `optional:"true"`
	Tracer    opentracing.Tracer `optional:"true"`
}

// Result defines the values produced by this module.
type Result struct {
	fx.Out

	Proxy          *proxy.Proxy
	RoutingManager routing.RoutingManager
}

// New builds the proxy and appends the hooks that run it.
func New(p Params) (Result, error) {
	var opts []proxy.Option
	if p.Tracer != nil {
		opts = append(opts, proxy.Tracer(p.Tracer))
	}
	px, err := p.Config.Build(p.Host, p.Logger, p.Scope, opts...)
	if err != nil {
		return Result{}, err
	}

	r := runner{proxy: px, done: make(chan error, 1)}
	p.Lifecycle.Append(fx.Hook{
		OnStart: r.start,
		OnStop:  r.stop,
	})
	return Result{Proxy: px, RoutingManager: px}, nil
}

type runner struct {
	proxy *proxy.Proxy
	done  chan error
}

func (r runner) start(context.Context) error {
	loop := r.proxy.IO()
	go func() {
		r.done <- loop.Run(context.Background())
	}()

	if err := r.proxy.Start(); err != nil {
		loop.Stop()
		<-r.done
		return err
	}
	return nil
}

func (r runner) stop(ctx context.Context) error {
	err := r.proxy.Stop()
	r.proxy.IO().Stop()
	select {
	case runErr := <-r.done:
		err = multierr.Append(err, runErr)
	case <-ctx.Done():
		err = multierr.Append(err, ctx.Err())
	}
	return err
}
