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
	"github.com/uber-go/tally"
)

const (
	_routeTag  = "route"
	_reasonTag = "reason"

	_routeLocal  = "local"
	_routeDaemon = "daemon"

	_reasonMalformed  = "malformed"
	_reasonUnexpected = "unexpected"
	_reasonNotOffered = "not_offered"
	_reasonNoRoute    = "no_route"
	_reasonStopped    = "stopped"
)

// observer counts what the proxy does with frames.
type observer struct {
	sentLocal     tally.Counter
	sentDaemon    tally.Counter
	received      tally.Counter
	fallbacks     tally.Counter
	pings         tally.Counter
	pongs         tally.Counter
	pongFailures  tally.Counter
	registrations tally.Counter

	malformed  tally.Counter
	unexpected tally.Counter
	notOffered tally.Counter
	noRoute    tally.Counter
	stopped    tally.Counter

	localEndpoints tally.Gauge
}

func newObserver(scope tally.Scope) *observer {
	dropped := func(reason string) tally.Counter {
		return scope.Tagged(map[string]string{_reasonTag: reason}).Counter("frames_dropped")
	}

	return &observer{
		sentLocal:      scope.Tagged(map[string]string{_routeTag: _routeLocal}).Counter("frames_sent"),
		sentDaemon:     scope.Tagged(map[string]string{_routeTag: _routeDaemon}).Counter("frames_sent"),
		received:       scope.Counter("frames_received"),
		fallbacks:      scope.Counter("fallbacks"),
		pings:          scope.Counter("pings"),
		pongs:          scope.Counter("pongs"),
		pongFailures:   scope.Counter("pong_failures"),
		registrations:  scope.Counter("registrations"),
		malformed:      dropped(_reasonMalformed),
		unexpected:     dropped(_reasonUnexpected),
		notOffered:     dropped(_reasonNotOffered),
		noRoute:        dropped(_reasonNoRoute),
		stopped:        dropped(_reasonStopped),
		localEndpoints: scope.Gauge("local_endpoints"),
	}
}

func (o *observer) sent(local bool) {
	if local {
		o.sentLocal.Inc(1)
		return
	}
	o.sentDaemon.Inc(1)
}

func (o *observer) setLocalEndpoints(n int) {
	o.localEndpoints.Update(float64(n))
}
