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

// Package proxy implements the routing proxy an application uses to take
// part on the bus. It keeps one connection to the routing daemon, listens
// for direct connections from other local applications, and opens direct
// channels to local peers whenever the daemon's routing information says
// the peer runs on this host.
//
//	p := proxy.New(app, proxy.Transport(uds.NewTransport()))
//	go p.IO().Run(ctx)
//	if err := p.Start(); err != nil {
//		return err
//	}
//	defer p.Stop()
//
// Lock order is registration, then send, then serialize. The registry,
// service and event tables have leaf locks that are never held while calling
// into endpoints or the host.
package proxy

import (
	"sync"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/ybus/api/endpoint"
	"go.uber.org/ybus/api/routing"
	"go.uber.org/ybus/pkg/eventloop"
	"go.uber.org/ybus/pkg/lifecycle"
	"go.uber.org/ybus/wire"
	"go.uber.org/ybus/ybuserrors"
	"go.uber.org/zap"
)

const _serializerCapacity = 1024

// Proxy is the routing manager of one application.
type Proxy struct {
	host   routing.Host
	client wire.ClientID
	opts   options
	once   *lifecycle.Once
	loop   *eventloop.Loop

	logger  *zap.Logger
	metrics *observer
	tracer  opentracing.Tracer

	recv          *receiver
	sender        endpoint.Endpoint
	receiver      endpoint.Endpoint
	dgramReceiver endpoint.Endpoint

	sendMu        sync.Mutex
	serializeMu   sync.Mutex
	serializer    *wire.Serializer
	deserializeMu sync.Mutex
	deserializer  *wire.Deserializer

	registry *registry
	services *serviceTable
	events   *eventTable
	reg      *registration

	session atomic.Uint32
}

var (
	_ routing.RoutingManager = (*Proxy)(nil)
	_ endpoint.Host          = (*receiver)(nil)
)

// New builds a proxy for host. It performs no I/O.
func New(host routing.Host, opts ...Option) *Proxy {
	options := newOptions()
	for _, opt := range opts {
		opt(&options)
	}

	client := host.Client()
	logger := options.logger.With(zap.Stringer("client", client))
	loop := options.loop
	if loop == nil {
		loop = eventloop.New(eventloop.Logger(logger))
	}

	p := &Proxy{
		host:     host,
		client:   client,
		opts:     options,
		once:     lifecycle.NewOnce(),
		loop:     loop,
		logger:   logger,
		metrics:  newObserver(options.scope),
		tracer:   options.tracer,
		registry: newRegistry(),
		services: newServiceTable(),
		events:   newEventTable(),
		reg:      newRegistration(),
	}
	p.recv = &receiver{proxy: p, stopping: p.once.Stopping()}
	return p
}

// Client returns the client this proxy routes for.
func (p *Proxy) Client() wire.ClientID { return p.client }

// IO returns the event loop the embedding process runs. Registration retries
// and host state notifications execute there.
func (p *Proxy) IO() *eventloop.Loop { return p.loop }

// Init builds the codec and the daemon and inbound endpoints.
func (p *Proxy) Init() error {
	return p.once.Init(p.init)
}

func (p *Proxy) init() error {
	t := p.opts.transport
	if t == nil {
		return ybuserrors.InvalidArgumentErrorf("routing proxy for client %v requires a transport", p.client)
	}

	p.serializer = wire.NewSerializer(_serializerCapacity)
	p.deserializer = wire.NewDeserializer()

	var err error
	if p.sender, err = t.NewClientEndpoint(p.address(wire.DaemonClient, true), true, p.recv); err != nil {
		return err
	}
	if p.receiver, err = t.NewServerEndpoint(p.address(p.client, true), true, p.recv); err != nil {
		return err
	}
	if p.opts.unreliable {
		if p.dgramReceiver, err = t.NewServerEndpoint(p.address(p.client, false), false, p.recv); err != nil {
			return err
		}
	}
	return nil
}

// Start initializes the proxy if needed, then starts listening and connects
// to the daemon. Registration completes asynchronously.
func (p *Proxy) Start() error {
	return p.once.Start(p.init, func() error {
		if err := p.receiver.Start(); err != nil {
			return err
		}
		if p.dgramReceiver != nil {
			if err := p.dgramReceiver.Start(); err != nil {
				return multierr.Append(err, p.receiver.Stop())
			}
		}
		if err := p.sender.Start(); err != nil {
			err = multierr.Append(err, p.receiver.Stop())
			if p.dgramReceiver != nil {
				err = multierr.Append(err, p.dgramReceiver.Stop())
			}
			return err
		}
		p.logger.Info("routing proxy started",
			zap.String("address", p.receiver.Address()))
		return nil
	})
}

// Stop deregisters from the daemon and closes every endpoint. Callbacks that
// arrive after Stop begins are dropped.
func (p *Proxy) Stop() error {
	return p.once.Stop(func() error {
		p.deregister()

		var err error
		for _, e := range p.registry.drain() {
			e.release()
		}
		p.metrics.setLocalEndpoints(0)

		err = multierr.Append(err, p.sender.Stop())
		err = multierr.Append(err, p.receiver.Stop())
		if p.dgramReceiver != nil {
			err = multierr.Append(err, p.dgramReceiver.Stop())
		}
		p.logger.Info("routing proxy stopped", zap.Error(err))
		return err
	})
}

// ready fails unless the proxy is started.
func (p *Proxy) ready() error {
	if state := p.once.State(); state != lifecycle.Started {
		return ybuserrors.NotReadyErrorf("routing proxy for client %v is %v", p.client, state)
	}
	return nil
}

// dataReady fails unless the proxy is started and registered.
func (p *Proxy) dataReady() error {
	if err := p.ready(); err != nil {
		return err
	}
	if !p.reg.isRegistered() {
		return ybuserrors.NotReadyErrorf("routing proxy for client %v is not registered with the routing daemon", p.client)
	}
	return nil
}

func (p *Proxy) address(client wire.ClientID, reliable bool) string {
	return endpoint.Address(p.opts.prefix, client, reliable)
}

// post runs f on the event loop unless the proxy is stopping.
func (p *Proxy) post(f func()) {
	p.loop.Post(func() {
		if p.recv.live() {
			f()
		}
	})
}

func (p *Proxy) nextSession() wire.SessionID {
	for {
		if s := wire.SessionID(p.session.Inc()); s != 0 {
			return s
		}
	}
}

// Services returns every known service offer, own offers included, sorted
// by service and instance.
func (p *Proxy) Services() []wire.ServiceInfo {
	return p.services.snapshot()
}

// FindLocal returns the reliable channel to a local client, if one is open.
//
// The caller holds no reference on the endpoint. A concurrent RemoveLocal or
// routing update may stop it, after which its Send fails with an
// unavailable error.
func (p *Proxy) FindLocal(client wire.ClientID) (endpoint.Endpoint, bool) {
	e := p.registry.peek(client)
	if e == nil {
		return nil, false
	}
	return e.reliable, true
}

// FindLocalService returns the channel to the local client offering a
// service instance. The endpoint may be stopped at any time, as with
// FindLocal.
func (p *Proxy) FindLocalService(service wire.ServiceID, instance wire.InstanceID) (endpoint.Endpoint, bool) {
	owner, ok := p.services.owner(serviceKey{service, instance})
	if !ok {
		return nil, false
	}
	return p.FindLocal(owner)
}

// FindOrCreateLocal returns the reliable channel to a local client, opening
// it if needed. Repeated calls return the same endpoint until it is removed.
// The proxy keeps ownership: once the endpoint is removed it is stopped and
// its Send fails with an unavailable error.
func (p *Proxy) FindOrCreateLocal(client wire.ClientID) (endpoint.Endpoint, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}
	e, err := p.acquireLocal(client, true)
	if err != nil {
		return nil, err
	}
	defer e.release()
	return e.reliable, nil
}

// RemoveLocal closes and forgets the channels to a local client. Sends in
// flight on them complete first. Removing an unknown client does nothing.
func (p *Proxy) RemoveLocal(client wire.ClientID) {
	if e := p.registry.remove(client); e != nil {
		p.logger.Debug("removing local endpoint", zap.Stringer("peer", client))
		e.release()
		p.metrics.setLocalEndpoints(p.registry.len())
	}
}

// acquireLocal returns an acquired handle for client. It opens the channels
// when create is set and none are registered. No send path lock may be held.
func (p *Proxy) acquireLocal(client wire.ClientID, create bool) (*localEndpoint, error) {
	if e := p.registry.get(client); e != nil {
		return e, nil
	}
	if !create {
		return nil, ybuserrors.NotFoundErrorf("no local endpoint for client %v", client)
	}
	return p.createLocal(client)
}

func (p *Proxy) createLocal(client wire.ClientID) (*localEndpoint, error) {
	t := p.opts.transport
	reliable, err := t.NewClientEndpoint(p.address(client, true), true, p.recv)
	if err != nil {
		return nil, err
	}
	var unreliable endpoint.Endpoint
	if p.opts.unreliable {
		if unreliable, err = t.NewClientEndpoint(p.address(client, false), false, p.recv); err != nil {
			return nil, err
		}
	}

	e := newLocalEndpoint(client, reliable, unreliable)
	e.onClose = p.localClosed
	if err := e.start(); err != nil {
		return nil, multierr.Append(err, e.stop())
	}

	got, created := p.registry.insert(e)
	if !created {
		// Another caller registered the same client first.
		e.release()
		return got, nil
	}
	if !p.recv.live() {
		// Stop drained the registry while we were starting.
		if p.registry.removeEntry(got) {
			got.release()
		}
		got.release()
		return nil, ybuserrors.NotReadyErrorf("routing proxy for client %v is stopping", p.client)
	}

	p.logger.Debug("created local endpoint", zap.Stringer("peer", client))
	p.metrics.setLocalEndpoints(p.registry.len())
	return got, nil
}

func (p *Proxy) localClosed(e *localEndpoint, err error) {
	if err != nil {
		p.logger.Warn("failed to stop local endpoint",
			zap.Stringer("peer", e.client), zap.Error(err))
	}
}

func (p *Proxy) onConnect(ep endpoint.Endpoint) {
	if ep == p.sender {
		p.logger.Info("connected to routing daemon", zap.String("address", ep.Address()))
		p.registerWithDaemon()
		return
	}
	p.logger.Debug("local connection established", zap.String("address", ep.Address()))
}

func (p *Proxy) onDisconnect(ep endpoint.Endpoint, err error) {
	if ep == p.sender {
		p.lostDaemon(err)
		return
	}
	if e := p.registry.removeByEndpoint(ep); e != nil {
		p.logger.Debug("local endpoint disconnected",
			zap.Stringer("peer", e.client), zap.Error(err))
		e.release()
		p.metrics.setLocalEndpoints(p.registry.len())
	}
}

// receiver is the Host given to every endpoint. It drops callbacks once
// the proxy begins stopping.
type receiver struct {
	proxy    *Proxy
	stopping <-chan struct{}
}

func (r *receiver) live() bool {
	select {
	case <-r.stopping:
		return false
	default:
		return true
	}
}

func (r *receiver) OnConnect(ep endpoint.Endpoint) {
	if r.live() {
		r.proxy.onConnect(ep)
	}
}

func (r *receiver) OnDisconnect(ep endpoint.Endpoint, err error) {
	if r.live() {
		r.proxy.onDisconnect(ep, err)
	}
}

func (r *receiver) OnMessage(frame []byte, from endpoint.Endpoint) {
	if !r.live() {
		r.proxy.metrics.stopped.Inc(1)
		return
	}
	r.proxy.OnMessage(frame, from)
}
