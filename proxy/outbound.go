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
	"github.com/opentracing/opentracing-go/ext"
	"go.uber.org/multierr"
	"go.uber.org/ybus/api/endpoint"
	"go.uber.org/ybus/api/routing"
	"go.uber.org/ybus/wire"
	"go.uber.org/ybus/ybuserrors"
	"go.uber.org/zap"
)

// OfferService announces that client provides a service instance. The
// offer is cached locally and replaces any earlier offer of the same
// instance.
func (p *Proxy) OfferService(client wire.ClientID, service wire.ServiceID, instance wire.InstanceID, major wire.MajorVersion, minor wire.MinorVersion, ttl wire.TTL) error {
	if err := p.ready(); err != nil {
		return err
	}

	key := serviceKey{service, instance}
	p.services.offer(wire.ServiceInfo{
		Service:  service,
		Instance: instance,
		Client:   client,
		Major:    major,
		Minor:    minor,
		TTL:      ttl,
	})

	sc := wire.ServiceCommand{Service: service, Instance: instance, Major: major, Minor: minor, TTL: ttl}
	return p.control(wire.CommandOfferService, client, sc, func(r *registration) {
		r.offers[key] = held{wire.CommandOfferService, client, sc}
	})
}

// StopOfferService withdraws an offer. The cached offer, the instance's
// events and fields, and its subscribers are forgotten. Withdrawing an
// instance that is not offered does nothing.
func (p *Proxy) StopOfferService(client wire.ClientID, service wire.ServiceID, instance wire.InstanceID) error {
	if err := p.ready(); err != nil {
		return err
	}

	key := serviceKey{service, instance}
	if !p.services.stopOffer(key) {
		return nil
	}
	p.events.purge(key)

	sc := wire.ServiceCommand{Service: service, Instance: instance}
	return p.control(wire.CommandStopOfferService, client, sc, func(r *registration) {
		delete(r.offers, key)
		for g := range r.publications {
			if g.service == service && g.instance == instance {
				delete(r.publications, g)
			}
		}
	})
}

// PublishEventgroup announces that client publishes an event group.
func (p *Proxy) PublishEventgroup(client wire.ClientID, service wire.ServiceID, instance wire.InstanceID, eventgroup wire.EventgroupID, major wire.MajorVersion, ttl wire.TTL) error {
	key := groupKey{service, instance, eventgroup}
	sc := wire.ServiceCommand{Service: service, Instance: instance, Eventgroup: eventgroup, Major: major, TTL: ttl}
	return p.control(wire.CommandPublishEventgroup, client, sc, func(r *registration) {
		r.publications[key] = held{wire.CommandPublishEventgroup, client, sc}
	})
}

// StopPublishEventgroup withdraws a publication.
func (p *Proxy) StopPublishEventgroup(client wire.ClientID, service wire.ServiceID, instance wire.InstanceID, eventgroup wire.EventgroupID) error {
	key := groupKey{service, instance, eventgroup}
	sc := wire.ServiceCommand{Service: service, Instance: instance, Eventgroup: eventgroup}
	return p.control(wire.CommandStopPublishEventgroup, client, sc, func(r *registration) {
		delete(r.publications, key)
	})
}

// RequestService tells the daemon that client uses a service instance.
func (p *Proxy) RequestService(client wire.ClientID, service wire.ServiceID, instance wire.InstanceID, major wire.MajorVersion, minor wire.MinorVersion, ttl wire.TTL) error {
	key := serviceKey{service, instance}
	sc := wire.ServiceCommand{Service: service, Instance: instance, Major: major, Minor: minor, TTL: ttl}
	return p.control(wire.CommandRequestService, client, sc, func(r *registration) {
		r.requests[key] = held{wire.CommandRequestService, client, sc}
	})
}

// ReleaseService tells the daemon that client no longer uses a service
// instance.
func (p *Proxy) ReleaseService(client wire.ClientID, service wire.ServiceID, instance wire.InstanceID) error {
	key := serviceKey{service, instance}
	sc := wire.ServiceCommand{Service: service, Instance: instance}
	return p.control(wire.CommandReleaseService, client, sc, func(r *registration) {
		delete(r.requests, key)
	})
}

// Subscribe joins an event group. The daemon always learns of it; when the
// publisher is a known local client it is also asked directly so its
// updates skip the daemon.
func (p *Proxy) Subscribe(client wire.ClientID, service wire.ServiceID, instance wire.InstanceID, eventgroup wire.EventgroupID) error {
	key := groupKey{service, instance, eventgroup}
	sc := wire.ServiceCommand{Service: service, Instance: instance, Eventgroup: eventgroup}
	err := p.control(wire.CommandSubscribe, client, sc, func(r *registration) {
		r.subscriptions[key] = held{wire.CommandSubscribe, client, sc}
	})
	if err != nil {
		return err
	}
	p.subscribeDirect(key)
	return nil
}

// Unsubscribe leaves an event group, directly at the publisher too if we
// subscribed there.
func (p *Proxy) Unsubscribe(client wire.ClientID, service wire.ServiceID, instance wire.InstanceID, eventgroup wire.EventgroupID) error {
	key := groupKey{service, instance, eventgroup}
	sc := wire.ServiceCommand{Service: service, Instance: instance, Eventgroup: eventgroup}

	var (
		publisher wire.ClientID
		direct    bool
	)
	err := p.control(wire.CommandUnsubscribe, client, sc, func(r *registration) {
		delete(r.subscriptions, key)
		publisher, direct = r.direct[key]
		delete(r.direct, key)
	})
	if err != nil {
		return err
	}
	if direct {
		// The daemon already has the unsubscribe and relays it to the
		// publisher, so a failed direct copy is not the caller's error.
		if err := p.sendDirect(publisher, wire.CommandUnsubscribe, sc); err != nil {
			p.logger.Warn("failed to unsubscribe directly at local publisher",
				zap.Stringer("peer", publisher),
				zap.Uint16("eventgroup", uint16(eventgroup)),
				zap.Error(err))
		}
	}
	return nil
}

// AddEvent returns the event of a service instance, creating it if needed,
// and adds it to eventgroup.
func (p *Proxy) AddEvent(client wire.ClientID, service wire.ServiceID, instance wire.InstanceID, eventgroup wire.EventgroupID, event wire.EventID) *routing.Event {
	return p.events.add(eventKey{service, instance, event}, eventgroup, false, nil)
}

// AddField is AddEvent for a field seeded with payload. An existing field
// keeps its current value.
func (p *Proxy) AddField(client wire.ClientID, service wire.ServiceID, instance wire.InstanceID, eventgroup wire.EventgroupID, event wire.EventID, payload []byte) *routing.Event {
	return p.events.add(eventKey{service, instance, event}, eventgroup, true, payload)
}

// RemoveEventOrField detaches e. Removing it again does nothing.
func (p *Proxy) RemoveEventOrField(e *routing.Event) {
	if e != nil && p.events.remove(e) {
		p.logger.Debug("removed event", zap.Uint16("event", uint16(e.ID())))
	}
}

// Send routes msg. Requests go to the owner of the service instance; every
// other message goes to msg.Client. A direct local channel is used when one
// exists or the target is a live local client; otherwise the daemon relays.
func (p *Proxy) Send(client wire.ClientID, msg *wire.Message, flush, reliable bool) error {
	if err := p.dataReady(); err != nil {
		return err
	}
	if msg == nil {
		return ybuserrors.InvalidArgumentErrorf("cannot send a nil message")
	}
	if n := wire.MessageHeaderSize + len(msg.Payload); n > wire.MaxMessageSize {
		return ybuserrors.InvalidArgumentErrorf("message of %d bytes exceeds the %d byte limit", n, wire.MaxMessageSize)
	}

	span := p.startSpan(_sendOperation, ext.SpanKindRPCClientEnum, msg)
	target, known := p.target(msg.Type, msg.Service, msg.Instance, msg.Client)
	h := wire.SendHeader{Instance: msg.Instance, Flush: flush, Reliable: reliable, Target: target}
	err := p.route(target, known, h, func(s *wire.Serializer, h wire.SendHeader) []byte {
		return s.Send(client, h, msg)
	})
	return finishSpan(span, err)
}

// SendRaw routes an encoded message the way Send does.
func (p *Proxy) SendRaw(client wire.ClientID, data []byte, instance wire.InstanceID, flush, reliable bool) error {
	if err := p.dataReady(); err != nil {
		return err
	}
	if len(data) > wire.MaxMessageSize {
		return ybuserrors.InvalidArgumentErrorf("message of %d bytes exceeds the %d byte limit", len(data), wire.MaxMessageSize)
	}
	hdr, err := wire.ValidateMessage(data)
	if err != nil {
		return ybuserrors.InvalidArgumentErrorf("cannot send raw message: %v", err)
	}

	target, known := p.target(hdr.Type, hdr.Service, instance, hdr.Client)
	h := wire.SendHeader{Instance: instance, Flush: flush, Reliable: reliable, Target: target}
	return p.route(target, known, h, func(s *wire.Serializer, h wire.SendHeader) []byte {
		return s.SendRaw(client, h, data)
	})
}

// Set updates a field or fires an event, notifying every subscriber of its
// event groups.
func (p *Proxy) Set(client wire.ClientID, service wire.ServiceID, instance wire.InstanceID, event wire.EventID, payload []byte) error {
	if err := p.dataReady(); err != nil {
		return err
	}
	e := p.events.get(eventKey{service, instance, event})
	if e == nil {
		return ybuserrors.NotFoundErrorf("event %04x of service %04x.%04x is not offered", event, service, instance)
	}
	e.SetPayload(payload)

	var err error
	for _, subscriber := range p.events.subscribersOf(e) {
		err = multierr.Append(err, p.notify(client, subscriber, e, payload))
	}
	return err
}

// notify sends one notification of e to subscriber.
func (p *Proxy) notify(client, subscriber wire.ClientID, e *routing.Event, payload []byte) error {
	msg := &wire.Message{
		Header: wire.Header{
			Service:         e.Service(),
			Method:          e.ID(),
			Client:          subscriber,
			Session:         p.nextSession(),
			ProtocolVersion: wire.ProtocolVersion,
			Type:            wire.MessageTypeNotification,
		},
		Instance: e.Instance(),
		Payload:  payload,
	}
	return p.Send(client, msg, true, true)
}

// target resolves who a message is for.
func (p *Proxy) target(typ wire.MessageType, service wire.ServiceID, instance wire.InstanceID, client wire.ClientID) (wire.ClientID, bool) {
	if wire.IsRequest(typ) {
		return p.services.owner(serviceKey{service, instance})
	}
	return client, true
}

type encodeFunc func(*wire.Serializer, wire.SendHeader) []byte

// route hands a frame to target's local channel if possible; if that is
// impossible or fails, the broken channel is removed and the daemon relays
// instead. A frame that cannot reach the daemon either is dropped.
func (p *Proxy) route(target wire.ClientID, known bool, h wire.SendHeader, encode encodeFunc) error {
	if known && target != wire.DaemonClient {
		e := p.registry.get(target)
		if e == nil && p.services.isLive(target) {
			var err error
			if e, err = p.createLocal(target); err != nil {
				p.logger.Debug("could not open local endpoint",
					zap.Stringer("peer", target), zap.Error(err))
			}
		}

		if e != nil {
			err := p.handoff(e.channel(h.Reliable), h.Flush, func(s *wire.Serializer) []byte { return encode(s, h) })
			e.release()
			if err == nil {
				p.metrics.sent(true)
				return nil
			}

			p.metrics.fallbacks.Inc(1)
			p.logger.Debug("local send failed, relaying through routing daemon",
				zap.Stringer("peer", target), zap.Error(err))
			if p.registry.removeEntry(e) {
				e.release()
				p.metrics.setLocalEndpoints(p.registry.len())
			}
		}
	}

	err := p.handoff(p.sender, h.Flush, func(s *wire.Serializer) []byte { return encode(s, h) })
	if err == nil {
		p.metrics.sent(false)
		return nil
	}

	p.metrics.noRoute.Inc(1)
	p.logger.Warn("dropping frame, routing daemon is unreachable",
		zap.Stringer("peer", target), zap.Error(err))
	return ybuserrors.UnavailableErrorf("no route to client %v: %v", target, err)
}

// handoff serializes a frame and passes it to ep.
func (p *Proxy) handoff(ep endpoint.Endpoint, flush bool, encode func(*wire.Serializer) []byte) error {
	p.sendMu.Lock()
	defer p.sendMu.Unlock()

	p.serializeMu.Lock()
	frame := encode(p.serializer)
	p.serializeMu.Unlock()

	return ep.Send(frame, flush)
}

func (p *Proxy) sendControl(ep endpoint.Endpoint, id wire.CommandID, flush bool) error {
	return p.handoff(ep, flush, func(s *wire.Serializer) []byte {
		return s.Control(id, p.client)
	})
}

func (p *Proxy) sendService(ep endpoint.Endpoint, id wire.CommandID, client wire.ClientID, sc wire.ServiceCommand, flush bool) error {
	var encodeErr error
	err := p.handoff(ep, flush, func(s *wire.Serializer) []byte {
		frame, err := s.Service(id, client, sc)
		encodeErr = err
		return frame
	})
	if encodeErr != nil {
		return encodeErr
	}
	return err
}

// sendDirect sends a control command straight to a local peer.
func (p *Proxy) sendDirect(peer wire.ClientID, id wire.CommandID, sc wire.ServiceCommand) error {
	e, err := p.acquireLocal(peer, true)
	if err != nil {
		return err
	}
	defer e.release()

	return p.sendService(e.reliable, id, p.client, sc, true)
}

// subscribeDirect subscribes at a local publisher for a subscription we hold,
// unless we already did.
func (p *Proxy) subscribeDirect(key groupKey) {
	owner, ok := p.services.owner(serviceKey{key.service, key.instance})
	if !ok || owner == p.client || owner == wire.DaemonClient || !p.services.isLive(owner) {
		return
	}

	p.reg.mu.Lock()
	h, subscribed := p.reg.subscriptions[key]
	current, direct := p.reg.direct[key]
	p.reg.mu.Unlock()
	if !subscribed || (direct && current == owner) {
		return
	}

	if err := p.sendDirect(owner, wire.CommandSubscribe, h.sc); err != nil {
		p.logger.Debug("direct subscription failed, events keep coming through the routing daemon",
			zap.Stringer("peer", owner), zap.Uint16("eventgroup", uint16(key.eventgroup)), zap.Error(err))
		return
	}

	p.reg.mu.Lock()
	if _, still := p.reg.subscriptions[key]; still {
		p.reg.direct[key] = owner
	}
	p.reg.mu.Unlock()
	p.logger.Debug("subscribed directly at local publisher",
		zap.Stringer("peer", owner), zap.Uint16("eventgroup", uint16(key.eventgroup)))
}
