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
	"go.uber.org/ybus/api/endpoint"
	"go.uber.org/ybus/wire"
	"go.uber.org/zap"
)

// inbound is a decoded frame that no longer references the frame buffer.
type inbound struct {
	id      wire.CommandID
	client  wire.ClientID
	service wire.ServiceCommand
	send    wire.SendHeader
	msg     *wire.Message
	routing wire.RoutingInfo
}

func (p *Proxy) decode(frame []byte) (inbound, error) {
	p.deserializeMu.Lock()
	defer p.deserializeMu.Unlock()

	cmd, err := p.deserializer.Command(frame)
	if err != nil {
		return inbound{}, err
	}

	in := inbound{id: cmd.ID, client: cmd.Client}
	switch cmd.ID {
	case wire.CommandSend:
		in.send, in.msg, err = p.deserializer.Send(cmd)
	case wire.CommandRoutingInfo:
		in.routing, err = p.deserializer.RoutingInfo(cmd.Payload)
	default:
		if wire.IsServiceCommand(cmd.ID) {
			in.service, err = p.deserializer.Service(cmd)
		}
	}
	return in, err
}

// OnMessage handles one frame that arrived on from. Malformed and
// unexpected frames are dropped.
func (p *Proxy) OnMessage(frame []byte, from endpoint.Endpoint) {
	p.metrics.received.Inc(1)

	in, err := p.decode(frame)
	if err != nil {
		p.metrics.malformed.Inc(1)
		p.logger.Warn("dropping malformed frame",
			zap.String("address", from.Address()), zap.Error(err))
		return
	}

	switch in.id {
	case wire.CommandPing:
		p.metrics.pings.Inc(1)
		p.sendPong(from)

	case wire.CommandPong:
		p.metrics.pongs.Inc(1)

	case wire.CommandRegisterApplicationAck:
		if in.client != wire.DaemonClient {
			p.unexpected(in, from)
			return
		}
		p.registered()

	case wire.CommandRoutingInfo:
		if in.client != wire.DaemonClient {
			p.unexpected(in, from)
			return
		}
		p.applyRoutingInfo(in.routing)

	case wire.CommandSend:
		p.dispatch(in.msg)

	case wire.CommandSubscribe:
		p.onSubscribe(in.client, groupKey{in.service.Service, in.service.Instance, in.service.Eventgroup})

	case wire.CommandUnsubscribe:
		key := groupKey{in.service.Service, in.service.Instance, in.service.Eventgroup}
		p.events.unsubscribe(key, in.client)
		p.logger.Debug("subscriber left", zap.Stringer("peer", in.client),
			zap.Uint16("eventgroup", uint16(key.eventgroup)))

	default:
		p.unexpected(in, from)
	}
}

func (p *Proxy) unexpected(in inbound, from endpoint.Endpoint) {
	p.metrics.unexpected.Inc(1)
	p.logger.Warn("dropping unexpected frame",
		zap.Stringer("command", in.id),
		zap.Stringer("peer", in.client),
		zap.String("address", from.Address()))
}

// sendPong answers a ping on the endpoint it came from. Datagram server
// endpoints cannot reply, so only pings on stream channels get an answer.
func (p *Proxy) sendPong(from endpoint.Endpoint) {
	p.serializeMu.Lock()
	frame := p.serializer.Control(wire.CommandPong, p.client)
	p.serializeMu.Unlock()

	if err := from.Send(frame, true); err != nil {
		p.metrics.pongFailures.Inc(1)
		p.logger.Warn("failed to answer ping",
			zap.String("address", from.Address()), zap.Error(err))
	}
}

// dispatch hands an application message to the host.
func (p *Proxy) dispatch(msg *wire.Message) {
	if msg.IsRequest() && !p.services.isOwn(serviceKey{msg.Service, msg.Instance}) {
		p.metrics.notOffered.Inc(1)
		p.logger.Warn("dropping request for a service instance this application does not offer",
			zap.Uint16("service", uint16(msg.Service)),
			zap.Uint16("instance", uint16(msg.Instance)),
			zap.Stringer("peer", msg.Client))
		return
	}

	span := p.startSpan(_dispatchOperation, ext.SpanKindRPCServerEnum, msg)
	p.host.OnMessage(msg)
	span.Finish()
}

// onSubscribe records a subscriber of one of our event groups. A new
// subscriber gets the current value of every field in the group right away.
func (p *Proxy) onSubscribe(subscriber wire.ClientID, key groupKey) {
	if !p.events.subscribe(key, subscriber) {
		return
	}
	p.logger.Debug("new subscriber", zap.Stringer("peer", subscriber),
		zap.Uint16("eventgroup", uint16(key.eventgroup)))

	for _, field := range p.events.fieldsIn(key) {
		payload, ok := field.Payload()
		if !ok {
			continue
		}
		if err := p.notify(p.client, subscriber, field, payload); err != nil {
			p.logger.Debug("failed to send initial field value",
				zap.Stringer("peer", subscriber), zap.Error(err))
		}
	}
}

// OnRoutingInfo applies an encoded routing info payload.
func (p *Proxy) OnRoutingInfo(payload []byte) {
	p.deserializeMu.Lock()
	ri, err := p.deserializer.RoutingInfo(payload)
	p.deserializeMu.Unlock()

	if err != nil {
		p.metrics.malformed.Inc(1)
		p.logger.Warn("dropping malformed routing info", zap.Error(err))
		return
	}
	p.applyRoutingInfo(ri)
}

// applyRoutingInfo makes ri the daemon's view: channels to clients that
// left are closed, the host learns what appeared and vanished, and
// subscriptions whose publisher turned out to be local go direct.
func (p *Proxy) applyRoutingInfo(ri wire.RoutingInfo) {
	changes, vanished := p.services.replace(ri)
	p.logger.Debug("routing info updated",
		zap.Int("clients", len(ri.Entries)), zap.Int("changes", len(changes)))

	for _, client := range vanished {
		p.RemoveLocal(client)
	}
	p.dropStaleDirect()

	if len(changes) > 0 {
		p.post(func() {
			for _, c := range changes {
				p.host.OnAvailability(c.key.service, c.key.instance, c.available)
			}
		})
	}

	p.reg.mu.Lock()
	keys := make([]groupKey, 0, len(p.reg.subscriptions))
	for key := range p.reg.subscriptions {
		keys = append(keys, key)
	}
	p.reg.mu.Unlock()

	for _, key := range keys {
		p.subscribeDirect(key)
	}
}

// dropStaleDirect forgets direct subscriptions whose publisher is no longer
// the live owner of the service instance.
func (p *Proxy) dropStaleDirect() {
	p.reg.mu.Lock()
	defer p.reg.mu.Unlock()

	for key, publisher := range p.reg.direct {
		owner, ok := p.services.owner(serviceKey{key.service, key.instance})
		if !ok || owner != publisher || !p.services.isLive(publisher) {
			delete(p.reg.direct, key)
		}
	}
}
