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

// Package routing defines the application-facing surface of a routing
// manager: the Host that owns it and the operations it offers.
package routing

import (
	"go.uber.org/ybus/pkg/eventloop"
	"go.uber.org/ybus/wire"
)

//go:generate mockgen -destination=routingtest/host.go -package=routingtest go.uber.org/ybus/api/routing Host

// State is the registration state of an application with the routing
// daemon.
type State int

const (
	// Deregistered means the daemon does not currently know this
	// application. Control operations are held until registration.
	Deregistered State = iota
	// Registered means the daemon acknowledged this application.
	Registered
)

func (s State) String() string {
	switch s {
	case Deregistered:
		return "deregistered"
	case Registered:
		return "registered"
	default:
		return "unknown"
	}
}

// Host is the application object that owns a routing manager.
//
// OnState and OnAvailability run on the routing manager's event loop.
// OnMessage runs on the transport goroutine that delivered the message.
type Host interface {
	// Client identifies this application on the bus.
	Client() wire.ClientID

	// OnMessage receives every application message addressed to this
	// application.
	OnMessage(*wire.Message)

	// OnState reports registration changes.
	OnState(State)

	// OnAvailability reports a service instance appearing or vanishing.
	OnAvailability(service wire.ServiceID, instance wire.InstanceID, available bool)

	// OnError reports transport failures that the routing manager cannot
	// recover from on its own, such as losing the daemon connection.
	OnError(error)
}

// RoutingManager is the set of operations an application uses to
// participate on the bus.
type RoutingManager interface {
	Init() error
	Start() error
	Stop() error

	// IO returns the event loop that the embedding process must run.
	IO() *eventloop.Loop

	OfferService(client wire.ClientID, service wire.ServiceID, instance wire.InstanceID, major wire.MajorVersion, minor wire.MinorVersion, ttl wire.TTL) error
	StopOfferService(client wire.ClientID, service wire.ServiceID, instance wire.InstanceID) error

	PublishEventgroup(client wire.ClientID, service wire.ServiceID, instance wire.InstanceID, eventgroup wire.EventgroupID, major wire.MajorVersion, ttl wire.TTL) error
	StopPublishEventgroup(client wire.ClientID, service wire.ServiceID, instance wire.InstanceID, eventgroup wire.EventgroupID) error

	AddEvent(client wire.ClientID, service wire.ServiceID, instance wire.InstanceID, eventgroup wire.EventgroupID, event wire.EventID) *Event
	AddField(client wire.ClientID, service wire.ServiceID, instance wire.InstanceID, eventgroup wire.EventgroupID, event wire.EventID, payload []byte) *Event
	RemoveEventOrField(*Event)

	RequestService(client wire.ClientID, service wire.ServiceID, instance wire.InstanceID, major wire.MajorVersion, minor wire.MinorVersion, ttl wire.TTL) error
	ReleaseService(client wire.ClientID, service wire.ServiceID, instance wire.InstanceID) error

	Subscribe(client wire.ClientID, service wire.ServiceID, instance wire.InstanceID, eventgroup wire.EventgroupID) error
	Unsubscribe(client wire.ClientID, service wire.ServiceID, instance wire.InstanceID, eventgroup wire.EventgroupID) error

	Send(client wire.ClientID, msg *wire.Message, flush, reliable bool) error
	SendRaw(client wire.ClientID, data []byte, instance wire.InstanceID, flush, reliable bool) error
	Set(client wire.ClientID, service wire.ServiceID, instance wire.InstanceID, event wire.EventID, payload []byte) error

	// Services returns a sorted snapshot of every known service offer.
	Services() []wire.ServiceInfo
}
