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

// Package routingdaemontest provides a minimal routing daemon for tests. It
// registers applications, relays sends and subscriptions, and broadcasts
// routing info to every registered application.
package routingdaemontest

import (
	"sort"
	"sync"

	"go.uber.org/ybus/api/endpoint"
	"go.uber.org/ybus/wire"
	"go.uber.org/zap"
)

// Option customizes a Daemon.
type Option func(*Daemon)

// WithoutAck makes the daemon ignore registrations until AckAll is called.
func WithoutAck() Option {
	return func(d *Daemon) {
		d.withholdAck = true
	}
}

// ManualRoutingInfo stops automatic routing info broadcasts; tests call
// BroadcastRoutingInfo instead.
func ManualRoutingInfo() Option {
	return func(d *Daemon) {
		d.manualRouting = true
	}
}

// Logger sets the daemon's logger.
func Logger(logger *zap.Logger) Option {
	return func(d *Daemon) {
		d.logger = logger
	}
}

type serviceKey struct {
	service  wire.ServiceID
	instance wire.InstanceID
}

type groupKey struct {
	service    wire.ServiceID
	instance   wire.InstanceID
	eventgroup wire.EventgroupID
}

// Daemon is a fake routing daemon listening on the daemon's well-known
// address.
type Daemon struct {
	server        endpoint.Endpoint
	logger        *zap.Logger
	withholdAck   bool
	manualRouting bool

	mu          sync.Mutex
	serializer  *wire.Serializer
	conns       map[wire.ClientID]endpoint.Endpoint
	pendingAcks map[wire.ClientID]endpoint.Endpoint
	offers      map[serviceKey]wire.ServiceInfo
	subscribers map[groupKey]map[wire.ClientID]struct{}
	received    []wire.Command
}

// New builds a daemon on t under prefix.
func New(t endpoint.Transport, prefix string, opts ...Option) (*Daemon, error) {
	d := &Daemon{
		logger:      zap.NewNop(),
		serializer:  wire.NewSerializer(256),
		conns:       make(map[wire.ClientID]endpoint.Endpoint),
		pendingAcks: make(map[wire.ClientID]endpoint.Endpoint),
		offers:      make(map[serviceKey]wire.ServiceInfo),
		subscribers: make(map[groupKey]map[wire.ClientID]struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}

	server, err := t.NewServerEndpoint(endpoint.Address(prefix, wire.DaemonClient, true), true, d)
	if err != nil {
		return nil, err
	}
	d.server = server
	return d, nil
}

// Start listens.
func (d *Daemon) Start() error { return d.server.Start() }

// Stop closes every connection.
func (d *Daemon) Stop() error { return d.server.Stop() }

// OnConnect implements endpoint.Host.
func (d *Daemon) OnConnect(endpoint.Endpoint) {}

// OnDisconnect implements endpoint.Host. A client whose connection ends is
// deregistered.
func (d *Daemon) OnDisconnect(ep endpoint.Endpoint, _ error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for client, conn := range d.conns {
		if conn == ep {
			d.forgetLocked(client)
			d.broadcastLocked(false)
		}
	}
}

// OnMessage implements endpoint.Host.
func (d *Daemon) OnMessage(frame []byte, from endpoint.Endpoint) {
	cmd, err := wire.DecodeCommand(frame)
	if err != nil {
		d.logger.Warn("daemon dropping malformed frame", zap.Error(err))
		return
	}
	cmd.Payload = append([]byte(nil), cmd.Payload...)

	d.mu.Lock()
	defer d.mu.Unlock()

	d.received = append(d.received, cmd)
	des := wire.NewDeserializer()

	switch cmd.ID {
	case wire.CommandRegisterApplication:
		if d.withholdAck {
			d.pendingAcks[cmd.Client] = from
			return
		}
		d.conns[cmd.Client] = from
		d.sendLocked(from, d.serializer.Control(wire.CommandRegisterApplicationAck, wire.DaemonClient))
		d.broadcastLocked(false)

	case wire.CommandDeregisterApplication:
		d.forgetLocked(cmd.Client)
		d.broadcastLocked(false)

	case wire.CommandOfferService:
		sc, err := des.Service(cmd)
		if err != nil {
			return
		}
		d.offers[serviceKey{sc.Service, sc.Instance}] = wire.ServiceInfo{
			Service:  sc.Service,
			Instance: sc.Instance,
			Client:   cmd.Client,
			Major:    sc.Major,
			Minor:    sc.Minor,
			TTL:      sc.TTL,
		}
		d.broadcastLocked(false)

	case wire.CommandStopOfferService:
		sc, err := des.Service(cmd)
		if err != nil {
			return
		}
		delete(d.offers, serviceKey{sc.Service, sc.Instance})
		d.broadcastLocked(false)

	case wire.CommandSubscribe, wire.CommandUnsubscribe:
		sc, err := des.Service(cmd)
		if err != nil {
			return
		}
		key := groupKey{sc.Service, sc.Instance, sc.Eventgroup}
		if cmd.ID == wire.CommandSubscribe {
			if d.subscribers[key] == nil {
				d.subscribers[key] = make(map[wire.ClientID]struct{})
			}
			d.subscribers[key][cmd.Client] = struct{}{}
		} else {
			delete(d.subscribers[key], cmd.Client)
		}
		if owner, ok := d.offers[serviceKey{sc.Service, sc.Instance}]; ok {
			if conn, ok := d.conns[owner.Client]; ok {
				d.sendLocked(conn, wire.EncodeCommand(cmd))
			}
		}

	case wire.CommandSend:
		h, msg, err := des.Send(cmd)
		if err != nil {
			return
		}
		target := h.Target
		if msg.IsRequest() {
			if owner, ok := d.offers[serviceKey{msg.Service, h.Instance}]; ok {
				target = owner.Client
			}
		}
		if conn, ok := d.conns[target]; ok {
			d.sendLocked(conn, wire.EncodeCommand(cmd))
		}
	}
}

// AckAll acknowledges every withheld registration and acks future ones
// immediately.
func (d *Daemon) AckAll() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.withholdAck = false
	for client, conn := range d.pendingAcks {
		d.conns[client] = conn
		d.sendLocked(conn, d.serializer.Control(wire.CommandRegisterApplicationAck, wire.DaemonClient))
	}
	d.pendingAcks = make(map[wire.ClientID]endpoint.Endpoint)
	d.broadcastLocked(false)
}

// BroadcastRoutingInfo sends the current routing info to every registered
// client, even in manual mode.
func (d *Daemon) BroadcastRoutingInfo() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.broadcastLocked(true)
}

// Ping sends a ping to a registered client.
func (d *Daemon) Ping(client wire.ClientID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	conn, ok := d.conns[client]
	if ok {
		d.sendLocked(conn, d.serializer.Control(wire.CommandPing, wire.DaemonClient))
	}
	return ok
}

// Registered reports whether client is registered.
func (d *Daemon) Registered(client wire.ClientID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.conns[client]
	return ok
}

// Received returns the commands received so far with one of the given ids,
// or every command if none are given.
func (d *Daemon) Received(ids ...wire.CommandID) []wire.Command {
	d.mu.Lock()
	defer d.mu.Unlock()

	var cmds []wire.Command
	for _, cmd := range d.received {
		if len(ids) == 0 || containsID(ids, cmd.ID) {
			cmds = append(cmds, cmd)
		}
	}
	return cmds
}

// Offers returns the offers the daemon knows of.
func (d *Daemon) Offers() []wire.ServiceInfo {
	d.mu.Lock()
	defer d.mu.Unlock()

	infos := make([]wire.ServiceInfo, 0, len(d.offers))
	for _, info := range d.offers {
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Service != infos[j].Service {
			return infos[i].Service < infos[j].Service
		}
		return infos[i].Instance < infos[j].Instance
	})
	return infos
}

func containsID(ids []wire.CommandID, id wire.CommandID) bool {
	for _, want := range ids {
		if want == id {
			return true
		}
	}
	return false
}

func (d *Daemon) forgetLocked(client wire.ClientID) {
	delete(d.conns, client)
	for key, info := range d.offers {
		if info.Client == client {
			delete(d.offers, key)
		}
	}
	for _, subs := range d.subscribers {
		delete(subs, client)
	}
}

func (d *Daemon) routingInfoLocked() wire.RoutingInfo {
	clients := make([]wire.ClientID, 0, len(d.conns))
	for client := range d.conns {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i] < clients[j] })

	var ri wire.RoutingInfo
	for _, client := range clients {
		entry := wire.RoutingEntry{Client: client}
		for _, info := range d.offers {
			if info.Client == client {
				entry.Services = append(entry.Services, info)
			}
		}
		sort.Slice(entry.Services, func(i, j int) bool {
			if entry.Services[i].Service != entry.Services[j].Service {
				return entry.Services[i].Service < entry.Services[j].Service
			}
			return entry.Services[i].Instance < entry.Services[j].Instance
		})
		ri.Entries = append(ri.Entries, entry)
	}
	return ri
}

func (d *Daemon) broadcastLocked(force bool) {
	if d.manualRouting && !force {
		return
	}
	frame := d.serializer.RoutingInfo(wire.DaemonClient, d.routingInfoLocked())
	for _, conn := range d.conns {
		d.sendLocked(conn, frame)
	}
}

func (d *Daemon) sendLocked(conn endpoint.Endpoint, frame []byte) {
	if err := conn.Send(frame, true); err != nil {
		d.logger.Debug("daemon send failed", zap.Error(err))
	}
}
