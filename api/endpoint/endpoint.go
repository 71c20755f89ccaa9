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

// Package endpoint defines the narrow transport surface the routing proxy is
// built on. A transport produces Endpoints; each Endpoint reports connection
// changes and inbound frames to its Host.
package endpoint

import (
	"fmt"

	"go.uber.org/ybus/wire"
)

//go:generate mockgen -destination=endpointtest/endpoint.go -package=endpointtest go.uber.org/ybus/api/endpoint Endpoint,Host,Transport

// DatagramSuffix is appended to the address of unreliable channels.
const DatagramSuffix = ".dgram"

// Endpoint is one local channel. A client endpoint connects to one peer; a
// server endpoint accepts connections, each of which is reported to the Host
// as an Endpoint of its own.
type Endpoint interface {
	// Start begins connecting or listening. Host callbacks may run on the
	// transport's goroutines as soon as Start returns.
	Start() error

	// Stop closes the endpoint and everything it accepted. Stop is
	// idempotent.
	Stop() error

	// IsRunning reports whether the endpoint is started and not stopped.
	IsRunning() bool

	// Send hands one frame to the endpoint for asynchronous transmission.
	// Frames sent with flush unset may be held back and written together
	// with a later flushed frame. Send never blocks on the peer.
	Send(frame []byte, flush bool) error

	// Address is the name the endpoint connects to or listens on.
	Address() string

	// IsReliable reports whether this is an ordered stream channel rather
	// than a datagram channel.
	IsReliable() bool
}

// Host receives callbacks from endpoints.
type Host interface {
	// OnConnect is called when a client endpoint establishes its connection
	// or a server endpoint accepts one.
	OnConnect(Endpoint)

	// OnDisconnect is called when a connection ends. err is nil when the
	// endpoint was stopped locally.
	OnDisconnect(Endpoint, error)

	// OnMessage is called with every complete inbound frame. from is the
	// endpoint a reply should be sent on. frame is only valid for the
	// duration of the call.
	OnMessage(frame []byte, from Endpoint)
}

// Transport builds endpoints. Constructors perform no I/O.
type Transport interface {
	NewClientEndpoint(addr string, reliable bool, host Host) (Endpoint, error)
	NewServerEndpoint(addr string, reliable bool, host Host) (Endpoint, error)
}

// Address returns the well-known address of a client's channel. The routing
// daemon listens on Address(prefix, wire.DaemonClient, true).
func Address(prefix string, client wire.ClientID, reliable bool) string {
	addr := fmt.Sprintf("%s-%04x", prefix, uint16(client))
	if !reliable {
		addr += DatagramSuffix
	}
	return addr
}
