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

package wire

import "fmt"

// ClientID names one application process attached to the bus.
type ClientID uint16

// DaemonClient is the client identifier reserved for the routing daemon.
const DaemonClient ClientID = 0x0000

// String formats the client as four hex digits.
func (c ClientID) String() string {
	return fmt.Sprintf("%04x", uint16(c))
}

// ServiceID names a service.
type ServiceID uint16

// InstanceID names a running instance of a service.
type InstanceID uint16

// MethodID names a method or, for notifications, an event.
type MethodID uint16

// EventID names a publishable data element. Events share the method
// identifier space.
type EventID = MethodID

// EventgroupID names a set of events that are subscribed to as a unit.
type EventgroupID uint16

// SessionID correlates requests and responses.
type SessionID uint16

// MajorVersion is the interface major version of a service.
type MajorVersion uint8

// MinorVersion is the interface minor version of a service.
type MinorVersion uint32

// TTL is the time-to-live attached to offers and requests, in seconds.
type TTL uint32

// AnyMajor matches every major version.
const AnyMajor MajorVersion = 0xFF

// AnyMinor matches every minor version.
const AnyMinor MinorVersion = 0xFFFFFFFF

// ServiceInfo is a service-offer record: the client that currently offers
// (service, instance), and the version and ttl it offered with.
type ServiceInfo struct {
	Service  ServiceID
	Instance InstanceID
	Client   ClientID
	Major    MajorVersion
	Minor    MinorVersion
	TTL      TTL
}
