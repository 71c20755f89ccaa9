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

import "encoding/binary"

// ServiceCommand carries the arguments of the offer, publish, request and
// subscribe families of commands. Which fields travel on the wire depends on
// the command; absent fields decode as zero.
type ServiceCommand struct {
	Service    ServiceID
	Instance   InstanceID
	Eventgroup EventgroupID
	Major      MajorVersion
	Minor      MinorVersion
	TTL        TTL
}

type serviceLayout struct {
	eventgroup, major, minor, ttl bool
}

func (l serviceLayout) size() int {
	n := 4
	if l.eventgroup {
		n += 2
	}
	if l.major {
		n++
	}
	if l.minor {
		n += 4
	}
	if l.ttl {
		n += 4
	}
	return n
}

var _serviceLayouts = map[CommandID]serviceLayout{
	CommandOfferService:          {major: true, minor: true, ttl: true},
	CommandStopOfferService:      {},
	CommandPublishEventgroup:     {eventgroup: true, major: true, ttl: true},
	CommandStopPublishEventgroup: {eventgroup: true},
	CommandRequestService:        {major: true, minor: true, ttl: true},
	CommandReleaseService:        {},
	CommandSubscribe:             {eventgroup: true},
	CommandUnsubscribe:           {eventgroup: true},
}

// IsServiceCommand reports whether id carries a ServiceCommand payload.
func IsServiceCommand(id CommandID) bool {
	_, ok := _serviceLayouts[id]
	return ok
}

func appendServiceCommand(dst []byte, id CommandID, sc ServiceCommand) ([]byte, error) {
	layout, ok := _serviceLayouts[id]
	if !ok {
		return dst, malformedf("%v does not carry service arguments", id)
	}
	dst = appendUint16(dst, uint16(sc.Service))
	dst = appendUint16(dst, uint16(sc.Instance))
	if layout.eventgroup {
		dst = appendUint16(dst, uint16(sc.Eventgroup))
	}
	if layout.major {
		dst = append(dst, byte(sc.Major))
	}
	if layout.minor {
		dst = appendUint32(dst, uint32(sc.Minor))
	}
	if layout.ttl {
		dst = appendUint32(dst, uint32(sc.TTL))
	}
	return dst, nil
}

func decodeServiceCommand(id CommandID, b []byte) (ServiceCommand, error) {
	layout, ok := _serviceLayouts[id]
	if !ok {
		return ServiceCommand{}, malformedf("%v does not carry service arguments", id)
	}
	if len(b) != layout.size() {
		return ServiceCommand{}, malformedf("%v payload is %d bytes, want %d", id, len(b), layout.size())
	}
	var sc ServiceCommand
	sc.Service = ServiceID(binary.BigEndian.Uint16(b[0:2]))
	sc.Instance = InstanceID(binary.BigEndian.Uint16(b[2:4]))
	b = b[4:]
	if layout.eventgroup {
		sc.Eventgroup = EventgroupID(binary.BigEndian.Uint16(b[0:2]))
		b = b[2:]
	}
	if layout.major {
		sc.Major = MajorVersion(b[0])
		b = b[1:]
	}
	if layout.minor {
		sc.Minor = MinorVersion(binary.BigEndian.Uint32(b[0:4]))
		b = b[4:]
	}
	if layout.ttl {
		sc.TTL = TTL(binary.BigEndian.Uint32(b[0:4]))
	}
	return sc, nil
}

// SendHeaderSize is the size of the Send command arguments preceding the
// message.
const SendHeaderSize = 6

// MaxMessageSize bounds an encoded message carried by one Send command.
const MaxMessageSize = MaxPayloadSize - SendHeaderSize

// SendHeader carries the routing arguments of a Send command.
type SendHeader struct {
	Instance InstanceID
	Flush    bool
	Reliable bool
	// Target is the client the message is destined for; the routing daemon
	// uses it to relay.
	Target ClientID
}

func appendSendHeader(dst []byte, h SendHeader) []byte {
	dst = appendUint16(dst, uint16(h.Instance))
	dst = append(dst, boolByte(h.Flush), boolByte(h.Reliable))
	return appendUint16(dst, uint16(h.Target))
}

func decodeSendHeader(b []byte) (SendHeader, []byte, error) {
	if len(b) < SendHeaderSize {
		return SendHeader{}, nil, malformedf("send payload is %d bytes", len(b))
	}
	return SendHeader{
		Instance: InstanceID(binary.BigEndian.Uint16(b[0:2])),
		Flush:    b[2] != 0,
		Reliable: b[3] != 0,
		Target:   ClientID(binary.BigEndian.Uint16(b[4:6])),
	}, b[SendHeaderSize:], nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
