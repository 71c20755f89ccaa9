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

import (
	"encoding/binary"
	"sort"
)

const serviceEntrySize = 13

// RoutingEntry lists the services offered by one live local client.
type RoutingEntry struct {
	Client   ClientID
	Services []ServiceInfo
}

// RoutingInfo is the bus-wide routing snapshot pushed by the routing daemon.
// Every client it names is live on this host.
type RoutingInfo struct {
	Entries []RoutingEntry
}

// Clients returns the clients named in the snapshot, sorted.
func (ri RoutingInfo) Clients() []ClientID {
	clients := make([]ClientID, 0, len(ri.Entries))
	for _, e := range ri.Entries {
		clients = append(clients, e.Client)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i] < clients[j] })
	return clients
}

func appendRoutingInfo(dst []byte, ri RoutingInfo) []byte {
	for _, e := range ri.Entries {
		dst = appendUint16(dst, uint16(e.Client))
		dst = appendUint32(dst, uint32(len(e.Services)*serviceEntrySize))
		for _, s := range e.Services {
			dst = appendUint16(dst, uint16(s.Service))
			dst = appendUint16(dst, uint16(s.Instance))
			dst = append(dst, byte(s.Major))
			dst = appendUint32(dst, uint32(s.Minor))
			dst = appendUint32(dst, uint32(s.TTL))
		}
	}
	return dst
}

func decodeRoutingInfo(b []byte, scratch []RoutingEntry) (RoutingInfo, []RoutingEntry, error) {
	entries := scratch[:0]
	for len(b) > 0 {
		if len(b) < 6 {
			return RoutingInfo{}, entries, malformedf("truncated routing entry: %d bytes", len(b))
		}
		client := ClientID(binary.BigEndian.Uint16(b[0:2]))
		size := binary.BigEndian.Uint32(b[2:6])
		b = b[6:]
		if size%serviceEntrySize != 0 || int(size) > len(b) {
			return RoutingInfo{}, entries, malformedf("routing entry for client %v declares %d bytes", client, size)
		}
		e := RoutingEntry{Client: client}
		if size > 0 {
			e.Services = make([]ServiceInfo, 0, size/serviceEntrySize)
		}
		for s := b[:size]; len(s) > 0; s = s[serviceEntrySize:] {
			e.Services = append(e.Services, ServiceInfo{
				Service:  ServiceID(binary.BigEndian.Uint16(s[0:2])),
				Instance: InstanceID(binary.BigEndian.Uint16(s[2:4])),
				Client:   client,
				Major:    MajorVersion(s[4]),
				Minor:    MinorVersion(binary.BigEndian.Uint32(s[5:9])),
				TTL:      TTL(binary.BigEndian.Uint32(s[9:13])),
			})
		}
		b = b[size:]
		entries = append(entries, e)
	}
	out := make([]RoutingEntry, len(entries))
	copy(out, entries)
	return RoutingInfo{Entries: out}, entries, nil
}
