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

var _zeroHeader [CommandHeaderSize]byte

// Serializer encodes frames into an internal scratch buffer. Every returned
// frame is a fresh copy so the caller may hand it to an asynchronous writer.
//
// A Serializer is not safe for concurrent use.
type Serializer struct {
	buf []byte
}

// NewSerializer returns a Serializer with a scratch buffer of the given
// initial capacity.
func NewSerializer(capacity int) *Serializer {
	if capacity < CommandOverhead {
		capacity = CommandOverhead
	}
	return &Serializer{buf: make([]byte, 0, capacity)}
}

// Control serializes a command without payload, such as ping, pong or
// registration.
func (s *Serializer) Control(id CommandID, client ClientID) []byte {
	s.buf = AppendCommand(s.buf[:0], id, client, nil)
	return s.copy()
}

// Service serializes a command of the offer, publish, request or subscribe
// families.
func (s *Serializer) Service(id CommandID, client ClientID, sc ServiceCommand) ([]byte, error) {
	payload, err := appendServiceCommand(s.begin(), id, sc)
	if err != nil {
		return nil, err
	}
	return s.finish(id, client, payload), nil
}

// Send serializes a Send command wrapping m.
func (s *Serializer) Send(client ClientID, h SendHeader, m *Message) []byte {
	payload := appendSendHeader(s.begin(), h)
	payload = AppendMessage(payload, m)
	return s.finish(CommandSend, client, payload)
}

// SendRaw serializes a Send command wrapping an already encoded message.
func (s *Serializer) SendRaw(client ClientID, h SendHeader, message []byte) []byte {
	payload := appendSendHeader(s.begin(), h)
	payload = append(payload, message...)
	return s.finish(CommandSend, client, payload)
}

// RoutingInfo serializes a routing snapshot. Only routing daemons send these.
func (s *Serializer) RoutingInfo(client ClientID, ri RoutingInfo) []byte {
	return s.finish(CommandRoutingInfo, client, appendRoutingInfo(s.begin(), ri))
}

// begin reserves the frame header and returns the buffer positioned at the
// start of the payload.
func (s *Serializer) begin() []byte {
	s.buf = append(s.buf[:0], _zeroHeader[:]...)
	return s.buf
}

// finish fills in the header reserved by begin, terminates the frame and
// returns a copy of it.
func (s *Serializer) finish(id CommandID, client ClientID, frame []byte) []byte {
	binary.BigEndian.PutUint32(frame[0:4], StartTag)
	frame[4] = byte(id)
	binary.BigEndian.PutUint16(frame[5:7], uint16(client))
	binary.BigEndian.PutUint32(frame[7:11], uint32(len(frame)-CommandHeaderSize))
	s.buf = appendUint32(frame, EndTag)
	return s.copy()
}

func (s *Serializer) copy() []byte {
	out := make([]byte, len(s.buf))
	copy(out, s.buf)
	return out
}

// Deserializer decodes frames. It retains scratch space between calls to
// reduce allocations while decoding routing snapshots.
//
// A Deserializer is not safe for concurrent use.
type Deserializer struct {
	entries []RoutingEntry
}

// NewDeserializer returns a Deserializer.
func NewDeserializer() *Deserializer {
	return &Deserializer{}
}

// Command decodes a complete frame. The payload aliases frame.
func (d *Deserializer) Command(frame []byte) (Command, error) {
	return DecodeCommand(frame)
}

// Service decodes the arguments of a service command.
func (d *Deserializer) Service(c Command) (ServiceCommand, error) {
	return decodeServiceCommand(c.ID, c.Payload)
}

// Send decodes the arguments and message of a Send command. The message
// payload is copied and Instance is filled from the send arguments.
func (d *Deserializer) Send(c Command) (SendHeader, *Message, error) {
	if c.ID != CommandSend {
		return SendHeader{}, nil, malformedf("%v is not a send command", c.ID)
	}
	h, rest, err := decodeSendHeader(c.Payload)
	if err != nil {
		return SendHeader{}, nil, err
	}
	m, err := DecodeMessage(rest)
	if err != nil {
		return SendHeader{}, nil, err
	}
	m.Instance = h.Instance
	return h, m, nil
}

// RoutingInfo decodes a routing snapshot payload.
func (d *Deserializer) RoutingInfo(payload []byte) (RoutingInfo, error) {
	ri, scratch, err := decodeRoutingInfo(payload, d.entries)
	d.entries = scratch[:0]
	return ri, err
}
