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
	"fmt"
)

const (
	// StartTag opens every command frame.
	StartTag uint32 = 0x67376D07
	// EndTag closes every command frame.
	EndTag uint32 = 0x076D3767

	// CommandHeaderSize is the size of the frame prefix up to the payload.
	CommandHeaderSize = 11
	// CommandOverhead is the number of bytes a frame adds to its payload.
	CommandOverhead = CommandHeaderSize + 4

	// MaxPayloadSize bounds the payload of a single frame.
	MaxPayloadSize = 1 << 24
)

// CommandID identifies the kind of a command frame.
type CommandID uint8

// Commands exchanged between proxies and the routing daemon.
const (
	CommandRegisterApplication    CommandID = 0x00
	CommandDeregisterApplication  CommandID = 0x01
	CommandRegisterApplicationAck CommandID = 0x02
	CommandRoutingInfo            CommandID = 0x03
	CommandPing                   CommandID = 0x0E
	CommandPong                   CommandID = 0x0F
	CommandOfferService           CommandID = 0x10
	CommandStopOfferService       CommandID = 0x11
	CommandPublishEventgroup      CommandID = 0x12
	CommandStopPublishEventgroup  CommandID = 0x13
	CommandRequestService         CommandID = 0x14
	CommandReleaseService         CommandID = 0x15
	CommandSubscribe              CommandID = 0x16
	CommandUnsubscribe            CommandID = 0x17
	CommandSend                   CommandID = 0x18
)

var _commandNames = map[CommandID]string{
	CommandRegisterApplication:    "register-application",
	CommandDeregisterApplication:  "deregister-application",
	CommandRegisterApplicationAck: "register-application-ack",
	CommandRoutingInfo:            "routing-info",
	CommandPing:                   "ping",
	CommandPong:                   "pong",
	CommandOfferService:           "offer-service",
	CommandStopOfferService:       "stop-offer-service",
	CommandPublishEventgroup:      "publish-eventgroup",
	CommandStopPublishEventgroup:  "stop-publish-eventgroup",
	CommandRequestService:         "request-service",
	CommandReleaseService:         "release-service",
	CommandSubscribe:              "subscribe",
	CommandUnsubscribe:            "unsubscribe",
	CommandSend:                   "send",
}

// String returns the name of the command.
func (c CommandID) String() string {
	if name, ok := _commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("command(0x%02x)", uint8(c))
}

// Valid reports whether c is a known command.
func (c CommandID) Valid() bool {
	_, ok := _commandNames[c]
	return ok
}

// Command is a decoded command frame. Payload aliases the decoded buffer.
type Command struct {
	ID      CommandID
	Client  ClientID
	Payload []byte
}

// AppendCommand appends the frame for (id, client, payload) to dst.
func AppendCommand(dst []byte, id CommandID, client ClientID, payload []byte) []byte {
	var hdr [CommandHeaderSize]byte
	binary.BigEndian.PutUint32(hdr[0:4], StartTag)
	hdr[4] = byte(id)
	binary.BigEndian.PutUint16(hdr[5:7], uint16(client))
	binary.BigEndian.PutUint32(hdr[7:11], uint32(len(payload)))
	dst = append(dst, hdr[:]...)
	dst = append(dst, payload...)
	return appendUint32(dst, EndTag)
}

// EncodeCommand returns a newly allocated frame for c.
func EncodeCommand(c Command) []byte {
	return AppendCommand(make([]byte, 0, CommandOverhead+len(c.Payload)), c.ID, c.Client, c.Payload)
}

// DecodeCommand decodes a single frame. The returned payload aliases frame.
func DecodeCommand(frame []byte) (Command, error) {
	size, err := FrameSize(frame)
	if err != nil {
		return Command{}, err
	}
	if size != len(frame) {
		return Command{}, malformedf("frame is %d bytes, header declares %d", len(frame), size)
	}
	if tag := binary.BigEndian.Uint32(frame[size-4:]); tag != EndTag {
		return Command{}, malformedf("bad end tag 0x%08x", tag)
	}
	id := CommandID(frame[4])
	if !id.Valid() {
		return Command{}, malformedf("unknown command 0x%02x", uint8(id))
	}
	var payload []byte
	if size > CommandOverhead {
		payload = frame[CommandHeaderSize : size-4]
	}
	return Command{
		ID:      id,
		Client:  ClientID(binary.BigEndian.Uint16(frame[5:7])),
		Payload: payload,
	}, nil
}

// FrameSize inspects the header at the start of b and returns the total size
// of the frame it announces.
func FrameSize(b []byte) (int, error) {
	if len(b) < CommandHeaderSize {
		return 0, malformedf("short header: %d bytes", len(b))
	}
	if tag := binary.BigEndian.Uint32(b[0:4]); tag != StartTag {
		return 0, malformedf("bad start tag 0x%08x", tag)
	}
	n := binary.BigEndian.Uint32(b[7:11])
	if n > MaxPayloadSize {
		return 0, malformedf("payload of %d bytes exceeds limit", n)
	}
	return CommandOverhead + int(n), nil
}

func appendUint16(b []byte, v uint16) []byte {
	return append(b, byte(v>>8), byte(v))
}

func appendUint32(b []byte, v uint32) []byte {
	return append(b, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}
