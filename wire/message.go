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
	// MessageHeaderSize is the fixed size of a message header.
	MessageHeaderSize = 16

	// ProtocolVersion is the only supported message protocol version.
	ProtocolVersion uint8 = 0x01

	// lengthCovered is the number of header bytes counted by the length
	// field, following it.
	lengthCovered = 8
)

// MessageType classifies a message.
type MessageType uint8

// Message types.
const (
	MessageTypeRequest         MessageType = 0x00
	MessageTypeRequestNoReturn MessageType = 0x01
	MessageTypeNotification    MessageType = 0x02
	MessageTypeResponse        MessageType = 0x80
	MessageTypeError           MessageType = 0x81
)

var _messageTypeNames = map[MessageType]string{
	MessageTypeRequest:         "request",
	MessageTypeRequestNoReturn: "request-no-return",
	MessageTypeNotification:    "notification",
	MessageTypeResponse:        "response",
	MessageTypeError:           "error",
}

func (t MessageType) String() string {
	if name, ok := _messageTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("message-type(0x%02x)", uint8(t))
}

// IsRequest reports whether messages of type t are addressed to the service
// provider rather than to a client.
func IsRequest(t MessageType) bool {
	return t == MessageTypeRequest || t == MessageTypeRequestNoReturn
}

// ReturnCode is the result code of a response or error.
type ReturnCode uint8

// ReturnCodeOK is the return code of successful responses.
const ReturnCodeOK ReturnCode = 0x00

// Header is the fixed header of a message.
type Header struct {
	Service          ServiceID
	Method           MethodID
	Client           ClientID
	Session          SessionID
	ProtocolVersion  uint8
	InterfaceVersion MajorVersion
	Type             MessageType
	ReturnCode       ReturnCode
}

// Message is the decoded form of application traffic on the bus.
type Message struct {
	Header

	// Instance is carried by the enclosing Send command, not the header.
	Instance InstanceID
	Payload  []byte
}

// IsRequest reports whether m is addressed to its service provider.
func (m *Message) IsRequest() bool {
	return IsRequest(m.Type)
}

// AppendMessage appends the encoded form of m (without Instance) to dst.
func AppendMessage(dst []byte, m *Message) []byte {
	var hdr [MessageHeaderSize]byte
	binary.BigEndian.PutUint16(hdr[0:2], uint16(m.Service))
	binary.BigEndian.PutUint16(hdr[2:4], uint16(m.Method))
	binary.BigEndian.PutUint32(hdr[4:8], uint32(lengthCovered+len(m.Payload)))
	binary.BigEndian.PutUint16(hdr[8:10], uint16(m.Client))
	binary.BigEndian.PutUint16(hdr[10:12], uint16(m.Session))
	hdr[12] = m.ProtocolVersion
	hdr[13] = byte(m.InterfaceVersion)
	hdr[14] = byte(m.Type)
	hdr[15] = byte(m.ReturnCode)
	dst = append(dst, hdr[:]...)
	return append(dst, m.Payload...)
}

// ParseHeader decodes the message header at the start of b.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < MessageHeaderSize {
		return Header{}, malformedf("short message header: %d bytes", len(b))
	}
	h := Header{
		Service:          ServiceID(binary.BigEndian.Uint16(b[0:2])),
		Method:           MethodID(binary.BigEndian.Uint16(b[2:4])),
		Client:           ClientID(binary.BigEndian.Uint16(b[8:10])),
		Session:          SessionID(binary.BigEndian.Uint16(b[10:12])),
		ProtocolVersion:  b[12],
		InterfaceVersion: MajorVersion(b[13]),
		Type:             MessageType(b[14]),
		ReturnCode:       ReturnCode(b[15]),
	}
	if _, ok := _messageTypeNames[h.Type]; !ok {
		return Header{}, malformedf("unknown message type 0x%02x", uint8(h.Type))
	}
	return h, nil
}

// ValidateMessage parses the header of the encoded message b and checks that
// its length field covers exactly the rest of b.
func ValidateMessage(b []byte) (Header, error) {
	h, err := ParseHeader(b)
	if err != nil {
		return Header{}, err
	}
	length := binary.BigEndian.Uint32(b[4:8])
	if int64(length) != int64(len(b)-lengthCovered) {
		return Header{}, malformedf("message declares length %d, have %d", length, len(b)-lengthCovered)
	}
	return h, nil
}

// DecodeMessage decodes a message. The payload is copied out of b.
func DecodeMessage(b []byte) (*Message, error) {
	h, err := ValidateMessage(b)
	if err != nil {
		return nil, err
	}
	m := &Message{Header: h}
	if n := len(b) - MessageHeaderSize; n > 0 {
		m.Payload = make([]byte, n)
		copy(m.Payload, b[MessageHeaderSize:])
	}
	return m, nil
}
