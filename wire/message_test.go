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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isMalformed(err error) bool {
	return errors.Is(err, ErrMalformed)
}

func newMessage(typ MessageType, payload []byte) *Message {
	return &Message{
		Header: Header{
			Service:          0x1234,
			Method:           0x8001,
			Client:           0x0101,
			Session:          0x0042,
			ProtocolVersion:  ProtocolVersion,
			InterfaceVersion: 2,
			Type:             typ,
			ReturnCode:       ReturnCodeOK,
		},
		Instance: 0x5678,
		Payload:  payload,
	}
}

func TestSendRoundTripAllMessageTypes(t *testing.T) {
	types := []MessageType{
		MessageTypeRequest,
		MessageTypeRequestNoReturn,
		MessageTypeNotification,
		MessageTypeResponse,
		MessageTypeError,
	}
	s := NewSerializer(0)
	d := NewDeserializer()
	for _, typ := range types {
		for _, payload := range [][]byte{nil, []byte("hello"), make([]byte, 4096)} {
			t.Run(typ.String(), func(t *testing.T) {
				give := newMessage(typ, payload)
				header := SendHeader{Instance: give.Instance, Flush: true, Reliable: typ == MessageTypeRequest, Target: 0x0202}
				frame := s.Send(0x0101, header, give)

				cmd, err := d.Command(frame)
				require.NoError(t, err)
				assert.Equal(t, CommandSend, cmd.ID)
				assert.Equal(t, ClientID(0x0101), cmd.Client)

				gotHeader, got, err := d.Send(cmd)
				require.NoError(t, err)
				assert.Equal(t, header, gotHeader)
				assert.Equal(t, give, got)
			})
		}
	}
}

func TestSendRawMatchesSend(t *testing.T) {
	s := NewSerializer(0)
	m := newMessage(MessageTypeNotification, []byte{1, 2, 3})
	h := SendHeader{Instance: m.Instance, Target: 9}

	raw := AppendMessage(nil, m)
	assert.Equal(t, s.Send(1, h, m), s.SendRaw(1, h, raw))
}

func TestDecodeMessageCopiesPayload(t *testing.T) {
	raw := AppendMessage(nil, newMessage(MessageTypeResponse, []byte("abc")))
	m, err := DecodeMessage(raw)
	require.NoError(t, err)
	raw[MessageHeaderSize] = 'z'
	assert.Equal(t, []byte("abc"), m.Payload)
}

func TestDecodeMessageMalformed(t *testing.T) {
	raw := AppendMessage(nil, newMessage(MessageTypeRequest, []byte("abc")))

	badType := append([]byte(nil), raw...)
	badType[14] = 0x55

	badLength := append([]byte(nil), raw...)
	badLength[7] = 0x01

	tests := []struct {
		msg string
		b   []byte
	}{
		{msg: "short", b: raw[:10]},
		{msg: "bad type", b: badType},
		{msg: "bad length", b: badLength},
		{msg: "truncated payload", b: raw[:len(raw)-1]},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			_, err := DecodeMessage(tt.b)
			assert.True(t, isMalformed(err), "got %v", err)

			_, err = ValidateMessage(tt.b)
			assert.True(t, isMalformed(err), "got %v", err)
		})
	}
}

func TestValidateMessage(t *testing.T) {
	m := newMessage(MessageTypeNotification, []byte("payload"))
	h, err := ValidateMessage(AppendMessage(nil, m))
	require.NoError(t, err)
	assert.Equal(t, m.Header, h)

	padded := append(AppendMessage(nil, m), 0)
	_, err = ValidateMessage(padded)
	assert.True(t, isMalformed(err), "got %v", err)
}

func TestDeserializeSendMalformed(t *testing.T) {
	d := NewDeserializer()

	_, _, err := d.Send(Command{ID: CommandPing})
	assert.True(t, isMalformed(err))

	_, _, err = d.Send(Command{ID: CommandSend, Payload: []byte{1, 2}})
	assert.True(t, isMalformed(err))

	_, _, err = d.Send(Command{ID: CommandSend, Payload: make([]byte, SendHeaderSize+3)})
	assert.True(t, isMalformed(err))
}

func TestParseHeader(t *testing.T) {
	m := newMessage(MessageTypeRequestNoReturn, []byte("x"))
	h, err := ParseHeader(AppendMessage(nil, m))
	require.NoError(t, err)
	assert.Equal(t, m.Header, h)
	assert.True(t, IsRequest(h.Type))
	assert.False(t, IsRequest(MessageTypeNotification))
	assert.False(t, IsRequest(MessageTypeResponse))
}

func TestMessageTypeString(t *testing.T) {
	assert.Equal(t, "notification", MessageTypeNotification.String())
	assert.Equal(t, "message-type(0x55)", MessageType(0x55).String())
}
