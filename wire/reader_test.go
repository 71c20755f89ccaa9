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
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameReader(t *testing.T) {
	s := NewSerializer(0)
	ping := s.Control(CommandPing, 1)
	send := s.Send(1, SendHeader{Target: 2}, newMessage(MessageTypeRequest, []byte("payload")))

	var stream bytes.Buffer
	stream.Write(ping)
	stream.Write(send)

	fr := NewFrameReader(&stream)
	got, err := fr.Next()
	require.NoError(t, err)
	assert.Equal(t, ping, got)

	got, err = fr.Next()
	require.NoError(t, err)
	assert.Equal(t, send, got)

	_, err = fr.Next()
	assert.Equal(t, io.EOF, err)
}

func TestFrameReaderTruncated(t *testing.T) {
	frame := NewSerializer(0).Control(CommandPong, 3)
	fr := NewFrameReader(bytes.NewReader(frame[:len(frame)-2]))
	_, err := fr.Next()
	assert.Equal(t, io.ErrUnexpectedEOF, err)
}

func TestFrameReaderMalformed(t *testing.T) {
	frame := NewSerializer(0).Control(CommandPong, 3)
	frame[0] = 0xAA
	_, err := NewFrameReader(bytes.NewReader(frame)).Next()
	assert.True(t, isMalformed(err))

	frame = NewSerializer(0).Control(CommandPong, 3)
	frame[len(frame)-1] = 0xAA
	_, err = NewFrameReader(bytes.NewReader(frame)).Next()
	assert.True(t, isMalformed(err))
}
