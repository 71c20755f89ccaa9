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

package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/ybus/wire"
)

func TestEventGroups(t *testing.T) {
	e := NewEvent(1, 2, 0x8001, false)
	assert.Equal(t, wire.ServiceID(1), e.Service())
	assert.Equal(t, wire.InstanceID(2), e.Instance())
	assert.Equal(t, wire.EventID(0x8001), e.ID())
	assert.False(t, e.IsField())

	assert.True(t, e.AddEventgroup(5))
	assert.True(t, e.AddEventgroup(3))
	assert.False(t, e.AddEventgroup(5))

	assert.True(t, e.InEventgroup(3))
	assert.False(t, e.InEventgroup(4))
	assert.Equal(t, []wire.EventgroupID{3, 5}, e.Eventgroups())
}

func TestEventPayload(t *testing.T) {
	e := NewEvent(1, 2, 3, false)
	e.SetPayload([]byte("ignored"))
	_, ok := e.Payload()
	assert.False(t, ok, "plain events do not cache payloads")

	f := NewEvent(1, 2, 3, true)
	_, ok = f.Payload()
	assert.False(t, ok)

	in := []byte("value")
	f.SetPayload(in)
	in[0] = 'X'

	got, ok := f.Payload()
	assert.True(t, ok)
	assert.Equal(t, "value", string(got))

	got[0] = 'Y'
	again, _ := f.Payload()
	assert.Equal(t, "value", string(again))

	f.SetPayload(nil)
	got, ok = f.Payload()
	assert.True(t, ok, "an empty value is still a value")
	assert.Empty(t, got)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "registered", Registered.String())
	assert.Equal(t, "deregistered", Deregistered.String())
	assert.Equal(t, "unknown", State(7).String())
}
