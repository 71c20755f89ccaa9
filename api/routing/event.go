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
	"sort"
	"sync"

	"go.uber.org/ybus/wire"
)

// Event is a publishable data element of a service instance. A field is an
// event that remembers its last value so new subscribers receive it
// immediately.
type Event struct {
	service  wire.ServiceID
	instance wire.InstanceID
	id       wire.EventID
	isField  bool

	mu         sync.Mutex
	groups     map[wire.EventgroupID]struct{}
	payload    []byte
	hasPayload bool
}

// NewEvent returns an event that belongs to no event group yet.
func NewEvent(service wire.ServiceID, instance wire.InstanceID, id wire.EventID, isField bool) *Event {
	return &Event{
		service:  service,
		instance: instance,
		id:       id,
		isField:  isField,
		groups:   make(map[wire.EventgroupID]struct{}),
	}
}

// Service of the event.
func (e *Event) Service() wire.ServiceID { return e.service }

// Instance of the event.
func (e *Event) Instance() wire.InstanceID { return e.instance }

// ID of the event.
func (e *Event) ID() wire.EventID { return e.id }

// IsField reports whether the event caches its payload.
func (e *Event) IsField() bool { return e.isField }

// AddEventgroup adds the event to an event group. It reports whether the
// group is new for this event.
func (e *Event) AddEventgroup(g wire.EventgroupID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.groups[g]; ok {
		return false
	}
	e.groups[g] = struct{}{}
	return true
}

// InEventgroup reports whether the event belongs to g.
func (e *Event) InEventgroup(g wire.EventgroupID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, ok := e.groups[g]
	return ok
}

// Eventgroups returns the groups of the event in ascending order.
func (e *Event) Eventgroups() []wire.EventgroupID {
	e.mu.Lock()
	groups := make([]wire.EventgroupID, 0, len(e.groups))
	for g := range e.groups {
		groups = append(groups, g)
	}
	e.mu.Unlock()

	sort.Slice(groups, func(i, j int) bool { return groups[i] < groups[j] })
	return groups
}

// SetPayload replaces the cached payload. Events that are not fields ignore
// it.
func (e *Event) SetPayload(p []byte) {
	if !e.isField {
		return
	}

	e.mu.Lock()
	e.payload = append(e.payload[:0], p...)
	e.hasPayload = true
	e.mu.Unlock()
}

// Payload returns a copy of the cached payload and whether one was ever
// set.
func (e *Event) Payload() ([]byte, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.hasPayload {
		return nil, false
	}
	return append([]byte(nil), e.payload...), true
}
