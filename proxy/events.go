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

package proxy

import (
	"sort"
	"sync"

	"go.uber.org/ybus/api/routing"
	"go.uber.org/ybus/wire"
)

type eventKey struct {
	service  wire.ServiceID
	instance wire.InstanceID
	event    wire.EventID
}

type groupKey struct {
	service    wire.ServiceID
	instance   wire.InstanceID
	eventgroup wire.EventgroupID
}

func groupLess(a, b groupKey) bool {
	if a.service != b.service {
		return a.service < b.service
	}
	if a.instance != b.instance {
		return a.instance < b.instance
	}
	return a.eventgroup < b.eventgroup
}

// eventTable holds the events and fields this application publishes, and
// who subscribed to which of its event groups.
type eventTable struct {
	mu          sync.Mutex
	events      map[eventKey]*routing.Event
	subscribers map[groupKey]map[wire.ClientID]struct{}
}

func newEventTable() *eventTable {
	return &eventTable{
		events:      make(map[eventKey]*routing.Event),
		subscribers: make(map[groupKey]map[wire.ClientID]struct{}),
	}
}

// add returns the event for key, creating it if needed, and adds it to
// eventgroup. A field's payload is seeded only when the field is new.
func (t *eventTable) add(key eventKey, eventgroup wire.EventgroupID, isField bool, payload []byte) *routing.Event {
	t.mu.Lock()
	e, ok := t.events[key]
	if !ok {
		e = routing.NewEvent(key.service, key.instance, key.event, isField)
		if isField {
			e.SetPayload(payload)
		}
		t.events[key] = e
	}
	t.mu.Unlock()

	e.AddEventgroup(eventgroup)
	return e
}

// remove detaches e and reports whether it was attached.
func (t *eventTable) remove(e *routing.Event) bool {
	key := eventKey{e.Service(), e.Instance(), e.ID()}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.events[key] != e {
		return false
	}
	delete(t.events, key)
	return true
}

func (t *eventTable) get(key eventKey) *routing.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.events[key]
}

// subscribe adds client to the group and reports whether it is new there.
func (t *eventTable) subscribe(key groupKey, client wire.ClientID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	subs, ok := t.subscribers[key]
	if !ok {
		subs = make(map[wire.ClientID]struct{})
		t.subscribers[key] = subs
	}
	if _, ok := subs[client]; ok {
		return false
	}
	subs[client] = struct{}{}
	return true
}

func (t *eventTable) unsubscribe(key groupKey, client wire.ClientID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if subs, ok := t.subscribers[key]; ok {
		delete(subs, client)
		if len(subs) == 0 {
			delete(t.subscribers, key)
		}
	}
}

// subscribersOf returns everyone subscribed to a group containing e.
func (t *eventTable) subscribersOf(e *routing.Event) []wire.ClientID {
	groups := e.Eventgroups()

	t.mu.Lock()
	seen := make(map[wire.ClientID]struct{})
	for _, g := range groups {
		for client := range t.subscribers[groupKey{e.Service(), e.Instance(), g}] {
			seen[client] = struct{}{}
		}
	}
	t.mu.Unlock()

	clients := make([]wire.ClientID, 0, len(seen))
	for client := range seen {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i] < clients[j] })
	return clients
}

// fieldsIn returns the fields of a group, in event order.
func (t *eventTable) fieldsIn(key groupKey) []*routing.Event {
	t.mu.Lock()
	var fields []*routing.Event
	for k, e := range t.events {
		if k.service == key.service && k.instance == key.instance && e.IsField() && e.InEventgroup(key.eventgroup) {
			fields = append(fields, e)
		}
	}
	t.mu.Unlock()

	sort.Slice(fields, func(i, j int) bool { return fields[i].ID() < fields[j].ID() })
	return fields
}

// purge drops every event and subscription of a service instance.
func (t *eventTable) purge(key serviceKey) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for k := range t.events {
		if k.service == key.service && k.instance == key.instance {
			delete(t.events, k)
		}
	}
	for k := range t.subscribers {
		if k.service == key.service && k.instance == key.instance {
			delete(t.subscribers, k)
		}
	}
}

func (t *eventTable) subscriberCount(key groupKey) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subscribers[key])
}
