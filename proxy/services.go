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

	"go.uber.org/ybus/wire"
)

type serviceKey struct {
	service  wire.ServiceID
	instance wire.InstanceID
}

// availability is a service instance appearing or vanishing.
type availability struct {
	key       serviceKey
	available bool
}

// serviceTable maps service instances to the local clients offering them.
// This application's own offers take precedence over what the daemon
// reports.
type serviceTable struct {
	mu     sync.RWMutex
	own    map[serviceKey]wire.ServiceInfo
	remote map[serviceKey]wire.ServiceInfo
	live   map[wire.ClientID]struct{}
}

func newServiceTable() *serviceTable {
	return &serviceTable{
		own:    make(map[serviceKey]wire.ServiceInfo),
		remote: make(map[serviceKey]wire.ServiceInfo),
		live:   make(map[wire.ClientID]struct{}),
	}
}

// offer records or replaces an own offer.
func (t *serviceTable) offer(info wire.ServiceInfo) {
	t.mu.Lock()
	t.own[serviceKey{info.Service, info.Instance}] = info
	t.mu.Unlock()
}

// stopOffer forgets an own offer and reports whether there was one.
func (t *serviceTable) stopOffer(key serviceKey) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.own[key]
	delete(t.own, key)
	return ok
}

func (t *serviceTable) isOwn(key serviceKey) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	_, ok := t.own[key]
	return ok
}

// owner returns the client offering key.
func (t *serviceTable) owner(key serviceKey) (wire.ClientID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if info, ok := t.own[key]; ok {
		return info.Client, true
	}
	if info, ok := t.remote[key]; ok {
		return info.Client, true
	}
	return 0, false
}

// isLive reports whether client was named in the latest routing info.
func (t *serviceTable) isLive(client wire.ClientID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	_, ok := t.live[client]
	return ok
}

// replace swaps in the daemon's view. It returns the availability changes of
// the merged table and the clients that are no longer live.
func (t *serviceTable) replace(ri wire.RoutingInfo) ([]availability, []wire.ClientID) {
	remote := make(map[serviceKey]wire.ServiceInfo)
	live := make(map[wire.ClientID]struct{}, len(ri.Entries))
	for _, entry := range ri.Entries {
		live[entry.Client] = struct{}{}
		for _, info := range entry.Services {
			remote[serviceKey{info.Service, info.Instance}] = info
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	var changes []availability
	for key := range t.remote {
		if _, own := t.own[key]; own {
			continue
		}
		if _, still := remote[key]; !still {
			changes = append(changes, availability{key: key, available: false})
		}
	}
	for key := range remote {
		if _, own := t.own[key]; own {
			continue
		}
		if _, known := t.remote[key]; !known {
			changes = append(changes, availability{key: key, available: true})
		}
	}

	var vanished []wire.ClientID
	for client := range t.live {
		if _, ok := live[client]; !ok {
			vanished = append(vanished, client)
		}
	}

	t.remote = remote
	t.live = live

	sort.Slice(changes, func(i, j int) bool { return keyLess(changes[i].key, changes[j].key) })
	sort.Slice(vanished, func(i, j int) bool { return vanished[i] < vanished[j] })
	return changes, vanished
}

// snapshot returns one record per service instance, sorted.
func (t *serviceTable) snapshot() []wire.ServiceInfo {
	t.mu.RLock()
	infos := make([]wire.ServiceInfo, 0, len(t.own)+len(t.remote))
	for _, info := range t.own {
		infos = append(infos, info)
	}
	for key, info := range t.remote {
		if _, own := t.own[key]; !own {
			infos = append(infos, info)
		}
	}
	t.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		return keyLess(
			serviceKey{infos[i].Service, infos[i].Instance},
			serviceKey{infos[j].Service, infos[j].Instance},
		)
	})
	return infos
}

func keyLess(a, b serviceKey) bool {
	if a.service != b.service {
		return a.service < b.service
	}
	return a.instance < b.instance
}
