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

	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/ybus/api/endpoint"
	"go.uber.org/ybus/wire"
)

// localEndpoint is the registry's handle on the channels to one local
// client. The registry holds one reference and every in-flight send holds
// another; the channels stop when the last reference goes away.
type localEndpoint struct {
	client     wire.ClientID
	reliable   endpoint.Endpoint
	unreliable endpoint.Endpoint

	refs    atomic.Int32
	onClose func(*localEndpoint, error)
}

func newLocalEndpoint(client wire.ClientID, reliable, unreliable endpoint.Endpoint) *localEndpoint {
	e := &localEndpoint{
		client:     client,
		reliable:   reliable,
		unreliable: unreliable,
	}
	e.refs.Store(1)
	return e
}

// acquire takes a reference unless the handle is already closed.
func (e *localEndpoint) acquire() bool {
	for {
		n := e.refs.Load()
		if n <= 0 {
			return false
		}
		if e.refs.CAS(n, n+1) {
			return true
		}
	}
}

func (e *localEndpoint) release() {
	if e.refs.Dec() != 0 {
		return
	}
	err := e.stop()
	if e.onClose != nil {
		e.onClose(e, err)
	}
}

func (e *localEndpoint) channel(reliable bool) endpoint.Endpoint {
	if !reliable && e.unreliable != nil {
		return e.unreliable
	}
	return e.reliable
}

func (e *localEndpoint) owns(ep endpoint.Endpoint) bool {
	return ep == e.reliable || (e.unreliable != nil && ep == e.unreliable)
}

func (e *localEndpoint) start() error {
	if err := e.reliable.Start(); err != nil {
		return err
	}
	if e.unreliable != nil {
		return e.unreliable.Start()
	}
	return nil
}

func (e *localEndpoint) stop() error {
	err := e.reliable.Stop()
	if e.unreliable != nil {
		err = multierr.Append(err, e.unreliable.Stop())
	}
	return err
}

// registry holds at most one localEndpoint per client.
type registry struct {
	mu      sync.Mutex
	entries map[wire.ClientID]*localEndpoint
}

func newRegistry() *registry {
	return &registry{entries: make(map[wire.ClientID]*localEndpoint)}
}

// get returns an acquired handle for client, or nil.
func (r *registry) get(client wire.ClientID) *localEndpoint {
	r.mu.Lock()
	e := r.entries[client]
	r.mu.Unlock()

	if e == nil || !e.acquire() {
		return nil
	}
	return e
}

// peek returns the registered handle without taking a reference.
func (r *registry) peek(client wire.ClientID) *localEndpoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[client]
}

// insert registers e unless an entry for the same client exists. It returns
// an acquired handle for whichever entry is registered afterwards, and
// whether that is e.
func (r *registry) insert(e *localEndpoint) (*localEndpoint, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[e.client]; ok && existing.acquire() {
		return existing, false
	}
	r.entries[e.client] = e
	e.acquire()
	return e, true
}

// remove forgets the entry for client. The caller drops the registry's
// reference on the returned handle.
func (r *registry) remove(client wire.ClientID) *localEndpoint {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.entries[client]
	delete(r.entries, client)
	return e
}

// removeEntry forgets e if it is still registered.
func (r *registry) removeEntry(e *localEndpoint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entries[e.client] != e {
		return false
	}
	delete(r.entries, e.client)
	return true
}

// removeByEndpoint forgets the entry that owns ep.
func (r *registry) removeByEndpoint(ep endpoint.Endpoint) *localEndpoint {
	r.mu.Lock()
	defer r.mu.Unlock()

	for client, e := range r.entries {
		if e.owns(ep) {
			delete(r.entries, client)
			return e
		}
	}
	return nil
}

// drain forgets every entry.
func (r *registry) drain() []*localEndpoint {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := make([]*localEndpoint, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.entries = make(map[wire.ClientID]*localEndpoint)
	return entries
}

func (r *registry) clients() []wire.ClientID {
	r.mu.Lock()
	clients := make([]wire.ClientID, 0, len(r.entries))
	for c := range r.entries {
		clients = append(clients, c)
	}
	r.mu.Unlock()

	sort.Slice(clients, func(i, j int) bool { return clients[i] < clients[j] })
	return clients
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
