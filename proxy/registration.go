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
	"time"

	"go.uber.org/atomic"
	backoffapi "go.uber.org/ybus/api/backoff"
	"go.uber.org/ybus/api/routing"
	"go.uber.org/ybus/wire"
	"go.uber.org/ybus/ybuserrors"
	"go.uber.org/zap"
)

// held is a control command kept for replay after every registration.
type held struct {
	id     wire.CommandID
	client wire.ClientID
	sc     wire.ServiceCommand
}

// registration tracks the handshake with the daemon and everything the
// daemon must be told again whenever it acknowledges us.
type registration struct {
	mu         sync.Mutex
	registered atomic.Int32
	epoch      uint64
	attempts   uint
	backoff    backoffapi.Backoff
	timer      *time.Timer

	offers        map[serviceKey]held
	publications  map[groupKey]held
	requests      map[serviceKey]held
	subscriptions map[groupKey]held

	// direct maps our subscriptions to the local publisher we subscribed
	// with directly.
	direct map[groupKey]wire.ClientID
}

func newRegistration() *registration {
	return &registration{
		offers:        make(map[serviceKey]held),
		publications:  make(map[groupKey]held),
		requests:      make(map[serviceKey]held),
		subscriptions: make(map[groupKey]held),
		direct:        make(map[groupKey]wire.ClientID),
	}
}

func (r *registration) isRegistered() bool {
	return r.registered.Load() == 1
}

// setRegistered must be called with mu held. It reports whether the state
// changed.
func (r *registration) setRegistered(registered bool) bool {
	v := int32(0)
	if registered {
		v = 1
	}
	return r.registered.Swap(v) != v
}

// replay lists every held command: offers, then publications, then
// requests, then subscriptions. Must be called with mu held.
func (r *registration) replay() []held {
	cmds := make([]held, 0, len(r.offers)+len(r.publications)+len(r.requests)+len(r.subscriptions))
	cmds = append(cmds, sortedServices(r.offers)...)
	cmds = append(cmds, sortedGroups(r.publications)...)
	cmds = append(cmds, sortedServices(r.requests)...)
	cmds = append(cmds, sortedGroups(r.subscriptions)...)
	return cmds
}

func (r *registration) stopTimer() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func sortedServices(m map[serviceKey]held) []held {
	keys := make([]serviceKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keyLess(keys[i], keys[j]) })

	cmds := make([]held, len(keys))
	for i, k := range keys {
		cmds[i] = m[k]
	}
	return cmds
}

func sortedGroups(m map[groupKey]held) []held {
	keys := make([]groupKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return groupLess(keys[i], keys[j]) })

	cmds := make([]held, len(keys))
	for i, k := range keys {
		cmds[i] = m[k]
	}
	return cmds
}

// control records a control command with record, then forwards it to the
// daemon if we are registered. Unregistered commands wait for replay.
func (p *Proxy) control(id wire.CommandID, client wire.ClientID, sc wire.ServiceCommand, record func(*registration)) error {
	if err := p.ready(); err != nil {
		return err
	}

	p.reg.mu.Lock()
	defer p.reg.mu.Unlock()

	if record != nil {
		record(p.reg)
	}
	if !p.reg.isRegistered() {
		p.logger.Debug("holding control command until registered", zap.Stringer("command", id))
		return nil
	}
	return p.sendService(p.sender, id, client, sc, true)
}

// registerWithDaemon starts a handshake on a fresh daemon connection.
func (p *Proxy) registerWithDaemon() {
	p.reg.mu.Lock()
	defer p.reg.mu.Unlock()

	p.reg.epoch++
	p.reg.attempts = 0
	p.reg.backoff = p.opts.registrationBackoff.Backoff()
	p.reg.setRegistered(false)
	p.sendRegistration()
}

// sendRegistration must be called with reg.mu held.
func (p *Proxy) sendRegistration() {
	p.reg.stopTimer()
	p.metrics.registrations.Inc(1)
	if err := p.sendControl(p.sender, wire.CommandRegisterApplication, true); err != nil {
		p.logger.Warn("failed to send registration", zap.Error(err))
	}

	delay := p.opts.registrationTimeout
	if p.reg.attempts > 0 {
		delay += p.reg.backoff.Duration(p.reg.attempts - 1)
	}
	epoch := p.reg.epoch
	p.reg.timer = p.loop.AfterFunc(delay, func() { p.registrationTimedOut(epoch) })
}

func (p *Proxy) registrationTimedOut(epoch uint64) {
	if !p.recv.live() {
		return
	}

	p.reg.mu.Lock()
	defer p.reg.mu.Unlock()

	if epoch != p.reg.epoch || p.reg.isRegistered() {
		return
	}
	p.reg.attempts++
	p.logger.Warn("routing daemon did not acknowledge registration, retrying",
		zap.Uint("attempts", p.reg.attempts))
	p.sendRegistration()
}

// registered handles the daemon's acknowledgement: every held command is
// sent again, in order.
func (p *Proxy) registered() {
	p.reg.mu.Lock()
	p.reg.stopTimer()
	p.reg.epoch++
	changed := p.reg.setRegistered(true)

	var err error
	for _, h := range p.reg.replay() {
		if e := p.sendService(p.sender, h.id, h.client, h.sc, true); e != nil {
			err = e
		}
	}
	p.reg.mu.Unlock()

	if err != nil {
		p.logger.Warn("failed to replay control commands", zap.Error(err))
	}
	if changed {
		p.logger.Info("registered with routing daemon")
		p.post(func() { p.host.OnState(routing.Registered) })
	}
}

// lostDaemon handles the daemon connection going away. The sender
// reconnects on its own and registration starts over.
func (p *Proxy) lostDaemon(cause error) {
	p.reg.mu.Lock()
	p.reg.stopTimer()
	p.reg.epoch++
	changed := p.reg.setRegistered(false)
	p.reg.mu.Unlock()

	p.logger.Warn("lost connection to routing daemon", zap.Error(cause))
	if changed {
		p.post(func() { p.host.OnState(routing.Deregistered) })
	}
	if cause != nil {
		err := ybuserrors.Wrap(ybuserrors.CodeUnavailable, cause)
		p.post(func() { p.host.OnError(err) })
	}
}

// deregister tells the daemon we are leaving, best effort.
func (p *Proxy) deregister() {
	p.reg.mu.Lock()
	defer p.reg.mu.Unlock()

	p.reg.stopTimer()
	p.reg.epoch++
	if p.reg.setRegistered(false) {
		if err := p.sendControl(p.sender, wire.CommandDeregisterApplication, true); err != nil {
			p.logger.Debug("failed to deregister", zap.Error(err))
		}
	}
}
