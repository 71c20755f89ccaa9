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

// Package lifecycle provides the state machine shared by the proxy and its
// transports.
package lifecycle

import (
	"context"
	"errors"
	syncatomic "sync/atomic"

	"go.uber.org/atomic"
	"go.uber.org/ybus/ybuserrors"
)

// State represents `states` that a lifecycle object can be in.
type State int

const (
	// Created indicates the object hasn't been operated on yet.
	Created State = iota

	// Initialized indicates that resources have been allocated but no I/O
	// has been performed.
	Initialized

	// Starting indicates that the "start" command has begun but hasn't
	// finished yet.
	Starting

	// Started indicates that start has finished and the object is
	// available.
	Started

	// Stopping indicates that the 'stop' method has been called but hasn't
	// finished yet.
	Stopping

	// Stopped indicates that the object has been stopped.
	Stopped

	// Errored indicates that init, start or stop failed and we can't
	// reasonably determine what state the object is in.
	Errored
)

var stateToName = map[State]string{
	Created:     "created",
	Initialized: "initialized",
	Starting:    "starting",
	Started:     "started",
	Stopping:    "stopping",
	Stopped:     "stopped",
	Errored:     "errored",
}

// String returns the name of the state.
func (s State) String() string {
	if name, ok := stateToName[s]; ok {
		return name
	}
	return "unknown"
}

// Once advances an object monotonically through
// Created → Initialized → Starting → Started → Stopping → Stopped, running
// each of the init, start and stop functions at most once.
//
//  0. The observable state only goes forward.
//  1. Init() blocks until the state is >= Initialized.
//  2. Start() initializes first if needed and blocks until the state is >= Started.
//  3. Stop() blocks until the state is >= Stopped.
//  4. Stop() pre-empts Init() and Start() if it occurs first.
type Once struct {
	// initCh closes once the state is Initialized or beyond.
	initCh chan struct{}
	// startCh closes once the state is Started or beyond.
	startCh chan struct{}
	// stoppingCh closes once the state is Stopping or beyond.
	stoppingCh chan struct{}
	// stopCh closes once the state is Stopped or Errored.
	stopCh chan struct{}
	// err is the error, if any, that the first failing transition returned.
	// Only the goroutine performing a transition may set it.
	err syncatomic.Value
	// state is an atomic State.
	state atomic.Int32
}

// NewOnce returns a lifecycle controller.
func NewOnce() *Once {
	return &Once{
		initCh:     make(chan struct{}),
		startCh:    make(chan struct{}),
		stoppingCh: make(chan struct{}),
		stopCh:     make(chan struct{}),
	}
}

// Init runs `f` once and moves to Initialized. Later calls return the error
// from the first call.
func (o *Once) Init(f func() error) error {
	if o.state.CAS(int32(Created), int32(Initialized)) {
		var err error
		if f != nil {
			err = f()
		}
		if err != nil {
			o.fail(err)
			close(o.startCh)
		}
		close(o.initCh)
		return err
	}

	<-o.initCh
	return o.loadError()
}

// Start runs `f` once and moves to Started. If the object was never
// initialized, `init` runs first. Later calls return the error from the first
// call.
func (o *Once) Start(init, f func() error) error {
	if err := o.Init(init); err != nil {
		return err
	}

	if o.state.CAS(int32(Initialized), int32(Starting)) {
		var err error
		if f != nil {
			err = f()
		}

		if err != nil {
			o.fail(err)
		} else {
			o.state.Store(int32(Started))
		}
		close(o.startCh)
		return err
	}

	<-o.startCh
	return o.loadError()
}

// WaitUntilStarted blocks until the object is started, or the context is
// done.
func (o *Once) WaitUntilStarted(ctx context.Context) error {
	state := o.State()
	if state == Started {
		return nil
	}
	if state > Started {
		return ybuserrors.NotReadyErrorf("could not wait for start: current state is %q", state)
	}

	select {
	case <-o.startCh:
		if state := o.State(); state != Started {
			return ybuserrors.NotReadyErrorf("did not start: current state is %q", state)
		}
		return nil
	case <-ctx.Done():
		return ybuserrors.CancelledErrorf("context finished while waiting for start: %v", ctx.Err())
	}
}

// Stop runs `f` once and moves to Stopped. Later calls return the error from
// the first call. Stopping an object that never started skips `f`.
func (o *Once) Stop(f func() error) error {
	if o.state.CAS(int32(Created), int32(Stopped)) {
		close(o.initCh)
		close(o.startCh)
		close(o.stoppingCh)
		close(o.stopCh)
		return nil
	}

	<-o.initCh

	if o.state.CAS(int32(Initialized), int32(Stopped)) {
		close(o.startCh)
		close(o.stoppingCh)
		close(o.stopCh)
		return nil
	}

	<-o.startCh

	if o.state.CAS(int32(Started), int32(Stopping)) {
		close(o.stoppingCh)

		var err error
		if f != nil {
			err = f()
		}

		if err != nil {
			o.setError(err)
			o.state.Store(int32(Errored))
		} else {
			o.state.Store(int32(Stopped))
		}
		close(o.stopCh)
		return err
	}

	<-o.stopCh
	return o.loadError()
}

// fail records err and skips forward to Errored. It closes the stopping and
// stopped channels; the caller closes the channel of the transition it owns.
func (o *Once) fail(err error) {
	o.setError(err)
	o.state.Store(int32(Errored))
	close(o.stoppingCh)
	close(o.stopCh)
}

// Started returns a channel that will close when the object starts, or fails
// to.
func (o *Once) Started() <-chan struct{} {
	return o.startCh
}

// Stopping returns a channel that will close when the object is stopping.
func (o *Once) Stopping() <-chan struct{} {
	return o.stoppingCh
}

// Stopped returns a channel that will close when the object stops.
func (o *Once) Stopped() <-chan struct{} {
	return o.stopCh
}

func (o *Once) setError(err error) {
	o.err.Store(err)
}

func (o *Once) loadError() error {
	errVal := o.err.Load()
	if errVal == nil {
		return nil
	}

	if err, ok := errVal.(error); ok {
		return err
	}

	return errors.New("lifecycle err was not `error` type")
}

// State returns the state of the object. The object has at least reached the
// returned state and may have progressed further since.
func (o *Once) State() State {
	return State(o.state.Load())
}

// IsRunning returns true if the object is started and not yet stopping.
func (o *Once) IsRunning() bool {
	return o.State() == Started
}
