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

// Package eventloop provides the event-processing context that drives the
// proxy's deferred work: registration retries and host notifications.
//
// The loop does not start goroutines of its own. Embedding code calls Run,
// from one or more goroutines, and tasks execute on those goroutines.
//
//	loop := eventloop.New()
//	go loop.Run(ctx)
//	defer loop.Stop()
package eventloop

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Option configures a Loop.
type Option func(*Loop)

// Logger sets the logger used to report panicking tasks.
func Logger(logger *zap.Logger) Option {
	return func(l *Loop) {
		l.logger = logger
	}
}

// Loop is a FIFO task queue that never blocks posters.
type Loop struct {
	logger *zap.Logger

	mu     sync.Mutex
	tasks  []func()
	wakeup chan struct{}

	stopOnce sync.Once
	stopped  chan struct{}
}

// New returns a new Loop.
func New(opts ...Option) *Loop {
	l := &Loop{
		logger:  zap.NewNop(),
		wakeup:  make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Post enqueues f. It returns false if the loop has been stopped.
func (l *Loop) Post(f func()) bool {
	select {
	case <-l.stopped:
		return false
	default:
	}

	l.mu.Lock()
	l.tasks = append(l.tasks, f)
	l.mu.Unlock()

	select {
	case l.wakeup <- struct{}{}:
	default:
	}
	return true
}

// AfterFunc posts f to the loop after d elapses. The returned timer may be
// stopped to cancel f.
func (l *Loop) AfterFunc(d time.Duration, f func()) *time.Timer {
	return time.AfterFunc(d, func() { l.Post(f) })
}

// Run executes tasks until ctx is done or the loop is stopped. It returns
// nil when stopped and ctx.Err() otherwise.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if f, ok := l.next(); ok {
			l.call(f)
			continue
		}

		select {
		case <-l.wakeup:
		case <-l.stopped:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunPending executes the tasks queued so far and returns how many ran.
func (l *Loop) RunPending() int {
	l.mu.Lock()
	n := len(l.tasks)
	l.mu.Unlock()

	ran := 0
	for ; ran < n; ran++ {
		f, ok := l.next()
		if !ok {
			break
		}
		l.call(f)
	}
	return ran
}

// Stop stops the loop. Queued tasks are discarded and Run returns.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopped)
		l.mu.Lock()
		l.tasks = nil
		l.mu.Unlock()
	})
}

// Stopped returns a channel that closes when the loop is stopped.
func (l *Loop) Stopped() <-chan struct{} {
	return l.stopped
}

func (l *Loop) next() (func(), bool) {
	select {
	case <-l.stopped:
		return nil, false
	default:
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.tasks) == 0 {
		return nil, false
	}
	f := l.tasks[0]
	l.tasks[0] = nil
	l.tasks = l.tasks[1:]
	return f, true
}

func (l *Loop) call(f func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("event loop task panicked",
				zap.String("panic", fmt.Sprint(r)),
				zap.ByteString("stack", debug.Stack()))
		}
	}()
	f()
}
