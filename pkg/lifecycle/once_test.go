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

package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"go.uber.org/ybus/ybuserrors"
)

func counter(n *atomic.Int32, err error) func() error {
	return func() error {
		n.Inc()
		return err
	}
}

func TestOnceTransitions(t *testing.T) {
	var inits, starts, stops atomic.Int32
	o := NewOnce()
	assert.Equal(t, Created, o.State())

	require.NoError(t, o.Init(counter(&inits, nil)))
	assert.Equal(t, Initialized, o.State())
	assert.False(t, o.IsRunning())

	require.NoError(t, o.Start(counter(&inits, nil), counter(&starts, nil)))
	assert.Equal(t, Started, o.State())
	assert.True(t, o.IsRunning())

	require.NoError(t, o.Stop(counter(&stops, nil)))
	assert.Equal(t, Stopped, o.State())

	require.NoError(t, o.Stop(counter(&stops, nil)))
	require.NoError(t, o.Start(counter(&inits, nil), counter(&starts, nil)))

	assert.Equal(t, int32(1), inits.Load())
	assert.Equal(t, int32(1), starts.Load())
	assert.Equal(t, int32(1), stops.Load())

	for _, ch := range []<-chan struct{}{o.Started(), o.Stopping(), o.Stopped()} {
		select {
		case <-ch:
		default:
			t.Fatal("expected channel to be closed")
		}
	}
}

func TestOnceStartInitializes(t *testing.T) {
	var inits atomic.Int32
	o := NewOnce()
	require.NoError(t, o.Start(counter(&inits, nil), nil))
	assert.Equal(t, int32(1), inits.Load())
	assert.Equal(t, Started, o.State())
}

func TestOnceErrors(t *testing.T) {
	boom := errors.New("boom")

	t.Run("init", func(t *testing.T) {
		var starts atomic.Int32
		o := NewOnce()
		assert.Equal(t, boom, o.Init(func() error { return boom }))
		assert.Equal(t, Errored, o.State())
		assert.Equal(t, boom, o.Start(nil, counter(&starts, nil)))
		assert.Equal(t, int32(0), starts.Load())
		assert.Equal(t, boom, o.Stop(nil))
	})

	t.Run("start", func(t *testing.T) {
		var stops atomic.Int32
		o := NewOnce()
		assert.Equal(t, boom, o.Start(nil, func() error { return boom }))
		assert.Equal(t, Errored, o.State())
		assert.Equal(t, boom, o.Stop(counter(&stops, nil)))
		assert.Equal(t, int32(0), stops.Load())
		<-o.Stopped()
	})

	t.Run("stop", func(t *testing.T) {
		o := NewOnce()
		require.NoError(t, o.Start(nil, nil))
		assert.Equal(t, boom, o.Stop(func() error { return boom }))
		assert.Equal(t, Errored, o.State())
		assert.Equal(t, boom, o.Stop(nil))
	})
}

func TestOnceStopPreemptsStart(t *testing.T) {
	var starts, stops atomic.Int32

	o := NewOnce()
	require.NoError(t, o.Stop(counter(&stops, nil)))
	assert.Equal(t, Stopped, o.State())
	require.NoError(t, o.Start(nil, counter(&starts, nil)))
	assert.Equal(t, Stopped, o.State())

	o = NewOnce()
	require.NoError(t, o.Init(nil))
	require.NoError(t, o.Stop(counter(&stops, nil)))
	assert.Equal(t, Stopped, o.State())

	assert.Equal(t, int32(0), starts.Load())
	assert.Equal(t, int32(0), stops.Load(), "stop function must not run for objects that never started")
}

func TestOnceConcurrentStart(t *testing.T) {
	var starts atomic.Int32
	o := NewOnce()
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, o.Start(nil, func() error {
				starts.Inc()
				<-release
				return nil
			}))
			assert.Equal(t, Started, o.State())
		}()
	}

	time.Sleep(5 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, int32(1), starts.Load())
}

func TestOnceStoppingState(t *testing.T) {
	o := NewOnce()
	require.NoError(t, o.Start(nil, nil))

	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, o.Stop(func() error {
			<-release
			return nil
		}))
	}()

	<-o.Stopping()
	assert.Equal(t, Stopping, o.State())
	assert.False(t, o.IsRunning())
	close(release)
	<-done
	assert.Equal(t, Stopped, o.State())
}

func TestWaitUntilStarted(t *testing.T) {
	t.Run("already started", func(t *testing.T) {
		o := NewOnce()
		require.NoError(t, o.Start(nil, nil))
		assert.NoError(t, o.WaitUntilStarted(context.Background()))
	})

	t.Run("waits for start", func(t *testing.T) {
		o := NewOnce()
		go func() {
			time.Sleep(5 * time.Millisecond)
			_ = o.Start(nil, nil)
		}()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		assert.NoError(t, o.WaitUntilStarted(ctx))
	})

	t.Run("stopped", func(t *testing.T) {
		o := NewOnce()
		require.NoError(t, o.Stop(nil))
		err := o.WaitUntilStarted(context.Background())
		assert.True(t, ybuserrors.IsNotReady(err), "got %v", err)
	})

	t.Run("context done", func(t *testing.T) {
		o := NewOnce()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := o.WaitUntilStarted(ctx)
		assert.True(t, ybuserrors.IsCancelled(err), "got %v", err)
	})
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "started", Started.String())
	assert.Equal(t, "unknown", State(42).String())
}
