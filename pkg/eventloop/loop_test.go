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

package eventloop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRunExecutesInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := New()
	var (
		mu  sync.Mutex
		got []int
	)
	done := make(chan struct{})
	for i := 0; i < 100; i++ {
		i := i
		require.True(t, l.Post(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			if i == 99 {
				close(done)
			}
		}))
	}

	runDone := make(chan error)
	go func() { runDone <- l.Run(context.Background()) }()

	<-done
	l.Stop()
	assert.NoError(t, <-runDone)

	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestRunContextDone(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, context.Canceled, l.Run(ctx))
}

func TestPostAfterStop(t *testing.T) {
	l := New()
	l.Stop()
	l.Stop()
	assert.False(t, l.Post(func() { t.Fatal("must not run") }))
	assert.Equal(t, 0, l.RunPending())
	<-l.Stopped()
}

func TestRunPending(t *testing.T) {
	l := New()
	var n int
	l.Post(func() {
		n++
		// Tasks posted while draining wait for the next call.
		l.Post(func() { n++ })
	})
	assert.Equal(t, 1, l.RunPending())
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, l.RunPending())
	assert.Equal(t, 2, n)
}

func TestAfterFunc(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		_ = l.Run(ctx)
	}()

	fired := make(chan struct{})
	l.AfterFunc(time.Millisecond, func() { close(fired) })

	cancelled := l.AfterFunc(time.Hour, func() { t.Fatal("must not fire") })
	assert.True(t, cancelled.Stop())

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
	cancel()
	<-runDone
}

func TestPanickingTaskIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	l := New(Logger(zap.New(core)))

	var ran bool
	l.Post(func() { panic("great sadness") })
	l.Post(func() { ran = true })
	assert.Equal(t, 2, l.RunPending())
	assert.True(t, ran)

	entries := logs.FilterMessage("event loop task panicked").AllUntimed()
	require.Len(t, entries, 1)
	assert.Equal(t, "great sadness", entries[0].ContextMap()["panic"])
}
