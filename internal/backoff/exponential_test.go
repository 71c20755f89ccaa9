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

package backoff

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExponentialValidation(t *testing.T) {
	tests := []struct {
		msg        string
		opts       []Option
		wantErrors []string
	}{
		{
			msg:        "invalid first",
			opts:       []Option{First(0)},
			wantErrors: []string{"invalid first backoff"},
		},
		{
			msg:  "invalid min and max",
			opts: []Option{Min(-1), Max(-2)},
			wantErrors: []string{
				"invalid min backoff",
				"invalid max backoff",
				"max backoff must be greater than or equal to min backoff",
			},
		},
		{
			msg:        "max below min",
			opts:       []Option{Min(time.Second), Max(time.Millisecond)},
			wantErrors: []string{"max backoff must be greater than or equal to min backoff"},
		},
		{
			msg:  "valid",
			opts: []Option{First(time.Millisecond), Min(time.Millisecond), Max(time.Second)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			_, err := NewExponential(tt.opts...)
			if len(tt.wantErrors) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErrors {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestExponentialDuration(t *testing.T) {
	tests := []struct {
		msg      string
		min      time.Duration
		attempts uint
		rand     int64
		want     time.Duration
	}{
		{msg: "first attempt ceiling", attempts: 0, rand: 1, want: 1},
		{msg: "first attempt floor", attempts: 0, rand: 0, want: 0},
		{msg: "first attempt wraps", attempts: 0, rand: 2, want: 0},
		{msg: "third attempt ceiling", attempts: 3, rand: 8, want: 8},
		{msg: "saturates at max", attempts: 30, rand: 100, want: 100},
		{msg: "saturated wraps", attempts: 30, rand: 101, want: 0},
		{msg: "overflowing shift", attempts: 63, rand: 100, want: 100},
		{msg: "shift past width", attempts: 64, rand: 100, want: 100},
		{msg: "min is added", min: 10, attempts: 2, rand: 4, want: 14},
		{msg: "min with saturation", min: 10, attempts: 40, rand: 90, want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			src := &fixedSource{}
			exp, err := NewExponential(
				First(time.Nanosecond),
				Min(tt.min),
				Max(100*time.Nanosecond),
				randSource(func() rand.Source { return src }),
			)
			require.NoError(t, err)

			src.val = tt.rand
			assert.Equal(t, tt.want, exp.Backoff().Duration(tt.attempts))
		})
	}
}

func TestDefaultExponentialBounds(t *testing.T) {
	b := DefaultExponential.Backoff()
	for attempt := uint(0); attempt < 100; attempt++ {
		d := b.Duration(attempt)
		assert.True(t, d >= 0 && d <= time.Minute, "attempt %d: %v out of range", attempt, d)
	}
}

// fixedSource is a rand.Source that returns whatever the test sets.
type fixedSource struct {
	val int64
}

func (s *fixedSource) Int63() int64 { return s.val }

func (*fixedSource) Seed(int64) {}
