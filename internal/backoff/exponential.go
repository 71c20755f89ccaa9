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
	"errors"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/multierr"
	backoffapi "go.uber.org/ybus/api/backoff"
)

// Option configures an Exponential strategy.
type Option func(*exponentialOptions)

type exponentialOptions struct {
	first, min, max time.Duration
	newSource       func() rand.Source
}

func (o exponentialOptions) validate() (err error) {
	if o.first <= 0 {
		err = multierr.Append(err, errors.New("invalid first backoff, need greater than zero"))
	}
	if o.min < 0 {
		err = multierr.Append(err, errors.New("invalid min backoff, need greater than or equal to zero"))
	}
	if o.max < 0 {
		err = multierr.Append(err, errors.New("invalid max backoff, need greater than or equal to zero"))
	}
	if o.max < o.min {
		err = multierr.Append(err, errors.New("max backoff must be greater than or equal to min backoff"))
	}
	return err
}

var (
	_seedMu sync.Mutex
	_seed   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

func newSeededSource() rand.Source {
	_seedMu.Lock()
	defer _seedMu.Unlock()
	return rand.NewSource(_seed.Int63())
}

func defaultOptions() exponentialOptions {
	return exponentialOptions{
		first:     10 * time.Millisecond,
		max:       time.Minute,
		newSource: newSeededSource,
	}
}

// First sets the ceiling of the first backoff. Each later attempt doubles the
// ceiling.
func First(d time.Duration) Option {
	return func(o *exponentialOptions) {
		o.first = d
	}
}

// Max caps every backoff.
func Max(d time.Duration) Option {
	return func(o *exponentialOptions) {
		o.max = d
	}
}

// Min is added to every backoff.
func Min(d time.Duration) Option {
	return func(o *exponentialOptions) {
		o.min = d
	}
}

func randSource(f func() rand.Source) Option {
	return func(o *exponentialOptions) {
		o.newSource = f
	}
}

// Exponential is a "full jitter" exponential backoff strategy: attempt n
// waits a uniformly random duration in [min, min+first*2^n], never more
// than max.
type Exponential struct {
	opts exponentialOptions
	span int64
}

var _ backoffapi.Strategy = (*Exponential)(nil)

// NewExponential builds an Exponential strategy.
func NewExponential(opts ...Option) (*Exponential, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if err := options.validate(); err != nil {
		return nil, err
	}
	return &Exponential{
		opts: options,
		span: int64(options.max - options.min),
	}, nil
}

// DefaultExponential is the strategy used when none is configured.
var DefaultExponential, _ = NewExponential()

// Backoff returns a Backoff with its own random number generator.
func (e *Exponential) Backoff() backoffapi.Backoff {
	return &exponentialBackoff{
		min:   e.opts.min,
		first: int64(e.opts.first),
		span:  e.span,
		rand:  rand.New(e.opts.newSource()),
	}
}

type exponentialBackoff struct {
	min   time.Duration
	first int64
	span  int64
	rand  *rand.Rand
}

func (b *exponentialBackoff) Duration(attempts uint) time.Duration {
	ceiling := b.span
	if attempts < 63 {
		// A shift that overflows or passes the span saturates at the span.
		if c := b.first << attempts; c > 0 && c>>attempts == b.first && c < ceiling {
			ceiling = c
		}
	}
	return b.min + time.Duration(b.rand.Int63n(ceiling+1))
}
