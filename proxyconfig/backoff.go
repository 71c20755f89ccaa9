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

package proxyconfig

import (
	"time"

	backoffapi "go.uber.org/ybus/api/backoff"
	"go.uber.org/ybus/internal/backoff"
)

// Backoff specifies the delay added to registration retries. Exponential
// with full jitter is the only strategy.
//
//  exponential:
//    first: 10ms
//    max: 1s
type Backoff struct {
	Exponential ExponentialBackoff `config:"exponential"`
}

// Strategy returns the configured backoff strategy.
func (c Backoff) Strategy() (backoffapi.Strategy, error) {
	return c.Exponential.Strategy()
}

// ExponentialBackoff is exponential backoff with full jitter. "first" bounds
// the delay of the first retry. Every later retry doubles the range, up to
// "max" inclusive.
type ExponentialBackoff struct {
	First time.Duration `config:"first"`
	Max   time.Duration `config:"max"`
}

// Strategy returns an exponential backoff strategy for the configuration.
// Unset bounds keep their defaults.
func (c ExponentialBackoff) Strategy() (backoffapi.Strategy, error) {
	var opts []backoff.Option
	if c.First > 0 {
		opts = append(opts, backoff.First(c.First))
	}
	if c.Max > 0 {
		opts = append(opts, backoff.Max(c.Max))
	}
	return backoff.NewExponential(opts...)
}
