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

package uds

import (
	"go.uber.org/net/metrics"
	"go.uber.org/zap"
)

const (
	_sideTag = "side"

	_sideDial   = "dial"
	_sideAccept = "accept"
)

type observer struct {
	connections  *metrics.CounterVector
	dialFailures *metrics.Counter
	writeErrors  *metrics.Counter
	queueFull    *metrics.Counter
	dropped      *metrics.Counter
	malformed    *metrics.Counter
}

func newObserver(meter *metrics.Scope, logger *zap.Logger) *observer {
	tags := metrics.Tags{"transport": "uds"}

	connections, err := meter.CounterVector(metrics.Spec{
		Name:      "connections",
		Help:      "Total number of stream connections established.",
		ConstTags: tags,
		VarTags:   []string{_sideTag},
	})
	if err != nil {
		logger.Error("Failed to create connections counter", zap.Error(err))
	}

	dialFailures, err := meter.Counter(metrics.Spec{
		Name:      "dial_failures",
		Help:      "Total number of failed connection attempts.",
		ConstTags: tags,
	})
	if err != nil {
		logger.Error("Failed to create dial failures counter", zap.Error(err))
	}

	writeErrors, err := meter.Counter(metrics.Spec{
		Name:      "write_errors",
		Help:      "Total number of failed socket writes.",
		ConstTags: tags,
	})
	if err != nil {
		logger.Error("Failed to create write errors counter", zap.Error(err))
	}

	queueFull, err := meter.Counter(metrics.Spec{
		Name:      "write_queue_full",
		Help:      "Total number of frames rejected because a write queue was full.",
		ConstTags: tags,
	})
	if err != nil {
		logger.Error("Failed to create write queue counter", zap.Error(err))
	}

	dropped, err := meter.Counter(metrics.Spec{
		Name:      "dropped_frames",
		Help:      "Total number of frames dropped after Send accepted them.",
		ConstTags: tags,
	})
	if err != nil {
		logger.Error("Failed to create dropped frames counter", zap.Error(err))
	}

	malformed, err := meter.Counter(metrics.Spec{
		Name:      "malformed_frames",
		Help:      "Total number of malformed inbound frames.",
		ConstTags: tags,
	})
	if err != nil {
		logger.Error("Failed to create malformed frames counter", zap.Error(err))
	}

	return &observer{
		connections:  connections,
		dialFailures: dialFailures,
		writeErrors:  writeErrors,
		queueFull:    queueFull,
		dropped:      dropped,
		malformed:    malformed,
	}
}

func (o *observer) connected(side string) {
	if o.connections != nil {
		o.connections.MustGet(_sideTag, side).Inc()
	}
}

func (o *observer) incDialFailures() {
	o.dialFailures.Inc()
}

func (o *observer) incWriteErrors() {
	o.writeErrors.Inc()
}

func (o *observer) incQueueFull() {
	o.queueFull.Inc()
}

func (o *observer) addDropped(frames int) {
	o.dropped.Add(int64(frames))
}

func (o *observer) incMalformed() {
	o.malformed.Inc()
}
