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

package inproc

import (
	"go.uber.org/net/metrics"
	"go.uber.org/zap"
)

type observer struct {
	queueFull *metrics.Counter
	dropped   *metrics.Counter
}

func newObserver(meter *metrics.Scope, logger *zap.Logger) *observer {
	tags := metrics.Tags{"transport": "inproc"}

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

	return &observer{queueFull: queueFull, dropped: dropped}
}

func (o *observer) incQueueFull() {
	o.queueFull.Inc()
}

func (o *observer) addDropped(frames int) {
	o.dropped.Add(int64(frames))
}
