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
	"fmt"

	"github.com/uber-go/mapdecode"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logging configures the proxy's logger.
//
//  logging:
//    level: warn
type Logging struct {
	// Level drops entries below it. The logger passed to Build keeps its
	// own level when this is unset.
	Level *zapLevel `config:"level"`
}

type zapLevel zapcore.Level

// mapdecode does not use encoding.TextUnmarshaler on its own.
func (l *zapLevel) Decode(into mapdecode.Into) error {
	var s string
	if err := into(&s); err != nil {
		return fmt.Errorf("could not decode Zap log level: %v", err)
	}
	if err := (*zapcore.Level)(l).UnmarshalText([]byte(s)); err != nil {
		return fmt.Errorf("could not decode Zap log level: %v", err)
	}
	return nil
}

func (l Logging) apply(logger *zap.Logger) *zap.Logger {
	if l.Level == nil {
		return logger
	}
	return withMinLevel(logger, zapcore.Level(*l.Level))
}

func withMinLevel(logger *zap.Logger, min zapcore.Level) *zap.Logger {
	return logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return &levelFilter{Core: core, min: min}
	}))
}

// levelFilter raises the level of the wrapped core. It can only make a core
// quieter.
type levelFilter struct {
	zapcore.Core

	min zapcore.Level
}

func (f *levelFilter) Enabled(lvl zapcore.Level) bool {
	return lvl >= f.min && f.Core.Enabled(lvl)
}

func (f *levelFilter) With(fields []zapcore.Field) zapcore.Core {
	return &levelFilter{Core: f.Core.With(fields), min: f.min}
}

func (f *levelFilter) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if ent.Level < f.min {
		return ce
	}
	return f.Core.Check(ent, ce)
}
