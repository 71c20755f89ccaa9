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

package ybuserrors

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// CodeOK means no error; returned on success
	CodeOK Code = 0

	// CodeCancelled means the operation was cancelled, typically because the
	// proxy began stopping while it was in flight.
	CodeCancelled Code = 1

	// CodeUnknown means an unknown error. Errors raised by transports that do
	// not carry enough information are converted to this code.
	CodeUnknown Code = 2

	// CodeInvalidArgument means the caller or a peer supplied something that
	// cannot be processed regardless of the state of the bus, such as a
	// malformed frame or an out-of-range identifier.
	CodeInvalidArgument Code = 3

	// CodeNotFound means the referenced client, service instance or event is
	// not known locally.
	CodeNotFound Code = 4

	// CodeNotReady means the operation was invoked while the proxy was not in
	// the state required for it: before Start, after Stop, or before the
	// routing daemon acknowledged registration.
	CodeNotReady Code = 5

	// CodeUnavailable means no route to the destination exists right now:
	// there is no local endpoint and the routing daemon cannot relay. This is
	// most likely a transient condition.
	CodeUnavailable Code = 6

	// CodeInternal means an invariant of the proxy was broken.
	CodeInternal Code = 7
)

var (
	_codeToString = map[Code]string{
		CodeOK:              "ok",
		CodeCancelled:       "cancelled",
		CodeUnknown:         "unknown",
		CodeInvalidArgument: "invalid-argument",
		CodeNotFound:        "not-found",
		CodeNotReady:        "not-ready",
		CodeUnavailable:     "unavailable",
		CodeInternal:        "internal",
	}
	_stringToCode = map[string]Code{
		"ok":               CodeOK,
		"cancelled":        CodeCancelled,
		"unknown":          CodeUnknown,
		"invalid-argument": CodeInvalidArgument,
		"not-found":        CodeNotFound,
		"not-ready":        CodeNotReady,
		"unavailable":      CodeUnavailable,
		"internal":         CodeInternal,
	}
)

// Code represents the category of a bus error.
type Code int

// String returns the the string representation of the Code.
func (c Code) String() string {
	s, ok := _codeToString[c]
	if ok {
		return s
	}
	return strconv.Itoa(int(c))
}

// MarshalText implements encoding.TextMarshaler.
func (c Code) MarshalText() ([]byte, error) {
	s, ok := _codeToString[c]
	if ok {
		return []byte(s), nil
	}
	return nil, fmt.Errorf("unknown code: %d", int(c))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Code) UnmarshalText(text []byte) error {
	i, ok := _stringToCode[strings.ToLower(string(text))]
	if !ok {
		return fmt.Errorf("unknown code string: %s", string(text))
	}
	*c = i
	return nil
}
