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
	"sync"

	"go.uber.org/ybus/ybuserrors"
	"go.uber.org/zap"
)

var errPeerClosed = ybuserrors.UnavailableErrorf("inproc connection closed by peer")

// conn joins a client endpoint to the endpoint its server accepted for it.
type conn struct {
	client   *clientEndpoint
	accepted *acceptedEndpoint

	up   *link // client to server
	down *link // server to client

	closeOnce sync.Once
}

// close tears down both directions and tells both hosts. byClient says which
// side initiated the close; that side sees a nil error.
func (c *conn) close(byClient bool) {
	c.closeOnce.Do(func() {
		c.up.close()
		c.down.close()

		clientErr, serverErr := error(nil), errPeerClosed
		if !byClient {
			clientErr, serverErr = errPeerClosed, nil
		}

		c.accepted.server.forget(c.accepted)
		c.client.lost(c)

		c.client.logger().Debug("inproc connection closed",
			zap.String("address", c.client.addr), zap.Bool("byClient", byClient))
		c.accepted.server.host.OnDisconnect(c.accepted, serverErr)
		c.client.host.OnDisconnect(c.client, clientErr)
	})
}
