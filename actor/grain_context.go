/*
 * MIT License
 *
 * Copyright (c) 2022-2025  Arsene Tochemey Gandote
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package actor

import (
	"context"

	"go.uber.org/atomic"
)

// deactivation is the internal message enqueued in a grain mailbox to evict it.
// An idle-only deactivation is dropped when the grain saw activity since it was scheduled.
type deactivation struct {
	reason   string
	idleOnly bool
}

// GrainContext carries one request through a grain mailbox.
//
// A grain answers exactly once, either with Respond or with Err.
// Subsequent answers are ignored.
//
// Example usage:
//
//	func (g *MyGrain) OnReceive(ctx *actor.GrainContext) {
//	    switch ctx.Request().Path {
//	    case "/":
//	        ctx.Respond(actor.NewResponse("ok"))
//	    default:
//	        ctx.Err(gerrors.NewErrRouteNotFound(ctx.Request().Path))
//	    }
//	}
type GrainContext struct {
	ctx          context.Context
	self         *Identity
	request      *Request
	deactivation *deactivation
	response     chan *Response
	err          chan error
	answered     atomic.Bool
}

func newGrainContext(ctx context.Context, self *Identity, request *Request) *GrainContext {
	return &GrainContext{
		ctx:      ctx,
		self:     self,
		request:  request,
		response: make(chan *Response, 1),
		err:      make(chan error, 1),
	}
}

func newDeactivationContext(ctx context.Context, self *Identity, reason string, idleOnly bool) *GrainContext {
	grainContext := newGrainContext(ctx, self, nil)
	grainContext.deactivation = &deactivation{reason: reason, idleOnly: idleOnly}
	return grainContext
}

// Context returns the context of the request.
//
// It keeps the caller values but is not canceled when the caller stops
// waiting, so a started request always runs to completion.
func (gctx *GrainContext) Context() context.Context {
	return gctx.ctx
}

// Self returns the identity of the grain handling the request.
func (gctx *GrainContext) Self() *Identity {
	return gctx.self
}

// Request returns the request being handled.
func (gctx *GrainContext) Request() *Request {
	return gctx.request
}

// Respond answers the request with resp.
func (gctx *GrainContext) Respond(resp *Response) {
	if gctx.answered.CompareAndSwap(false, true) {
		gctx.response <- resp
	}
}

// Err answers the request with err.
//
// Prefer Err over panicking. A panic inside OnReceive is recovered and
// reported the same way, wrapped in a PanicError.
func (gctx *GrainContext) Err(err error) {
	if gctx.answered.CompareAndSwap(false, true) {
		gctx.err <- err
	}
}

// NoErr answers a request that carries no response payload.
func (gctx *GrainContext) NoErr() {
	gctx.Err(nil)
}

func (gctx *GrainContext) isAnswered() bool {
	return gctx.answered.Load()
}
