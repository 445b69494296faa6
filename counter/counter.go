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

// Package counter implements the durable counter grain.
//
// A Counter keeps an ephemeral call count and a durable int16 counter that
// survives passivation and restarts. The extended variant also maintains a
// user Profile record next to the counter.
package counter

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/tochemey/durable/actor"
	gerrors "github.com/tochemey/durable/errors"
	"github.com/tochemey/durable/log"
	"github.com/tochemey/durable/persistence"
)

const (
	// Kind is the grain kind serving the /x routes.
	Kind = "counter"
	// UserKind is the grain kind serving the /user route.
	UserKind = "user"

	// PathIncrement adds one to the counter.
	PathIncrement = "/increment"
	// PathDecrement subtracts one from the counter.
	PathDecrement = "/decrement"
	// PathRoot reads the counter without changing it.
	PathRoot = "/"

	counterKey = "counter"
	userKey    = "user"
)

// Counter is the durable counter grain.
type Counter struct {
	extended bool
	calls    uint64
	storage  persistence.Storage
	logger   log.Logger
}

var _ actor.Grain = (*Counter)(nil)

// New creates a Counter.
func New(opts ...Option) *Counter {
	counter := &Counter{logger: log.DiscardLogger}
	for _, opt := range opts {
		opt.Apply(counter)
	}
	return counter
}

// NewFactory returns a factory creating a fresh Counter per activation.
func NewFactory(opts ...Option) actor.GrainFactory {
	return func(*actor.Identity) actor.Grain {
		return New(opts...)
	}
}

// OnActivate binds the grain to its durable state.
func (c *Counter) OnActivate(_ context.Context, props *actor.GrainProps) error {
	if props.Storage() == nil {
		return errors.New("counter: durable storage is required")
	}
	c.storage = props.Storage()
	if logger := props.Logger(); logger != nil {
		c.logger = logger
	}
	return nil
}

// OnReceive answers the request with the outcome of Handle.
func (c *Counter) OnReceive(ctx *actor.GrainContext) {
	response, err := c.Handle(ctx.Context(), ctx.Request())
	if err != nil {
		ctx.Err(err)
		return
	}
	ctx.Respond(response)
}

// OnDeactivate releases the storage handle. The call count is dropped with the instance.
func (c *Counter) OnDeactivate(context.Context, *actor.GrainProps) error {
	c.logger.Debugf("counter deactivated after %d call(s)", c.calls)
	c.storage = nil
	return nil
}

// Handle runs one request against the counter.
//
// The call count grows on every request, including rejected ones. Read
// failures fall back to defaults. Unknown paths and overflows are rejected
// before anything is written. A write failure is returned wrapped in
// errors.ErrStorageUnavailable and leaves the call count as is.
func (c *Counter) Handle(ctx context.Context, request *actor.Request) (*actor.Response, error) {
	c.calls++

	counter := c.readCounter(ctx)
	profile, loaded := c.readProfile(ctx)

	switch request.Path {
	case PathIncrement:
		if counter == math.MaxInt16 {
			return nil, fmt.Errorf("increment at %d: %w", counter, gerrors.ErrCounterOverflow)
		}
		counter++
	case PathDecrement:
		if counter == math.MinInt16 {
			return nil, fmt.Errorf("decrement at %d: %w", counter, gerrors.ErrCounterOverflow)
		}
		counter--
	case PathRoot:
	default:
		return nil, gerrors.NewErrRouteNotFound(request.Path)
	}

	if err := c.storage.Put(ctx, counterKey, counter); err != nil {
		c.logger.Errorf("failed to persist counter: %v", err)
		return nil, err
	}

	if !c.extended {
		return actor.NewResponse(fmt.Sprintf("counter: %d, path: %s, calls: %d", counter, request.URLPath, c.calls)), nil
	}

	if err := c.storage.Put(ctx, userKey, profile); err != nil {
		c.logger.Errorf("failed to persist user profile: %v", err)
		return nil, err
	}

	return actor.NewResponse(fmt.Sprintf("counter: %d, path: %s, calls: %d, user: %s (%t)",
		counter, request.URLPath, c.calls, profile, loaded)), nil
}

// Calls returns the number of requests handled by this instance.
func (c *Counter) Calls() uint64 {
	return c.calls
}

func (c *Counter) readCounter(ctx context.Context) int16 {
	var counter int16
	if err := c.storage.Get(ctx, counterKey, &counter); err != nil {
		if !errors.Is(err, gerrors.ErrKeyNotFound) {
			c.logger.Warnf("failed to read counter, defaulting to 0: %v", err)
		}
		return 0
	}
	return counter
}

func (c *Counter) readProfile(ctx context.Context) (Profile, bool) {
	if !c.extended {
		return Profile{}, false
	}

	var profile Profile
	if err := c.storage.Get(ctx, userKey, &profile); err != nil {
		if !errors.Is(err, gerrors.ErrKeyNotFound) {
			c.logger.Warnf("failed to read user profile, using the default: %v", err)
		}
		return DefaultProfile(), false
	}
	return profile, true
}
