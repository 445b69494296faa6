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

	"github.com/tochemey/durable/log"
	"github.com/tochemey/durable/persistence"
)

// Grain is a virtual actor: a single logical instance per Identity that the
// Registry activates on demand and evicts when idle.
//
// The runtime guarantees that at most one OnReceive call is in flight per
// grain instance, so implementations can keep mutable state without locks.
//
// ## Lifecycle
//   - OnActivate is called once before the first request. Return an error to fail the activation.
//   - OnReceive is called for every request, in arrival order.
//   - OnDeactivate is called once when the grain is evicted or the registry stops.
//
// Ephemeral fields are lost at deactivation. Anything that must survive
// belongs in the Storage handed over through GrainProps.
type Grain interface {
	// OnActivate is called when the grain is loaded into memory.
	OnActivate(ctx context.Context, props *GrainProps) error
	// OnReceive handles one request. The grain must answer through
	// GrainContext.Respond or GrainContext.Err.
	OnReceive(ctx *GrainContext)
	// OnDeactivate is called before the grain is removed from memory.
	OnDeactivate(ctx context.Context, props *GrainProps) error
}

// GrainFactory creates a fresh grain instance for the given identity.
type GrainFactory func(identity *Identity) Grain

// GrainProps carries what the runtime hands to a grain at activation.
type GrainProps struct {
	identity *Identity
	storage  persistence.Storage
	logger   log.Logger
}

func newGrainProps(identity *Identity, storage persistence.Storage, logger log.Logger) *GrainProps {
	return &GrainProps{
		identity: identity,
		storage:  storage,
		logger:   logger,
	}
}

// Identity returns the unique identity of the grain.
func (p *GrainProps) Identity() *Identity {
	return p.identity
}

// Storage returns the durable state view scoped to the grain identity.
// It lives exactly as long as the grain activation.
func (p *GrainProps) Storage() persistence.Storage {
	return p.storage
}

// Logger returns the logger the grain should use.
func (p *GrainProps) Logger() log.Logger {
	return p.logger
}
