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
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/flowchartsman/retry"
	"go.uber.org/atomic"

	gerrors "github.com/tochemey/durable/errors"
	"github.com/tochemey/durable/log"
	"github.com/tochemey/durable/passivation"
	"github.com/tochemey/durable/persistence"
)

const (
	// idle means there are no messages to process
	idle int32 = iota
	// busy means the process is draining its mailbox
	busy
)

// grainProcess hosts one activation of a grain.
//
// Requests are drained from the mailbox by at most one goroutine at a time,
// so the grain never sees two requests concurrently. Deactivation travels
// through the same mailbox, which serializes eviction with request handling.
// Once deactivated the process answers every queued request with ErrDead and
// the registry re-resolves the identity onto a fresh activation.
type grainProcess struct {
	identity *Identity
	grain    Grain
	props    *GrainProps
	mailbox  *grainMailbox
	registry *Registry
	logger   log.Logger

	processing     atomic.Int32
	active         *atomic.Bool
	dead           *atomic.Bool
	latestActivity atomic.Time
}

var _ passivationParticipant = (*grainProcess)(nil)

func newGrainProcess(identity *Identity, grain Grain, storage persistence.Storage, registry *Registry) *grainProcess {
	logger := registry.logger.With("grain", identity.String())
	process := &grainProcess{
		identity: identity,
		grain:    grain,
		props:    newGrainProps(identity, storage, logger),
		mailbox:  newGrainMailbox(),
		registry: registry,
		logger:   logger,
		active:   atomic.NewBool(false),
		dead:     atomic.NewBool(false),
	}
	process.processing.Store(idle)
	return process
}

// activate runs the grain activation hook with retries
func (p *grainProcess) activate(ctx context.Context) error {
	p.logger.Debugf("Activating Grain %s ...", p.identity)

	timeout := p.registry.activationTimeout
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	retrier := retry.NewRetrier(p.registry.activationRetries, p.registry.activationBackoff, timeout)
	if err := retrier.RunContext(cctx, func(ctx context.Context) error {
		return p.safely(func() error { return p.grain.OnActivate(ctx, p.props) })
	}); err != nil {
		p.logger.Errorf("Grain %s activation failed: %v", p.identity, err)
		return gerrors.NewErrGrainActivationFailure(err)
	}

	p.active.Store(true)
	p.markActivity(time.Now())
	p.startPassivation()
	p.logger.Debugf("Grain %s successfully activated.", p.identity)
	return nil
}

// deactivate runs the grain deactivation hook and releases the identity.
// The process leaves the registry even when the hook fails, so a broken
// grain never pins its identity.
func (p *grainProcess) deactivate(ctx context.Context, reason string) error {
	p.logger.Debugf("Deactivating Grain %s (%s) ...", p.identity, reason)

	p.unregisterPassivation()
	err := p.safely(func() error { return p.grain.OnDeactivate(ctx, p.props) })

	// leave the map before flagging dead: a lookup never returns a dead process
	p.registry.release(p)
	p.active.Store(false)
	p.dead.Store(true)
	p.registry.metrics.RecordPassivation(ctx, p.identity.Kind())

	if err != nil {
		p.logger.Errorf("Grain %s deactivation failed: %v", p.identity, err)
		return gerrors.NewErrGrainDeactivationFailure(err)
	}

	p.logger.Debugf("Grain %s successfully deactivated.", p.identity)
	return nil
}

// receive pushes a message into the mailbox and makes sure a drain loop runs
func (p *grainProcess) receive(grainContext *GrainContext) {
	p.mailbox.Enqueue(grainContext)
	p.process()
}

// process drains the mailbox on a single goroutine
func (p *grainProcess) process() {
	// Only start a loop on the idle -> busy transition
	if !p.processing.CompareAndSwap(idle, busy) {
		return
	}

	go func() {
		for {
			for grainContext := p.mailbox.Dequeue(); grainContext != nil; grainContext = p.mailbox.Dequeue() {
				p.handle(grainContext)
			}

			p.processing.Store(idle)

			// a producer may have enqueued after the last Dequeue but before the store above
			if !p.mailbox.IsEmpty() && p.processing.CompareAndSwap(idle, busy) {
				continue
			}
			return
		}
	}()
}

func (p *grainProcess) handle(grainContext *GrainContext) {
	switch {
	case grainContext.deactivation != nil:
		p.handleDeactivation(grainContext)
	case p.dead.Load():
		grainContext.Err(gerrors.ErrDead)
	default:
		p.handleRequest(grainContext)
	}
}

func (p *grainProcess) handleRequest(grainContext *GrainContext) {
	p.markActivity(time.Now())
	p.invoke(grainContext)
	if !grainContext.isAnswered() {
		grainContext.Err(fmt.Errorf("grain %s did not answer the request", p.identity))
	}
	p.markActivity(time.Now())
}

func (p *grainProcess) invoke(grainContext *GrainContext) {
	defer func() {
		if r := recover(); r != nil {
			grainContext.Err(toPanicError(r))
		}
	}()
	p.grain.OnReceive(grainContext)
}

func (p *grainProcess) handleDeactivation(grainContext *GrainContext) {
	if p.dead.Load() {
		grainContext.NoErr()
		return
	}

	marker := grainContext.deactivation
	if marker.idleOnly && !p.isIdle() {
		// requests arrived after the eviction was scheduled
		p.startPassivation()
		grainContext.NoErr()
		return
	}

	grainContext.Err(p.deactivate(grainContext.Context(), marker.reason))
}

// stop enqueues an unconditional deactivation and waits for it
func (p *grainProcess) stop(ctx context.Context, reason string) error {
	grainContext := newDeactivationContext(context.WithoutCancel(ctx), p.identity, reason, false)
	p.receive(grainContext)
	select {
	case err := <-grainContext.err:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *grainProcess) isActive() bool {
	return p.active.Load() && !p.dead.Load()
}

// isIdle reports whether nothing is queued and the idle timeout elapsed
func (p *grainProcess) isIdle() bool {
	if !p.mailbox.IsEmpty() {
		return false
	}
	timeout := p.passivationTimeout()
	if timeout <= 0 {
		return false
	}
	return time.Since(p.latestActivity.Load()) >= timeout
}

// safely runs fn and turns a panic into a PanicError
func (p *grainProcess) safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = toPanicError(r)
		}
	}()
	return fn()
}

func (p *grainProcess) passivationID() string {
	return p.identity.ID()
}

func (p *grainProcess) passivationLatestActivity() time.Time {
	return p.latestActivity.Load()
}

// passivationTry schedules the eviction through the mailbox.
// The grain re-registers itself when it turns out not to be idle.
func (p *grainProcess) passivationTry(reason string) bool {
	if !p.isActive() {
		return false
	}
	p.logger.Debugf("passivation triggered for Grain %s (%s)", p.identity, reason)
	p.receive(newDeactivationContext(context.Background(), p.identity, reason, true))
	return true
}

func (p *grainProcess) markActivity(at time.Time) {
	p.latestActivity.Store(at)
	p.registry.passivator.Touch(p)
}

func (p *grainProcess) startPassivation() {
	if timeout := p.passivationTimeout(); timeout > 0 {
		p.registry.passivator.Register(p, timeout)
	}
}

func (p *grainProcess) unregisterPassivation() {
	p.registry.passivator.Unregister(p)
}

func (p *grainProcess) passivationTimeout() time.Duration {
	if strategy, ok := p.registry.passivationStrategy.(*passivation.TimeBasedStrategy); ok {
		return strategy.Timeout()
	}
	return 0
}

// toPanicError enriches a recovered value with the panic location
func toPanicError(r any) error {
	pc, fn, line, _ := runtime.Caller(3)
	if err, ok := r.(error); ok {
		var pe *gerrors.PanicError
		if errors.As(err, &pe) {
			return pe
		}
		return gerrors.NewPanicError(fmt.Errorf("%w at %s[%s:%d]", err, runtime.FuncForPC(pc).Name(), fn, line))
	}
	return gerrors.NewPanicError(fmt.Errorf("%#v at %s[%s:%d]", r, runtime.FuncForPC(pc).Name(), fn, line))
}
