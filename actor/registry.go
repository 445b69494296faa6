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
	"net/http"
	"strings"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"golang.org/x/sync/singleflight"

	gerrors "github.com/tochemey/durable/errors"
	"github.com/tochemey/durable/log"
	"github.com/tochemey/durable/passivation"
	"github.com/tochemey/durable/persistence"
	"github.com/tochemey/durable/telemetry"
)

// maxDispatchAttempts bounds how many times Ask re-resolves an identity whose
// process died while the request was queued.
const maxDispatchAttempts = 3

// Registry maps logical names onto live grain instances.
//
// For every identity there is at most one live grain process in the registry.
// Ask resolves the identity, activates the grain when needed and forwards the
// request to its mailbox. Concurrent activations of the same identity are
// collapsed into one with singleflight.
type Registry struct {
	logger              log.Logger
	store               persistence.Store
	passivationStrategy passivation.Strategy
	requestTimeout      time.Duration
	storeTimeout        time.Duration
	activationRetries   int
	activationTimeout   time.Duration
	activationBackoff   time.Duration
	metrics             *telemetry.Metrics

	factoriesMu sync.RWMutex
	factories   map[string]GrainFactory

	mu          sync.RWMutex
	grains      map[string]*grainProcess
	activations singleflight.Group
	passivator  *passivationManager
	started     *atomic.Bool
}

// NewRegistry creates a Registry whose grains persist their state into store.
func NewRegistry(store persistence.Store, opts ...Option) (*Registry, error) {
	if store == nil {
		return nil, errors.New("registry: durable state store is required")
	}

	registry := &Registry{
		logger:              log.DefaultLogger,
		store:               store,
		passivationStrategy: passivation.NewTimeBasedStrategy(DefaultPassivateAfter),
		requestTimeout:      DefaultRequestTimeout,
		storeTimeout:        DefaultStoreTimeout,
		activationRetries:   DefaultActivationRetries,
		activationTimeout:   DefaultActivationTimeout,
		activationBackoff:   defaultActivationBackoff,
		factories:           make(map[string]GrainFactory),
		grains:              make(map[string]*grainProcess),
		started:             atomic.NewBool(false),
	}

	for _, opt := range opts {
		opt.Apply(registry)
	}

	if err := registry.validate(); err != nil {
		return nil, err
	}

	registry.passivator = newPassivationManager(registry.logger)
	return registry, nil
}

// Register binds kind to the factory creating its grains.
// Registering an existing kind replaces its factory for future activations.
func (r *Registry) Register(kind string, factory GrainFactory) error {
	if strings.TrimSpace(kind) == "" || strings.Contains(kind, identitySeparator) {
		return gerrors.NewErrInvalidIdentity(fmt.Errorf("invalid grain kind %q", kind))
	}
	if factory == nil {
		return fmt.Errorf("registry: nil factory for kind %q", kind)
	}

	r.factoriesMu.Lock()
	r.factories[kind] = factory
	r.factoriesMu.Unlock()
	return nil
}

// Identity derives the identity of the grain named name of the given kind.
func (r *Registry) Identity(kind, name string) (*Identity, error) {
	if _, err := r.factory(kind); err != nil {
		return nil, err
	}
	return NewIdentity(kind, name)
}

// Start starts the registry.
func (r *Registry) Start(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started.Load() {
		return gerrors.ErrRegistryAlreadyStarted
	}

	r.passivator.Start()
	r.started.Store(true)
	r.logger.Infof("registry started (passivation: %s)", r.passivationStrategy)
	return nil
}

// Stop deactivates every live grain and stops the registry.
// Deactivation failures are combined into the returned error.
func (r *Registry) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.started.Load() {
		r.mu.Unlock()
		return nil
	}
	r.started.Store(false)
	processes := make([]*grainProcess, 0, len(r.grains))
	for _, process := range r.grains {
		processes = append(processes, process)
	}
	r.mu.Unlock()

	var err error
	for _, process := range processes {
		err = multierr.Append(err, process.stop(ctx, "registry stopping"))
	}

	r.passivator.Stop()
	r.logger.Infof("registry stopped, %d grain(s) deactivated", len(processes))
	return err
}

// Ask sends request to the grain named name of the given kind and waits for its response.
//
// The grain is activated on first use. Requests to the same identity are
// handled one at a time in arrival order. The wait is bounded by the request
// timeout; a caller giving up does not cancel a request already being handled.
func (r *Registry) Ask(ctx context.Context, kind, name string, request *Request) (*Response, error) {
	if !r.started.Load() {
		return nil, gerrors.ErrRegistryNotStarted
	}

	if request == nil {
		return nil, errors.New("registry: nil request")
	}

	factory, err := r.factory(kind)
	if err != nil {
		return nil, err
	}

	identity, err := NewIdentity(kind, name)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	response, err := r.dispatch(ctx, identity, factory, request)
	r.record(ctx, kind, err, time.Since(start))
	return response, err
}

// Deactivate evicts the grain with the given identity, if live.
func (r *Registry) Deactivate(ctx context.Context, identity *Identity) error {
	if identity == nil {
		return gerrors.ErrInvalidIdentity
	}
	process, ok := r.lookup(identity.ID())
	if !ok {
		return nil
	}
	return process.stop(ctx, "explicit deactivation")
}

// Grains returns the identities of the live grains.
func (r *Registry) Grains() mapset.Set[Identity] {
	r.mu.RLock()
	defer r.mu.RUnlock()

	identities := mapset.NewSetWithSize[Identity](len(r.grains))
	for _, process := range r.grains {
		identities.Add(*process.identity)
	}
	return identities
}

// Ping checks that the durable state store can serve requests.
func (r *Registry) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

func (r *Registry) dispatch(ctx context.Context, identity *Identity, factory GrainFactory, request *Request) (*Response, error) {
	timer := time.NewTimer(r.requestTimeout)
	defer timer.Stop()

	for range maxDispatchAttempts {
		process, err := r.ensureProcess(ctx, identity, factory)
		if err != nil {
			return nil, err
		}

		grainContext := newGrainContext(context.WithoutCancel(ctx), identity, request)
		process.receive(grainContext)

		select {
		case response := <-grainContext.response:
			return response, nil
		case err := <-grainContext.err:
			if errors.Is(err, gerrors.ErrDead) {
				r.logger.Debugf("Grain %s was deactivated with a queued request, re-resolving", identity)
				continue
			}
			if err == nil {
				return &Response{Status: http.StatusNoContent}, nil
			}
			return nil, err
		case <-timer.C:
			return nil, gerrors.ErrRequestTimeout
		case <-ctx.Done():
			return nil, errors.Join(ctx.Err(), gerrors.ErrRequestTimeout)
		}
	}

	return nil, gerrors.ErrDead
}

// ensureProcess returns the live process of identity, activating one when absent
func (r *Registry) ensureProcess(ctx context.Context, identity *Identity, factory GrainFactory) (*grainProcess, error) {
	if process, ok := r.lookup(identity.ID()); ok {
		return process, nil
	}

	result, err, _ := r.activations.Do(identity.ID(), func() (any, error) {
		if process, ok := r.lookup(identity.ID()); ok {
			return process, nil
		}
		return r.activate(ctx, identity, factory)
	})
	if err != nil {
		return nil, err
	}

	process, ok := result.(*grainProcess)
	if !ok {
		return nil, fmt.Errorf("unexpected grain activation result for %s", identity)
	}
	return process, nil
}

func (r *Registry) activate(ctx context.Context, identity *Identity, factory GrainFactory) (*grainProcess, error) {
	grain := factory(identity)
	if grain == nil {
		return nil, gerrors.NewErrGrainActivationFailure(fmt.Errorf("factory returned no grain for %s", identity))
	}

	storage := persistence.NewStorage(r.store, identity.ID(), persistence.WithStoreTimeout(r.storeTimeout))
	process := newGrainProcess(identity, grain, storage, r)

	// the activation is shared by every waiter, so it must outlive the first caller
	if err := process.activate(context.WithoutCancel(ctx)); err != nil {
		return nil, err
	}

	r.mu.Lock()
	if !r.started.Load() {
		r.mu.Unlock()
		_ = process.deactivate(context.WithoutCancel(ctx), "registry stopped during activation")
		return nil, gerrors.ErrRegistryNotStarted
	}
	r.grains[identity.ID()] = process
	r.mu.Unlock()

	r.metrics.RecordActivation(ctx, identity.Kind())
	return process, nil
}

// release removes process from the live set when it is still the registered one
func (r *Registry) release(process *grainProcess) {
	r.mu.Lock()
	if current, ok := r.grains[process.identity.ID()]; ok && current == process {
		delete(r.grains, process.identity.ID())
	}
	r.mu.Unlock()
}

func (r *Registry) lookup(id string) (*grainProcess, bool) {
	r.mu.RLock()
	process, ok := r.grains[id]
	r.mu.RUnlock()
	if !ok || !process.isActive() {
		return nil, false
	}
	return process, true
}

func (r *Registry) factory(kind string) (GrainFactory, error) {
	r.factoriesMu.RLock()
	factory, ok := r.factories[kind]
	r.factoriesMu.RUnlock()
	if !ok {
		return nil, gerrors.NewErrKindNotRegistered(kind)
	}
	return factory, nil
}

func (r *Registry) record(ctx context.Context, kind string, err error, duration time.Duration) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, gerrors.ErrStorageUnavailable):
		outcome = "storage_unavailable"
		r.metrics.RecordStorageFailure(ctx, kind)
	case errors.Is(err, gerrors.ErrRequestTimeout):
		outcome = "timeout"
	default:
		outcome = "error"
	}
	r.metrics.RecordRequest(ctx, kind, outcome, duration)
}

func (r *Registry) validate() error {
	var err error
	if r.requestTimeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("request timeout: %w", gerrors.ErrInvalidTimeout))
	}
	if r.activationTimeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("activation timeout: %w", gerrors.ErrInvalidTimeout))
	}
	if r.storeTimeout < 0 {
		err = multierr.Append(err, fmt.Errorf("store timeout: %w", gerrors.ErrInvalidTimeout))
	}
	if r.activationRetries <= 0 {
		err = multierr.Append(err, errors.New("activation retries must be greater than 0"))
	}
	switch strategy := r.passivationStrategy.(type) {
	case *passivation.LongLivedStrategy:
	case *passivation.TimeBasedStrategy:
		if strategy.Timeout() <= 0 {
			err = multierr.Append(err, gerrors.ErrInvalidPassivationStrategy)
		}
	default:
		err = multierr.Append(err, gerrors.ErrInvalidPassivationStrategy)
	}
	if r.logger == nil {
		err = multierr.Append(err, errors.New("logger is required"))
	}
	return err
}
