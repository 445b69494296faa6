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
	"time"

	"github.com/tochemey/durable/log"
	"github.com/tochemey/durable/passivation"
	"github.com/tochemey/durable/telemetry"
)

const (
	// DefaultPassivateAfter is the idle period after which a grain is evicted.
	DefaultPassivateAfter = 30 * time.Second
	// DefaultRequestTimeout bounds how long Ask waits for a grain response.
	DefaultRequestTimeout = 5 * time.Second
	// DefaultStoreTimeout bounds every durable state store call.
	DefaultStoreTimeout = 2 * time.Second
	// DefaultActivationRetries is the number of activation attempts.
	DefaultActivationRetries = 3
	// DefaultActivationTimeout bounds a whole activation, retries included.
	DefaultActivationTimeout = 5 * time.Second

	defaultActivationBackoff = 100 * time.Millisecond
)

// Option is the interface that applies a configuration option.
type Option interface {
	// Apply sets the Option value of a config.
	Apply(registry *Registry)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(*Registry)

// Apply implements Option.
func (f OptionFunc) Apply(r *Registry) {
	f(r)
}

// WithLogger sets the registry logger.
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(r *Registry) {
		r.logger = logger
	})
}

// WithPassivationStrategy sets how idle grains are evicted.
func WithPassivationStrategy(strategy passivation.Strategy) Option {
	return OptionFunc(func(r *Registry) {
		r.passivationStrategy = strategy
	})
}

// WithRequestTimeout bounds how long Ask waits for a response.
func WithRequestTimeout(timeout time.Duration) Option {
	return OptionFunc(func(r *Registry) {
		r.requestTimeout = timeout
	})
}

// WithStoreTimeout bounds every store call a grain makes. Zero disables the bound.
func WithStoreTimeout(timeout time.Duration) Option {
	return OptionFunc(func(r *Registry) {
		r.storeTimeout = timeout
	})
}

// WithActivationRetries sets the number of activation attempts.
func WithActivationRetries(retries int) Option {
	return OptionFunc(func(r *Registry) {
		r.activationRetries = retries
	})
}

// WithActivationTimeout bounds a whole activation, retries included.
func WithActivationTimeout(timeout time.Duration) Option {
	return OptionFunc(func(r *Registry) {
		r.activationTimeout = timeout
	})
}

// WithMetrics sets the instruments the registry records into.
func WithMetrics(metrics *telemetry.Metrics) Option {
	return OptionFunc(func(r *Registry) {
		r.metrics = metrics
	})
}
