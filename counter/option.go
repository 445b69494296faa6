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

package counter

import "github.com/tochemey/durable/log"

// Option configures a Counter.
type Option interface {
	// Apply sets the Option value of a config.
	Apply(counter *Counter)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(counter *Counter)

// Apply applies the option.
func (f OptionFunc) Apply(counter *Counter) {
	f(counter)
}

// WithProfile enables the extended variant persisting a user Profile.
func WithProfile() Option {
	return OptionFunc(func(counter *Counter) {
		counter.extended = true
	})
}

// WithLogger sets the logger used before activation hands over the grain logger.
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(counter *Counter) {
		if logger != nil {
			counter.logger = logger
		}
	})
}
