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

package passivation

import (
	"fmt"
	"time"
)

// Strategy decides when an idle grain is evicted from memory.
// Evicting a grain discards its ephemeral state only. Durable state was
// written through before the grain went idle.
type Strategy interface {
	fmt.Stringer
	Name() string
}

// TimeBasedStrategy evicts a grain once it has been idle for the configured timeout.
type TimeBasedStrategy struct {
	timeout time.Duration
}

var _ Strategy = (*TimeBasedStrategy)(nil)

// NewTimeBasedStrategy creates a TimeBasedStrategy evicting grains idle for longer than timeout.
//
// Example:
//
//	strategy := NewTimeBasedStrategy(30 * time.Second)
func NewTimeBasedStrategy(timeout time.Duration) *TimeBasedStrategy {
	return &TimeBasedStrategy{timeout: timeout}
}

// Timeout returns the idle period after which a grain becomes eligible for eviction.
func (t *TimeBasedStrategy) Timeout() time.Duration {
	return t.timeout
}

// String returns the string representation of the TimeBasedStrategy.
func (t *TimeBasedStrategy) String() string {
	return fmt.Sprintf("Time-Based of Duration=[%s]", t.timeout)
}

// Name returns the name of the TimeBasedStrategy.
func (t *TimeBasedStrategy) Name() string {
	return "TimeBased"
}

// LongLivedStrategy never evicts. Grains live until the registry stops
// or until they are explicitly deactivated.
type LongLivedStrategy struct{}

var _ Strategy = (*LongLivedStrategy)(nil)

// NewLongLivedStrategy creates a LongLivedStrategy.
func NewLongLivedStrategy() *LongLivedStrategy {
	return &LongLivedStrategy{}
}

// String returns the string representation of the LongLivedStrategy.
func (l *LongLivedStrategy) String() string {
	return "Long Lived"
}

// Name returns the name of the LongLivedStrategy.
func (l *LongLivedStrategy) Name() string {
	return "LongLived"
}
