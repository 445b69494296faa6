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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStrategies(t *testing.T) {
	t.Run("TimeBased", func(t *testing.T) {
		strategy := NewTimeBasedStrategy(30 * time.Second)
		assert.Equal(t, 30*time.Second, strategy.Timeout())
		assert.Equal(t, "TimeBased", strategy.Name())
		assert.Equal(t, "Time-Based of Duration=[30s]", strategy.String())
	})
	t.Run("LongLived", func(t *testing.T) {
		strategy := NewLongLivedStrategy()
		assert.Equal(t, "LongLived", strategy.Name())
		assert.Equal(t, "Long Lived", strategy.String())
	})
}
