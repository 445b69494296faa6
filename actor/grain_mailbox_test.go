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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrainMailbox(t *testing.T) {
	t.Run("With FIFO order", func(t *testing.T) {
		mailbox := newGrainMailbox()
		assert.True(t, mailbox.IsEmpty())
		assert.Nil(t, mailbox.Dequeue())

		identity, err := NewIdentity("kind", "name")
		require.NoError(t, err)

		inputs := make([]*GrainContext, 0, 10)
		for range 10 {
			grainContext := newGrainContext(t.Context(), identity, NewRequest("/", "/"))
			inputs = append(inputs, grainContext)
			mailbox.Enqueue(grainContext)
		}
		assert.EqualValues(t, 10, mailbox.Len())

		for _, expected := range inputs {
			assert.Same(t, expected, mailbox.Dequeue())
		}
		assert.True(t, mailbox.IsEmpty())
		assert.Nil(t, mailbox.Dequeue())
	})
	t.Run("With concurrent producers", func(t *testing.T) {
		mailbox := newGrainMailbox()
		identity, err := NewIdentity("kind", "name")
		require.NoError(t, err)

		const producers, perProducer = 8, 250
		var wg sync.WaitGroup
		for range producers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range perProducer {
					mailbox.Enqueue(newGrainContext(t.Context(), identity, NewRequest("/", "/")))
				}
			}()
		}
		wg.Wait()

		count := 0
		for mailbox.Dequeue() != nil {
			count++
		}
		assert.Equal(t, producers*perProducer, count)
		assert.True(t, mailbox.IsEmpty())
	})
}
