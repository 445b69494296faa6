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
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/tochemey/durable/log"
)

type fakeParticipant struct {
	id     string
	mu     sync.Mutex
	latest time.Time
	tries  atomic.Int32
	accept bool
}

func newFakeParticipant(id string, accept bool) *fakeParticipant {
	return &fakeParticipant{id: id, latest: time.Now(), accept: accept}
}

func (f *fakeParticipant) passivationID() string { return f.id }

func (f *fakeParticipant) passivationLatestActivity() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest
}

func (f *fakeParticipant) passivationTry(string) bool {
	f.tries.Inc()
	return f.accept
}

func (f *fakeParticipant) touch() {
	f.mu.Lock()
	f.latest = time.Now()
	f.mu.Unlock()
}

func TestPassivationManager(t *testing.T) {
	t.Run("With idle participant evicted", func(t *testing.T) {
		manager := newPassivationManager(log.DiscardLogger)
		manager.Start()
		defer manager.Stop()

		participant := newFakeParticipant("a", true)
		manager.Register(participant, 50*time.Millisecond)
		assert.Equal(t, 1, manager.Len())

		require.Eventually(t, func() bool { return participant.tries.Load() == 1 }, time.Second, 5*time.Millisecond)
		require.Eventually(t, func() bool { return manager.Len() == 0 }, time.Second, 5*time.Millisecond)
	})
	t.Run("With refused eviction rescheduled", func(t *testing.T) {
		manager := newPassivationManager(log.DiscardLogger)
		manager.Start()
		defer manager.Stop()

		participant := newFakeParticipant("a", false)
		manager.Register(participant, 30*time.Millisecond)

		require.Eventually(t, func() bool { return participant.tries.Load() >= 2 }, time.Second, 5*time.Millisecond)
		assert.Equal(t, 1, manager.Len())
	})
	t.Run("With touched participant kept", func(t *testing.T) {
		manager := newPassivationManager(log.DiscardLogger)
		manager.Start()
		defer manager.Stop()

		participant := newFakeParticipant("a", true)
		manager.Register(participant, 100*time.Millisecond)
		for range 5 {
			time.Sleep(40 * time.Millisecond)
			participant.touch()
			manager.Touch(participant)
		}
		assert.Zero(t, participant.tries.Load())
		assert.Equal(t, 1, manager.Len())
	})
	t.Run("With unregistered participant", func(t *testing.T) {
		manager := newPassivationManager(log.DiscardLogger)
		manager.Start()
		defer manager.Stop()

		participant := newFakeParticipant("a", true)
		manager.Register(participant, 30*time.Millisecond)
		manager.Unregister(participant)
		assert.Zero(t, manager.Len())

		time.Sleep(80 * time.Millisecond)
		assert.Zero(t, participant.tries.Load())
	})
	t.Run("With earliest deadline first", func(t *testing.T) {
		manager := newPassivationManager(log.DiscardLogger)

		var mu sync.Mutex
		var order []string
		manager.passivateFn = func(entry *passivationEntry) bool {
			mu.Lock()
			order = append(order, entry.id)
			mu.Unlock()
			return true
		}

		manager.Start()
		defer manager.Stop()

		manager.Register(newFakeParticipant("slow", true), 120*time.Millisecond)
		manager.Register(newFakeParticipant("fast", true), 30*time.Millisecond)
		manager.Register(newFakeParticipant("medium", true), 70*time.Millisecond)

		require.Eventually(t, func() bool { return manager.Len() == 0 }, time.Second, 5*time.Millisecond)
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, []string{"fast", "medium", "slow"}, order)
	})
	t.Run("With stopped manager", func(t *testing.T) {
		manager := newPassivationManager(log.DiscardLogger)
		participant := newFakeParticipant("a", true)

		// registrations are ignored until started
		manager.Register(participant, 30*time.Millisecond)
		assert.Zero(t, manager.Len())

		manager.Start()
		manager.Start()
		manager.Register(participant, time.Hour)
		assert.Equal(t, 1, manager.Len())

		manager.Stop()
		manager.Stop()
		assert.Zero(t, manager.Len())

		// restart
		manager.Start()
		manager.Register(participant, 30*time.Millisecond)
		require.Eventually(t, func() bool { return participant.tries.Load() == 1 }, time.Second, 5*time.Millisecond)
		manager.Stop()
	})
	t.Run("With invalid registrations", func(t *testing.T) {
		manager := newPassivationManager(log.DiscardLogger)
		manager.Start()
		defer manager.Stop()

		manager.Register(nil, time.Second)
		manager.Register(newFakeParticipant("a", true), 0)
		manager.Touch(nil)
		manager.Unregister(nil)
		assert.Zero(t, manager.Len())
	})
}
