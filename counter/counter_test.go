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

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"go.uber.org/goleak"

	"github.com/tochemey/durable/actor"
	gerrors "github.com/tochemey/durable/errors"
	"github.com/tochemey/durable/log"
	"github.com/tochemey/durable/passivation"
	"github.com/tochemey/durable/persistence"
	"github.com/tochemey/durable/persistence/memory"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// countingStore counts writes and injects failures on top of a memory store
type countingStore struct {
	*memory.Store
	puts    atomic.Int64
	failGet atomic.Bool
	failPut atomic.Bool
}

var _ persistence.Store = (*countingStore)(nil)

func newCountingStore(t *testing.T) *countingStore {
	t.Helper()
	store := &countingStore{Store: memory.NewStore()}
	require.NoError(t, store.Connect(context.Background()))
	t.Cleanup(func() {
		require.NoError(t, store.Disconnect(context.Background()))
	})
	return store
}

func (s *countingStore) Get(ctx context.Context, key persistence.Key) ([]byte, error) {
	if s.failGet.Load() {
		return nil, errors.New("read refused")
	}
	return s.Store.Get(ctx, key)
}

func (s *countingStore) Put(ctx context.Context, key persistence.Key, value []byte) error {
	if s.failPut.Load() {
		return errors.New("write refused")
	}
	s.puts.Inc()
	return s.Store.Put(ctx, key, value)
}

func newRegistry(t *testing.T, store persistence.Store, opts ...Option) *actor.Registry {
	t.Helper()
	ctx := context.Background()

	registry, err := actor.NewRegistry(store,
		actor.WithLogger(log.DiscardLogger),
		actor.WithPassivationStrategy(passivation.NewLongLivedStrategy()))
	require.NoError(t, err)
	require.NoError(t, registry.Register(Kind, NewFactory(opts...)))
	require.NoError(t, registry.Register(UserKind, NewFactory(opts...)))
	require.NoError(t, registry.Start(ctx))
	t.Cleanup(func() {
		require.NoError(t, registry.Stop(ctx))
	})
	return registry
}

func get(registry *actor.Registry, name, path string) (*actor.Response, error) {
	return registry.Ask(context.Background(), Kind, name, actor.NewRequest(path, "/x"+path))
}

func body(counter int, path string, calls int) string {
	return fmt.Sprintf("counter: %d, path: /x%s, calls: %d", counter, path, calls)
}

func storedCounter(t *testing.T, registry *actor.Registry, store persistence.Store, name string) int16 {
	t.Helper()
	identity, err := registry.Identity(Kind, name)
	require.NoError(t, err)
	var counter int16
	require.NoError(t, persistence.NewStorage(store, identity.ID()).Get(context.Background(), counterKey, &counter))
	return counter
}

func TestCounter(t *testing.T) {
	t.Run("With scenario", func(t *testing.T) {
		store := newCountingStore(t)
		registry := newRegistry(t, store)

		steps := []struct {
			path    string
			counter int
			calls   int
		}{
			{PathIncrement, 1, 1},
			{PathIncrement, 2, 2},
			{PathDecrement, 1, 3},
		}
		for _, step := range steps {
			response, err := get(registry, "A", step.path)
			require.NoError(t, err)
			assert.Equal(t, 200, response.Status)
			assert.Equal(t, body(step.counter, step.path, step.calls), response.Body)
		}

		writes := store.puts.Load()
		_, err := get(registry, "A", "/bogus")
		require.ErrorIs(t, err, gerrors.ErrRouteNotFound)
		assert.Equal(t, writes, store.puts.Load())

		// the rejected request still counted
		response, err := get(registry, "A", PathRoot)
		require.NoError(t, err)
		assert.Equal(t, body(1, PathRoot, 5), response.Body)
	})
	t.Run("With serial increments", func(t *testing.T) {
		store := newCountingStore(t)
		registry := newRegistry(t, store)

		const count = 50
		for range count {
			_, err := get(registry, "A", PathIncrement)
			require.NoError(t, err)
		}
		assert.EqualValues(t, count, storedCounter(t, registry, store, "A"))
	})
	t.Run("With concurrent increments and decrements", func(t *testing.T) {
		store := newCountingStore(t)
		registry := newRegistry(t, store)

		const increments, decrements = 60, 25
		var wg sync.WaitGroup
		for i := range increments + decrements {
			path := PathIncrement
			if i%3 == 0 && i/3 < decrements {
				path = PathDecrement
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := get(registry, "A", path)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()
		assert.EqualValues(t, increments-decrements, storedCounter(t, registry, store, "A"))
	})
	t.Run("With root path idempotent", func(t *testing.T) {
		store := newCountingStore(t)
		registry := newRegistry(t, store)

		_, err := get(registry, "A", PathIncrement)
		require.NoError(t, err)
		for i := range 5 {
			response, err := get(registry, "A", PathRoot)
			require.NoError(t, err)
			assert.Equal(t, body(1, PathRoot, i+2), response.Body)
		}
		assert.EqualValues(t, 1, storedCounter(t, registry, store, "A"))
	})
	t.Run("With independent names", func(t *testing.T) {
		store := newCountingStore(t)
		registry := newRegistry(t, store)

		for range 3 {
			_, err := get(registry, "A", PathIncrement)
			require.NoError(t, err)
		}
		response, err := get(registry, "B", PathDecrement)
		require.NoError(t, err)
		assert.Equal(t, body(-1, PathDecrement, 1), response.Body)
		assert.EqualValues(t, 3, storedCounter(t, registry, store, "A"))
		assert.EqualValues(t, -1, storedCounter(t, registry, store, "B"))
	})
	t.Run("With overflow rejected", func(t *testing.T) {
		store := newCountingStore(t)
		registry := newRegistry(t, store)

		identity, err := registry.Identity(Kind, "A")
		require.NoError(t, err)
		storage := persistence.NewStorage(store, identity.ID())
		ctx := context.Background()

		require.NoError(t, storage.Put(ctx, counterKey, int16(math.MaxInt16)))
		writes := store.puts.Load()
		_, err = get(registry, "A", PathIncrement)
		require.ErrorIs(t, err, gerrors.ErrCounterOverflow)
		assert.Equal(t, writes, store.puts.Load())

		require.NoError(t, storage.Put(ctx, counterKey, int16(math.MinInt16)))
		_, err = get(registry, "A", PathDecrement)
		require.ErrorIs(t, err, gerrors.ErrCounterOverflow)

		response, err := get(registry, "A", PathIncrement)
		require.NoError(t, err)
		assert.Equal(t, body(math.MinInt16+1, PathIncrement, 3), response.Body)
	})
	t.Run("With write failure", func(t *testing.T) {
		store := newCountingStore(t)
		registry := newRegistry(t, store)

		_, err := get(registry, "A", PathIncrement)
		require.NoError(t, err)

		store.failPut.Store(true)
		_, err = get(registry, "A", PathIncrement)
		require.ErrorIs(t, err, gerrors.ErrStorageUnavailable)

		// calls is not rolled back while the counter never moved
		store.failPut.Store(false)
		response, err := get(registry, "A", PathRoot)
		require.NoError(t, err)
		assert.Equal(t, body(1, PathRoot, 3), response.Body)
	})
	t.Run("With read failure absorbed", func(t *testing.T) {
		store := newCountingStore(t)
		registry := newRegistry(t, store)

		_, err := get(registry, "A", PathIncrement)
		require.NoError(t, err)

		store.failGet.Store(true)
		response, err := get(registry, "A", PathRoot)
		require.NoError(t, err)
		assert.Equal(t, body(0, PathRoot, 2), response.Body)
	})
	t.Run("With calls reset after passivation", func(t *testing.T) {
		store := newCountingStore(t)
		ctx := context.Background()
		registry, err := actor.NewRegistry(store, actor.WithLogger(log.DiscardLogger))
		require.NoError(t, err)
		require.NoError(t, registry.Register(Kind, NewFactory()))
		require.NoError(t, registry.Start(ctx))
		defer func() { require.NoError(t, registry.Stop(ctx)) }()

		for range 3 {
			_, err := get(registry, "A", PathIncrement)
			require.NoError(t, err)
		}

		identity, err := registry.Identity(Kind, "A")
		require.NoError(t, err)
		require.NoError(t, registry.Deactivate(ctx, identity))

		response, err := get(registry, "A", PathIncrement)
		require.NoError(t, err)
		assert.Equal(t, body(4, PathIncrement, 1), response.Body)
	})
}

func TestExtendedCounter(t *testing.T) {
	store := newCountingStore(t)
	registry := newRegistry(t, store, WithProfile(), WithLogger(log.DiscardLogger))
	ctx := context.Background()

	first, err := registry.Ask(ctx, UserKind, "B", actor.NewRequest(PathRoot, "/user"))
	require.NoError(t, err)
	assert.Equal(t, `counter: 0, path: /user, calls: 1, user: {name: "Simon", email: "Simon@somewhere.com"} (false)`, first.Body)

	second, err := registry.Ask(ctx, UserKind, "B", actor.NewRequest(PathRoot, "/user"))
	require.NoError(t, err)
	assert.Equal(t, `counter: 0, path: /user, calls: 2, user: {name: "Simon", email: "Simon@somewhere.com"} (true)`, second.Body)

	identity, err := registry.Identity(UserKind, "B")
	require.NoError(t, err)
	var profile Profile
	require.NoError(t, persistence.NewStorage(store, identity.ID()).Get(ctx, userKey, &profile))
	assert.Equal(t, DefaultProfile(), profile)

	// the counter kind keeps its own profile record
	response, err := registry.Ask(ctx, Kind, "A", actor.NewRequest(PathIncrement, "/x/increment"))
	require.NoError(t, err)
	assert.Contains(t, response.Body, "(false)")
}

func TestProfile(t *testing.T) {
	profile := Profile{Name: "Ada", Email: "ada@example.com"}
	assert.Equal(t, `{name: "Ada", email: "ada@example.com"}`, profile.String())
}
