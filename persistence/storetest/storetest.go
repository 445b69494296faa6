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

// Package storetest holds the conformance suite shared by every persistence.Store backend.
package storetest

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gerrors "github.com/tochemey/durable/errors"
	"github.com/tochemey/durable/persistence"
)

// Profile mirrors the shape of the user record persisted by the counter grain.
type Profile struct {
	Name  string `cbor:"name"`
	Email string `cbor:"email"`
}

// Run exercises store against the persistence.Store contract.
// The store must be connected and empty for the scopes used here.
func Run(t *testing.T, store persistence.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("Ping", func(t *testing.T) {
		require.NoError(t, store.Ping(ctx))
	})

	t.Run("Get returns ErrKeyNotFound for a missing record", func(t *testing.T) {
		_, err := store.Get(ctx, persistence.NewKey("missing-scope", "counter"))
		require.Error(t, err)
		assert.ErrorIs(t, err, gerrors.ErrKeyNotFound)
	})

	t.Run("Put then Get returns the same bytes", func(t *testing.T) {
		key := persistence.NewKey("raw-scope", "counter")
		require.NoError(t, store.Put(ctx, key, []byte{0x01, 0x02}))
		actual, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []byte{0x01, 0x02}, actual)
	})

	t.Run("Put overwrites", func(t *testing.T) {
		key := persistence.NewKey("overwrite-scope", "counter")
		require.NoError(t, store.Put(ctx, key, []byte("first")))
		require.NoError(t, store.Put(ctx, key, []byte("second")))
		actual, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "second", string(actual))
	})

	t.Run("Scopes are isolated", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, persistence.NewKey("scope-a", "counter"), []byte("a")))
		require.NoError(t, store.Put(ctx, persistence.NewKey("scope-b", "counter"), []byte("b")))

		a, err := store.Get(ctx, persistence.NewKey("scope-a", "counter"))
		require.NoError(t, err)
		b, err := store.Get(ctx, persistence.NewKey("scope-b", "counter"))
		require.NoError(t, err)
		assert.Equal(t, "a", string(a))
		assert.Equal(t, "b", string(b))

		_, err = store.Get(ctx, persistence.NewKey("scope-c", "counter"))
		assert.ErrorIs(t, err, gerrors.ErrKeyNotFound)
	})

	t.Run("Typed round trip", func(t *testing.T) {
		storage := persistence.NewStorage(store, "typed-scope")
		for _, value := range []int16{0, 1, -1, math.MaxInt16, math.MinInt16} {
			require.NoError(t, storage.Put(ctx, "counter", value))
			var actual int16
			require.NoError(t, storage.Get(ctx, "counter", &actual))
			assert.Equal(t, value, actual)
		}

		profile := Profile{Name: "Simon", Email: "Simon@somewhere.com"}
		require.NoError(t, storage.Put(ctx, "user", profile))
		var actual Profile
		require.NoError(t, storage.Get(ctx, "user", &actual))
		assert.Equal(t, profile, actual)
	})

	t.Run("Concurrent writers on distinct keys", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := range 10 {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				key := persistence.NewKey(fmt.Sprintf("concurrent-%d", i), "counter")
				assert.NoError(t, store.Put(ctx, key, []byte{byte(i)}))
			}(i)
		}
		wg.Wait()

		for i := range 10 {
			actual, err := store.Get(ctx, persistence.NewKey(fmt.Sprintf("concurrent-%d", i), "counter"))
			require.NoError(t, err)
			assert.Equal(t, []byte{byte(i)}, actual)
		}
	})
}
