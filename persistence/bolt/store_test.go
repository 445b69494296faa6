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

package bolt

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gerrors "github.com/tochemey/durable/errors"
	"github.com/tochemey/durable/persistence"
	"github.com/tochemey/durable/persistence/storetest"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	store := NewStore(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, store.Connect(ctx))
	t.Cleanup(func() { _ = store.Disconnect(ctx) })

	storetest.Run(t, store)
}

func TestStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	key := persistence.NewKey("scope", "counter")

	store := NewStore(path)
	require.NoError(t, store.Connect(ctx))
	require.NoError(t, store.Connect(ctx))
	require.NoError(t, store.Put(ctx, key, []byte{42}))
	require.NoError(t, store.Disconnect(ctx))
	require.NoError(t, store.Disconnect(ctx))

	_, err := store.Get(ctx, key)
	assert.ErrorIs(t, err, gerrors.ErrStoreClosed)

	reopened := NewStore(path)
	require.NoError(t, reopened.Connect(ctx))
	t.Cleanup(func() { _ = reopened.Disconnect(ctx) })

	value, err := reopened.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte{42}, value)
}

func TestStoreWithoutPath(t *testing.T) {
	require.Error(t, NewStore(" ").Connect(context.Background()))
}
