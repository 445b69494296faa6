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

package nats

import (
	"context"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gerrors "github.com/tochemey/durable/errors"
	"github.com/tochemey/durable/persistence"
	"github.com/tochemey/durable/persistence/storetest"
)

func startNatsServer(t *testing.T) *natsserver.Server {
	t.Helper()

	serv, err := natsserver.NewServer(&natsserver.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		JetStream: true,
		StoreDir:  t.TempDir(),
	})
	require.NoError(t, err)

	ready := make(chan bool)
	go func() {
		ready <- true
		serv.Start()
	}()
	<-ready

	if !serv.ReadyForConnections(2 * time.Second) {
		t.Fatalf("nats-io server failed to start")
	}

	t.Cleanup(serv.Shutdown)
	return serv
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	serv := startNatsServer(t)

	store := NewStore(&Config{URL: serv.ClientURL()})
	require.NoError(t, store.Connect(ctx))
	t.Cleanup(func() { _ = store.Disconnect(ctx) })

	storetest.Run(t, store)
}

func TestStoreReusesBucket(t *testing.T) {
	ctx := context.Background()
	serv := startNatsServer(t)
	key := persistence.NewKey("scope", "counter")

	first := NewStore(&Config{URL: serv.ClientURL()})
	require.NoError(t, first.Connect(ctx))
	require.NoError(t, first.Connect(ctx))
	require.NoError(t, first.Put(ctx, key, []byte{7}))
	require.NoError(t, first.Disconnect(ctx))

	second := NewStore(&Config{URL: serv.ClientURL()})
	require.NoError(t, second.Connect(ctx))
	t.Cleanup(func() { _ = second.Disconnect(ctx) })

	value, err := second.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte{7}, value)
}

func TestStoreWithoutConnection(t *testing.T) {
	ctx := context.Background()
	store := NewStore(&Config{})
	assert.Equal(t, DefaultBucket, store.config.Bucket)
	assert.Equal(t, "scope.counter", kvKey(persistence.NewKey("scope", "counter")))

	require.Error(t, store.Connect(ctx))
	assert.ErrorIs(t, store.Ping(ctx), gerrors.ErrStoreClosed)
	_, err := store.Get(ctx, persistence.NewKey("scope", "counter"))
	assert.ErrorIs(t, err, gerrors.ErrStoreClosed)
}

func TestStoreHonorsContextDeadline(t *testing.T) {
	ctx := context.Background()
	serv := startNatsServer(t)
	key := persistence.NewKey("scope", "counter")

	store := NewStore(&Config{URL: serv.ClientURL()})
	require.NoError(t, store.Connect(ctx))
	t.Cleanup(func() { _ = store.Disconnect(ctx) })
	require.NoError(t, store.Put(ctx, key, []byte{1}))

	serv.Shutdown()

	start := time.Now()
	timeoutCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	_, err := store.Get(timeoutCtx, key)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	start = time.Now()
	timeoutCtx, cancel = context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	require.Error(t, store.Put(timeoutCtx, key, []byte{2}))
	assert.Less(t, time.Since(start), 2*time.Second)

	canceled, cancelNow := context.WithCancel(ctx)
	cancelNow()
	_, err = store.Get(canceled, key)
	assert.ErrorIs(t, err, context.Canceled)
}
