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

package sql

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	testcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	gerrors "github.com/tochemey/durable/errors"
	"github.com/tochemey/durable/persistence"
	"github.com/tochemey/durable/persistence/storetest"
)

var postgresDSN string

// TestMain starts a postgres container unless DURABLE_TEST_POSTGRES_DSN
// points at an existing database.
func TestMain(m *testing.M) {
	if dsn := os.Getenv("DURABLE_TEST_POSTGRES_DSN"); dsn != "" {
		postgresDSN = dsn
		os.Exit(m.Run())
	}

	ctx := context.Background()
	container, err := testcontainer.Run(
		ctx,
		"postgres:16-alpine",
		testcontainer.WithDatabase("durable"),
		testcontainer.WithUsername("durable"),
		testcontainer.WithPassword("durable"),
		testcontainer.BasicWaitStrategies(),
	)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		_ = testcontainers.TerminateContainer(container)
		os.Exit(1)
	}
	postgresDSN = dsn

	code := m.Run()
	_ = testcontainers.TerminateContainer(container)
	os.Exit(code)
}

func sqliteDSN(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "state.db") + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	store := NewStore(SQLite, sqliteDSN(t))
	require.NoError(t, store.Connect(ctx))
	t.Cleanup(func() { _ = store.Disconnect(ctx) })

	storetest.Run(t, store)
}

func TestPostgresStore(t *testing.T) {
	ctx := context.Background()
	store := NewStore(Postgres, postgresDSN)
	require.NoError(t, store.Connect(ctx))
	t.Cleanup(func() { _ = store.Disconnect(ctx) })

	storetest.Run(t, store)
}

func TestDialect(t *testing.T) {
	assert.Equal(t, "sqlite", SQLite.String())
	assert.Equal(t, "postgres", Postgres.String())
	assert.Equal(t, "unknown", Dialect(42).String())

	assert.Contains(t, NewStore(SQLite, "").selectQuery, "scope = ? AND name = ?")
	assert.Contains(t, NewStore(Postgres, "").selectQuery, "scope = $1 AND name = $2")
	assert.Contains(t, NewStore(Postgres, "").upsertQuery, "VALUES ($1, $2, $3, $4)")
}

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()

	require.Error(t, NewStore(SQLite, "").Connect(ctx))

	store := NewStore(SQLite, sqliteDSN(t))
	_, err := store.Get(ctx, persistence.NewKey("scope", "counter"))
	assert.ErrorIs(t, err, gerrors.ErrStoreClosed)

	require.NoError(t, store.Connect(ctx))
	require.NoError(t, store.Connect(ctx))
	require.NoError(t, store.Disconnect(ctx))
	require.NoError(t, store.Disconnect(ctx))
	assert.ErrorIs(t, store.Ping(ctx), gerrors.ErrStoreClosed)
}
