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

// Package sql provides a persistence.Store backed by a relational database.
// SQLite (modernc.org/sqlite) and PostgreSQL (github.com/lib/pq) are supported.
package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	gerrors "github.com/tochemey/durable/errors"
	"github.com/tochemey/durable/persistence"
)

// Dialect selects the SQL flavor spoken by the Store.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

const tableName = "durable_state"

// String returns the dialect name.
func (d Dialect) String() string {
	switch d {
	case SQLite:
		return "sqlite"
	case Postgres:
		return "postgres"
	default:
		return "unknown"
	}
}

func (d Dialect) driver() string {
	// both registered driver names match the dialect name
	return d.String()
}

func (d Dialect) placeholder(index int) string {
	if d == Postgres {
		return fmt.Sprintf("$%d", index)
	}
	return "?"
}

func (d Dialect) schema() string {
	valueType := "BLOB"
	if d == Postgres {
		valueType = "BYTEA"
	}
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	scope      TEXT   NOT NULL,
	name       TEXT   NOT NULL,
	value      %s     NOT NULL,
	updated_at BIGINT NOT NULL,
	PRIMARY KEY (scope, name)
)`, tableName, valueType)
}

// Store persists records in a single table keyed by (scope, name).
type Store struct {
	dialect Dialect
	dsn     string

	mu sync.RWMutex
	db *sql.DB

	selectQuery string
	upsertQuery string
}

var _ persistence.Store = (*Store)(nil)

// NewStore creates a Store for the given dialect and data source name.
// The connection is opened on Connect.
func NewStore(dialect Dialect, dsn string) *Store {
	p := dialect.placeholder
	return &Store{
		dialect: dialect,
		dsn:     dsn,
		selectQuery: fmt.Sprintf("SELECT value FROM %s WHERE scope = %s AND name = %s",
			tableName, p(1), p(2)),
		upsertQuery: fmt.Sprintf(`INSERT INTO %s (scope, name, value, updated_at) VALUES (%s, %s, %s, %s)
ON CONFLICT (scope, name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			tableName, p(1), p(2), p(3), p(4)),
	}
}

// Connect opens the database and creates the state table when missing.
func (s *Store) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	if strings.TrimSpace(s.dsn) == "" {
		return fmt.Errorf("sql: %s data source name is required", s.dialect)
	}

	db, err := sql.Open(s.dialect.driver(), s.dsn)
	if err != nil {
		return fmt.Errorf("sql: open %s: %w", s.dialect, err)
	}

	if s.dialect == SQLite {
		// sqlite allows a single writer at a time
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("sql: ping %s: %w", s.dialect, err)
	}

	if _, err := db.ExecContext(ctx, s.dialect.schema()); err != nil {
		_ = db.Close()
		return fmt.Errorf("sql: create %s table: %w", tableName, err)
	}

	s.db = db
	return nil
}

// Disconnect closes the database handle.
func (s *Store) Disconnect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	db, err := s.handle(ctx)
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// Get returns the record stored under key.
func (s *Store) Get(ctx context.Context, key persistence.Key) ([]byte, error) {
	db, err := s.handle(ctx)
	if err != nil {
		return nil, err
	}

	var value []byte
	if err := db.QueryRowContext(ctx, s.selectQuery, key.Scope, key.Name).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, gerrors.NewErrKeyNotFound(key.String())
		}
		return nil, fmt.Errorf("sql: select %s: %w", key, err)
	}
	return value, nil
}

// Put upserts value under key.
func (s *Store) Put(ctx context.Context, key persistence.Key, value []byte) error {
	if err := key.Validate(); err != nil {
		return err
	}

	db, err := s.handle(ctx)
	if err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, s.upsertQuery, key.Scope, key.Name, value, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("sql: upsert %s: %w", key, err)
	}
	return nil
}

func (s *Store) handle(ctx context.Context) (*sql.DB, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, gerrors.ErrStoreClosed
	}
	return s.db, nil
}
