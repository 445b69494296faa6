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

// Package bolt provides a persistence.Store backed by a local BoltDB file.
package bolt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	bbolt "go.etcd.io/bbolt"

	gerrors "github.com/tochemey/durable/errors"
	"github.com/tochemey/durable/persistence"
)

const (
	boltFileMode   os.FileMode = 0o600
	boltRootBucket             = "durable_state"
	boltTimeout                = time.Second
)

// Store keeps records in a BoltDB file. Every scope gets its own nested
// bucket under a single root bucket, so scopes never share a keyspace.
//
// bbolt provides single-writer/multi-reader semantics. The mutex only guards
// the open/closed state of the handle.
type Store struct {
	path string
	mu   sync.RWMutex
	db   *bbolt.DB
}

var _ persistence.Store = (*Store)(nil)

// NewStore creates a Store writing to the file at path. The file is opened on Connect.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Connect opens (or creates) the database file and its root bucket.
func (s *Store) Connect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	if strings.TrimSpace(s.path) == "" {
		return errors.New("bolt: database path is required")
	}

	path := filepath.Clean(s.path)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("bolt: creating database folder: %w", err)
	}

	db, err := bbolt.Open(path, boltFileMode, &bbolt.Options{Timeout: boltTimeout})
	if err != nil {
		return fmt.Errorf("bolt: opening database: %w", err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, e := tx.CreateBucketIfNotExists([]byte(boltRootBucket))
		return e
	}); err != nil {
		_ = db.Close()
		return fmt.Errorf("bolt: initializing root bucket: %w", err)
	}

	s.db = db
	return nil
}

// Disconnect closes the database file. The file is kept on disk.
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

// Ping opens a read transaction against the database.
func (s *Store) Ping(ctx context.Context) error {
	db, err := s.handle(ctx)
	if err != nil {
		return err
	}
	return db.View(func(*bbolt.Tx) error { return nil })
}

// Get returns the record stored under key.
func (s *Store) Get(ctx context.Context, key persistence.Key) ([]byte, error) {
	db, err := s.handle(ctx)
	if err != nil {
		return nil, err
	}

	var value []byte
	err = db.View(func(tx *bbolt.Tx) error {
		root := tx.Bucket([]byte(boltRootBucket))
		if root == nil {
			return fmt.Errorf("bolt: bucket %q missing", boltRootBucket)
		}
		scope := root.Bucket([]byte(key.Scope))
		if scope == nil {
			return gerrors.NewErrKeyNotFound(key.String())
		}
		raw := scope.Get([]byte(key.Name))
		if raw == nil {
			return gerrors.NewErrKeyNotFound(key.String())
		}
		// raw is only valid for the life of the transaction
		value = bytes.Clone(raw)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Put writes value under key in a single read-write transaction.
func (s *Store) Put(ctx context.Context, key persistence.Key, value []byte) error {
	if err := key.Validate(); err != nil {
		return err
	}

	db, err := s.handle(ctx)
	if err != nil {
		return err
	}

	return db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket([]byte(boltRootBucket))
		if root == nil {
			return fmt.Errorf("bolt: bucket %q missing", boltRootBucket)
		}
		scope, err := root.CreateBucketIfNotExists([]byte(key.Scope))
		if err != nil {
			return err
		}
		return scope.Put([]byte(key.Name), value)
	})
}

func (s *Store) handle(ctx context.Context) (*bbolt.DB, error) {
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
