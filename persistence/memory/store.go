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

// Package memory provides an in-process persistence.Store.
// Records do not survive a process restart. It backs tests and the default deployment profile.
package memory

import (
	"bytes"
	"context"
	"sync"

	"go.uber.org/atomic"

	gerrors "github.com/tochemey/durable/errors"
	"github.com/tochemey/durable/persistence"
)

// Store keeps records in a map guarded by a read/write mutex.
type Store struct {
	mu        sync.RWMutex
	records   map[persistence.Key][]byte
	connected *atomic.Bool
}

var _ persistence.Store = (*Store)(nil)

// NewStore creates a new instance of Store
func NewStore() *Store {
	return &Store{
		records:   make(map[persistence.Key][]byte),
		connected: atomic.NewBool(false),
	}
}

// Connect marks the store as ready
func (s *Store) Connect(context.Context) error {
	s.connected.Store(true)
	return nil
}

// Disconnect drops every record
func (s *Store) Disconnect(context.Context) error {
	if !s.connected.CompareAndSwap(true, false) {
		return nil
	}
	s.mu.Lock()
	s.records = make(map[persistence.Key][]byte)
	s.mu.Unlock()
	return nil
}

// Ping reports whether the store is connected
func (s *Store) Ping(context.Context) error {
	if !s.connected.Load() {
		return gerrors.ErrStoreClosed
	}
	return nil
}

// Get returns a copy of the record stored under key
func (s *Store) Get(ctx context.Context, key persistence.Key) ([]byte, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	value, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return nil, gerrors.NewErrKeyNotFound(key.String())
	}
	return bytes.Clone(value), nil
}

// Put stores a copy of value under key
func (s *Store) Put(ctx context.Context, key persistence.Key, value []byte) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if err := key.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.records[key] = bytes.Clone(value)
	s.mu.Unlock()
	return nil
}

// Len returns the number of records held
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *Store) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.connected.Load() {
		return gerrors.ErrStoreClosed
	}
	return nil
}
