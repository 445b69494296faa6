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

package persistence

import (
	"context"
	"errors"
	"time"

	gerrors "github.com/tochemey/durable/errors"
)

// Storage is the typed, single-scope view of a Store handed to one grain.
type Storage interface {
	// Get decodes the record named key into dst. It returns an error wrapping
	// errors.ErrKeyNotFound when the record does not exist and an error wrapping
	// errors.ErrStorageUnavailable on any other backend failure.
	Get(ctx context.Context, key string, dst any) error
	// Put encodes value and writes it under key. Backend failures are wrapped
	// with errors.ErrStorageUnavailable.
	Put(ctx context.Context, key string, value any) error
	// Scope returns the scope this view is bound to.
	Scope() string
}

// StorageOption configures a Storage view.
type StorageOption interface {
	apply(*scopedStorage)
}

// StorageOptionFunc implements StorageOption.
type StorageOptionFunc func(*scopedStorage)

func (f StorageOptionFunc) apply(s *scopedStorage) {
	f(s)
}

// WithStoreTimeout bounds every backend call. Zero disables the bound.
func WithStoreTimeout(timeout time.Duration) StorageOption {
	return StorageOptionFunc(func(s *scopedStorage) {
		s.timeout = timeout
	})
}

// WithSerializer overrides the default value serializer.
func WithSerializer(serializer Serializer) StorageOption {
	return StorageOptionFunc(func(s *scopedStorage) {
		s.serializer = serializer
	})
}

type scopedStorage struct {
	store      Store
	scope      string
	timeout    time.Duration
	serializer Serializer
}

var _ Storage = (*scopedStorage)(nil)

// NewStorage binds store to scope.
func NewStorage(store Store, scope string, opts ...StorageOption) Storage {
	storage := &scopedStorage{
		store:      store,
		scope:      scope,
		serializer: NewSerializer(),
	}
	for _, opt := range opts {
		opt.apply(storage)
	}
	return storage
}

func (s *scopedStorage) Scope() string {
	return s.scope
}

func (s *scopedStorage) Get(ctx context.Context, key string, dst any) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	bytea, err := s.store.Get(ctx, NewKey(s.scope, key))
	if err != nil {
		if errors.Is(err, gerrors.ErrKeyNotFound) {
			return err
		}
		return gerrors.NewErrStorageUnavailable(err)
	}

	if err := s.serializer.Unmarshal(bytea, dst); err != nil {
		return gerrors.NewErrStorageUnavailable(err)
	}
	return nil
}

func (s *scopedStorage) Put(ctx context.Context, key string, value any) error {
	bytea, err := s.serializer.Marshal(value)
	if err != nil {
		return err
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	if err := s.store.Put(ctx, NewKey(s.scope, key), bytea); err != nil {
		return gerrors.NewErrStorageUnavailable(err)
	}
	return nil
}

func (s *scopedStorage) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}
