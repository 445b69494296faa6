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
	"errors"

	"github.com/fxamacker/cbor/v2"
	"google.golang.org/protobuf/proto"
)

var (
	// ErrSerializeFailed is returned when a value cannot be encoded.
	ErrSerializeFailed = errors.New("persistence: failed to serialize value")
	// ErrDeserializeFailed is returned when stored bytes cannot be decoded into the destination.
	ErrDeserializeFailed = errors.New("persistence: failed to deserialize value")
	// ErrNilValue is returned when a nil value or destination is supplied.
	ErrNilValue = errors.New("persistence: value is nil")

	cborEncOpts = cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
		Time:        cbor.TimeUnixDynamic,
	}
	cborDecOpts = cbor.DecOptions{
		MaxNestedLevels: 32,
		IndefLength:     cbor.IndefLengthForbidden,
		UTF8:            cbor.UTF8RejectInvalid,
	}
)

// Serializer converts typed values to and from the bytes held by a Store.
type Serializer interface {
	Marshal(value any) ([]byte, error)
	Unmarshal(data []byte, dst any) error
}

// ValueSerializer encodes proto.Message values with the protobuf wire format
// and every other value with CBOR. The destination type drives decoding, so
// no type registry is needed.
//
// ValueSerializer is stateless and safe for concurrent use.
type ValueSerializer struct {
	encMode cbor.EncMode
	decMode cbor.DecMode
}

var _ Serializer = (*ValueSerializer)(nil)

// NewSerializer returns the default ValueSerializer.
func NewSerializer() *ValueSerializer {
	encMode, _ := cborEncOpts.EncMode()
	decMode, _ := cborDecOpts.DecMode()
	return &ValueSerializer{encMode: encMode, decMode: decMode}
}

// Marshal implements Serializer.
func (s *ValueSerializer) Marshal(value any) ([]byte, error) {
	if value == nil {
		return nil, ErrNilValue
	}

	if message, ok := value.(proto.Message); ok {
		bytea, err := proto.Marshal(message)
		if err != nil {
			return nil, errors.Join(ErrSerializeFailed, err)
		}
		return bytea, nil
	}

	bytea, err := s.encMode.Marshal(value)
	if err != nil {
		return nil, errors.Join(ErrSerializeFailed, err)
	}
	return bytea, nil
}

// Unmarshal implements Serializer. dst must be a non-nil pointer.
func (s *ValueSerializer) Unmarshal(data []byte, dst any) error {
	if dst == nil {
		return ErrNilValue
	}

	if message, ok := dst.(proto.Message); ok {
		if err := proto.Unmarshal(data, message); err != nil {
			return errors.Join(ErrDeserializeFailed, err)
		}
		return nil
	}

	if err := s.decMode.Unmarshal(data, dst); err != nil {
		return errors.Join(ErrDeserializeFailed, err)
	}
	return nil
}
