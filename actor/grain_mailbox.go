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

package actor

import (
	"sync"
	"sync/atomic"
)

// CacheLinePadding keeps the mailbox head and tail on separate cache lines.
type CacheLinePadding [64]byte

type mailboxNode struct {
	value atomic.Pointer[GrainContext]
	next  atomic.Pointer[mailboxNode]
}

var mailboxNodePool = sync.Pool{New: func() any { return new(mailboxNode) }}

// grainMailbox is a lock-free multi-producer single-consumer FIFO queue.
// Any goroutine may Enqueue. Only the grain drain loop may Dequeue.
type grainMailbox struct {
	head atomic.Pointer[mailboxNode]
	_    CacheLinePadding
	tail atomic.Pointer[mailboxNode]
	_    CacheLinePadding
	len  atomic.Int64
}

func newGrainMailbox() *grainMailbox {
	stub := new(mailboxNode)
	mailbox := &grainMailbox{}
	mailbox.head.Store(stub)
	mailbox.tail.Store(stub)
	return mailbox
}

// Enqueue appends value at the tail.
func (m *grainMailbox) Enqueue(value *GrainContext) {
	node := mailboxNodePool.Get().(*mailboxNode)
	node.value.Store(value)
	node.next.Store(nil)

	m.len.Add(1)
	prev := m.tail.Swap(node)
	prev.next.Store(node)
}

// Dequeue removes the value at the head. It returns nil when the mailbox is empty.
func (m *grainMailbox) Dequeue() *GrainContext {
	head := m.head.Load()
	next := head.next.Load()
	if next == nil {
		return nil
	}

	m.head.Store(next)
	value := next.value.Load()
	next.value.Store(nil)
	m.len.Add(-1)

	// the old head is now unreachable from the queue
	head.next.Store(nil)
	head.value.Store(nil)
	mailboxNodePool.Put(head)
	return value
}

// Len returns the number of queued messages.
func (m *grainMailbox) Len() int64 {
	return m.len.Load()
}

// IsEmpty reports whether the mailbox holds no message.
func (m *grainMailbox) IsEmpty() bool {
	return m.Len() == 0
}
