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
	cheaps "container/heap"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/tochemey/durable/internal/types"
	"github.com/tochemey/durable/log"
)

// passivationParticipant is what the passivation manager needs from a grain process.
type passivationParticipant interface {
	passivationID() string
	passivationLatestActivity() time.Time
	passivationTry(reason string) bool
}

// passivationManager schedules idle evictions for every grain of a registry.
//
// Each registered grain has a deadline (latest activity + timeout) kept in a
// min-heap, so a single goroutine always sleeps until the next expiring grain
// and updates are O(log n). This avoids one timer goroutine per grain.
type passivationManager struct {
	logger log.Logger

	mu      sync.Mutex
	entries map[string]*passivationEntry
	queue   passivationHeap
	wake    chan types.Unit
	stop    chan types.Unit
	done    chan types.Unit
	started *atomic.Bool

	passivateFn func(*passivationEntry) bool
}

// passivationEntry stores the scheduling metadata of one grain.
// index is the position within the heap, -1 when not enqueued.
type passivationEntry struct {
	participant passivationParticipant
	id          string
	timeout     time.Duration
	deadline    time.Time
	index       int
}

func newPassivationManager(logger log.Logger) *passivationManager {
	return &passivationManager{
		logger:  logger,
		entries: make(map[string]*passivationEntry),
		queue:   passivationHeap{},
		wake:    make(chan types.Unit, 1),
		started: atomic.NewBool(false),
	}
}

// Start launches the scheduling goroutine. A stopped manager can be started again.
func (m *passivationManager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started.Load() {
		return
	}

	m.stop = make(chan types.Unit)
	m.done = make(chan types.Unit)
	m.started.Store(true)
	go m.run(m.stop, m.done)
}

// Stop terminates the scheduling goroutine and forgets every entry.
func (m *passivationManager) Stop() {
	m.mu.Lock()
	if !m.started.Load() {
		m.mu.Unlock()
		return
	}
	m.started.Store(false)
	stop, done := m.stop, m.done
	m.entries = make(map[string]*passivationEntry)
	m.queue = passivationHeap{}
	m.mu.Unlock()

	close(stop)
	<-done
	m.logger.Debug("passivation manager stopped")
}

// Register schedules participant for eviction after timeout of inactivity.
// Registering an existing participant refreshes its deadline.
func (m *passivationManager) Register(participant passivationParticipant, timeout time.Duration) {
	if participant == nil || timeout <= 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started.Load() {
		return
	}

	id := participant.passivationID()
	entry, ok := m.entries[id]
	if !ok {
		entry = &passivationEntry{participant: participant, id: id, index: -1}
		m.entries[id] = entry
	}

	entry.participant = participant
	entry.timeout = timeout
	entry.refreshDeadline()

	if entry.index >= 0 {
		cheaps.Fix(&m.queue, entry.index)
	} else {
		cheaps.Push(&m.queue, entry)
	}
	m.notifyLocked()
}

// Unregister removes participant from the schedule.
func (m *passivationManager) Unregister(participant passivationParticipant) {
	if participant == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[participant.passivationID()]
	if !ok || entry.participant != participant {
		return
	}

	if entry.index >= 0 {
		cheaps.Remove(&m.queue, entry.index)
	}
	delete(m.entries, entry.id)
}

// Touch pushes the deadline of participant after fresh activity.
func (m *passivationManager) Touch(participant passivationParticipant) {
	if participant == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[participant.passivationID()]
	if !ok || entry.participant != participant || entry.index < 0 {
		return
	}

	entry.refreshDeadline()
	cheaps.Fix(&m.queue, entry.index)
	m.notifyLocked()
}

// Len returns the number of scheduled participants.
func (m *passivationManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *passivationManager) run(stop, done chan types.Unit) {
	defer close(done)

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		entry, wait := m.nextEntry()
		if entry == nil {
			select {
			case <-m.wake:
				continue
			case <-stop:
				return
			}
		}

		if wait <= 0 {
			m.trigger(entry)
			continue
		}

		timer.Reset(wait)

		select {
		case <-timer.C:
			m.trigger(entry)
		case <-m.wake:
			stopTimer(timer)
		case <-stop:
			stopTimer(timer)
			return
		}
	}
}

func (m *passivationManager) nextEntry() (*passivationEntry, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.queue) == 0 {
		return nil, 0
	}

	entry := m.queue[0]
	wait := time.Until(entry.deadline)
	if wait < 0 {
		wait = 0
	}
	return entry, wait
}

// trigger fires expected when it is still the earliest entry and its deadline passed
func (m *passivationManager) trigger(expected *passivationEntry) {
	m.mu.Lock()
	if len(m.queue) == 0 {
		m.mu.Unlock()
		return
	}

	entry := m.queue[0]
	if entry != expected || entry.deadline.After(time.Now()) {
		m.mu.Unlock()
		return
	}

	cheaps.Pop(&m.queue)
	m.mu.Unlock()

	passivated := m.passivate(entry)

	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.entries[entry.id]
	if !ok || current != entry {
		return
	}

	switch {
	case entry.index >= 0:
		// re-registered while the eviction was being scheduled
	case passivated:
		delete(m.entries, entry.id)
	default:
		entry.refreshDeadline()
		cheaps.Push(&m.queue, entry)
	}
}

func (m *passivationManager) passivate(entry *passivationEntry) bool {
	if m.passivateFn != nil {
		return m.passivateFn(entry)
	}
	return entry.participant.passivationTry("idle timeout")
}

func (m *passivationManager) notifyLocked() {
	select {
	case m.wake <- types.Unit{}:
	default:
	}
}

func (entry *passivationEntry) refreshDeadline() {
	last := entry.participant.passivationLatestActivity()
	if last.IsZero() {
		last = time.Now()
	}
	entry.deadline = last.Add(entry.timeout)
	// a deadline in the past would spin the scheduler on a busy participant
	if now := time.Now(); entry.deadline.Before(now) {
		entry.deadline = now.Add(entry.timeout)
	}
}

func stopTimer(timer *time.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}

type passivationHeap []*passivationEntry

func (h passivationHeap) Len() int { return len(h) }

func (h passivationHeap) Less(i, j int) bool {
	return h[i].deadline.Before(h[j].deadline)
}

func (h passivationHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *passivationHeap) Push(x any) {
	entry := x.(*passivationEntry)
	entry.index = len(*h)
	*h = append(*h, entry)
}

func (h *passivationHeap) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	entry.index = -1
	*h = old[:n-1]
	return entry
}
