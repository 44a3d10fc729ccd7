// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sched

import "sync"

// WaitQueue parks threads until another thread wakes them.
// The zero value is ready to use.
type WaitQueue struct {
	mu   sync.Mutex
	head *Thread
	tail *Thread
}

// Sleep parks t on q. t must be the calling thread.
func (q *WaitQueue) Sleep(t *Thread) {
	q.mu.Lock()
	t.waitNext = nil
	if q.tail == nil {
		q.head = t
	} else {
		q.tail.waitNext = t
	}
	q.tail = t
	t.Sleep(&q.mu)
}

// SleepUnless parks t unless cond holds. cond is evaluated under the queue
// lock, so a wake issued after cond changes cannot be lost.
func (q *WaitQueue) SleepUnless(t *Thread, cond func() bool) {
	q.mu.Lock()
	if cond() {
		q.mu.Unlock()
		return
	}
	t.waitNext = nil
	if q.tail == nil {
		q.head = t
	} else {
		q.tail.waitNext = t
	}
	q.tail = t
	t.Sleep(&q.mu)
}

// WakeOne makes the oldest sleeper Runnable. It reports whether there was
// one.
func (q *WaitQueue) WakeOne() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.head != nil {
		t := q.head
		q.head = t.waitNext
		if q.head == nil {
			q.tail = nil
		}
		t.waitNext = nil
		if t.wakeUp() {
			return true
		}
	}
	return false
}

// WakeAll makes every sleeper Runnable and returns how many it woke.
func (q *WaitQueue) WakeAll() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for t := q.head; t != nil; {
		next := t.waitNext
		t.waitNext = nil
		if t.wakeUp() {
			n++
		}
		t = next
	}
	q.head, q.tail = nil, nil
	return n
}
