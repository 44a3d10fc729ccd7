// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sched

// runQueue is a priority queue of threads: one intrusive LIFO list per
// priority and a cached highest bucket.
//
// highest is never below the priority of an enqueued thread. pop lowers it
// lazily past empty buckets; push only raises it.
type runQueue struct {
	buckets [numPriorities]*Thread
	highest int
	n       int
}

func (q *runQueue) push(t *Thread) {
	p := t.Priority()
	t.next = q.buckets[p]
	q.buckets[p] = t
	if p > q.highest {
		q.highest = p
	}
	q.n++
}

func (q *runQueue) pop() *Thread {
	for q.highest > 0 && q.buckets[q.highest] == nil {
		q.highest--
	}
	t := q.buckets[q.highest]
	if t == nil {
		return nil
	}
	q.buckets[q.highest] = t.next
	t.next = nil
	q.n--
	return t
}

func (q *runQueue) len() int { return q.n }
