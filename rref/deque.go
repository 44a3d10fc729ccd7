// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rref

import (
	"iter"
	"unsafe"
)

// Deque is a bounded FIFO ring of exchange references.
//
// The ring has n+1 slots so that head == tail always means empty; at most
// n references are held. Pushing into a full deque hands the reference
// back instead of dropping it.
type Deque[T any] struct {
	h     *Handle
	heap  *Heap
	slots []*Ref[T]
	head  int
	tail  int
}

// NewDeque allocates an empty deque of capacity n on heap owned by owner.
// T must be registered.
func NewDeque[T any](heap *Heap, owner DomainID, n int) *Deque[T] {
	if n < 1 {
		panic("rref: deque capacity must be positive")
	}
	heap.mustKnow(TagOf[T]())
	layout := Layout{
		Size:  uintptr(n+1)*unsafe.Sizeof((*Ref[T])(nil)) + 2*unsafe.Sizeof(int(0)),
		Align: unsafe.Alignof((*Ref[T])(nil)),
	}
	q := &Deque[T]{
		h:     heap.alloc(layout, tagDeque, owner),
		heap:  heap,
		slots: make([]*Ref[T], n+1),
	}
	q.h.value = q
	return q
}

// PushBack appends r. It returns nil on success and r itself when the
// deque is full. Pushing nil is a no-op.
func (q *Deque[T]) PushBack(r *Ref[T]) *Ref[T] {
	q.h.mustLive()
	if r == nil {
		return nil
	}
	next := (q.tail + 1) % len(q.slots)
	if next == q.head {
		return r
	}
	q.slots[q.tail] = r
	q.tail = next
	return nil
}

// PopFront removes and returns the oldest reference, nil when empty.
func (q *Deque[T]) PopFront() *Ref[T] {
	q.h.mustLive()
	if q.head == q.tail {
		return nil
	}
	r := q.slots[q.head]
	q.slots[q.head] = nil
	q.head = (q.head + 1) % len(q.slots)
	return r
}

// Front returns the oldest reference without removing it.
func (q *Deque[T]) Front() *Ref[T] {
	if q.head == q.tail {
		return nil
	}
	return q.slots[q.head]
}

// Len returns the number of held references.
func (q *Deque[T]) Len() int {
	return (q.tail - q.head + len(q.slots)) % len(q.slots)
}

// Cap returns the maximum number of held references.
func (q *Deque[T]) Cap() int { return len(q.slots) - 1 }

// Full reports whether the next PushBack would be rejected.
func (q *Deque[T]) Full() bool { return q.Len() == q.Cap() }

// All yields the held references in FIFO order.
func (q *Deque[T]) All() iter.Seq[*Ref[T]] {
	return func(yield func(*Ref[T]) bool) {
		for i := q.head; i != q.tail; i = (i + 1) % len(q.slots) {
			if !yield(q.slots[i]) {
				return
			}
		}
	}
}

// Items yields the held references in FIFO order with their position from
// the front. Values may be mutated in place through Get.
func (q *Deque[T]) Items() iter.Seq2[int, *Ref[T]] {
	return func(yield func(int, *Ref[T]) bool) {
		n := 0
		for i := q.head; i != q.tail; i = (i + 1) % len(q.slots) {
			if !yield(n, q.slots[i]) {
				return
			}
			n++
		}
	}
}

// Handle returns the deque's own allocation handle.
func (q *Deque[T]) Handle() *Handle { return q.h }

// DomainID returns the deque's owner.
func (q *Deque[T]) DomainID() DomainID { return q.h.DomainID() }

// MoveTo moves the deque, every held reference and whatever those
// references nest to d in one pass.
func (q *Deque[T]) MoveTo(d DomainID) {
	if q == nil {
		return
	}
	q.visit(&walker{mode: walkMove, to: d})
}

// Drop drops every held reference, then the deque.
func (q *Deque[T]) Drop() {
	q.heap.Dealloc(q.h)
}

func (q *Deque[T]) dropSlots() {
	for i, r := range q.slots {
		if r != nil {
			q.slots[i] = nil
			r.Drop()
		}
	}
	q.head, q.tail = 0, 0
}

func (q *Deque[T]) visit(w *walker) {
	if w.mode == walkDrop {
		q.Drop()
		return
	}
	if !w.enter(unsafe.Pointer(q)) {
		return
	}
	w.mark(q.h)
	for i := q.head; i != q.tail; i = (i + 1) % len(q.slots) {
		q.slots[i].visit(w)
	}
}
