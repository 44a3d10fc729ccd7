// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rref

import (
	"iter"
	"unsafe"
)

// Array is a fixed-size exchange reference array of optional *Ref[T].
// A nil slot is empty. The array has its own owner; MoveTo moves the
// array and every element.
type Array[T any] struct {
	h     *Handle
	heap  *Heap
	slots []*Ref[T]
}

// NewArray allocates an array on heap owned by owner, holding a copy of
// slots. The length is fixed for the life of the array. T must be
// registered.
func NewArray[T any](heap *Heap, owner DomainID, slots []*Ref[T]) *Array[T] {
	heap.mustKnow(TagOf[T]())
	layout := Layout{
		Size:  uintptr(len(slots)) * unsafe.Sizeof((*Ref[T])(nil)),
		Align: unsafe.Alignof((*Ref[T])(nil)),
	}
	a := &Array[T]{
		h:     heap.alloc(layout, tagArray, owner),
		heap:  heap,
		slots: append([]*Ref[T](nil), slots...),
	}
	a.h.value = a
	return a
}

// Len returns the number of slots.
func (a *Array[T]) Len() int { return len(a.slots) }

// Count returns the number of occupied slots.
func (a *Array[T]) Count() int {
	n := 0
	for _, r := range a.slots {
		if r != nil {
			n++
		}
	}
	return n
}

// Get returns slot i, nil when empty.
func (a *Array[T]) Get(i int) *Ref[T] {
	a.h.mustLive()
	return a.slots[i]
}

// Set stores r in slot i and returns the previous occupant.
func (a *Array[T]) Set(i int, r *Ref[T]) *Ref[T] {
	a.h.mustLive()
	prev := a.slots[i]
	a.slots[i] = r
	return prev
}

// Take empties slot i and returns its occupant.
func (a *Array[T]) Take(i int) *Ref[T] {
	return a.Set(i, nil)
}

// All yields every slot with its index, empty ones included.
func (a *Array[T]) All() iter.Seq2[int, *Ref[T]] {
	return func(yield func(int, *Ref[T]) bool) {
		for i, r := range a.slots {
			if !yield(i, r) {
				return
			}
		}
	}
}

// Handle returns the array's own allocation handle.
func (a *Array[T]) Handle() *Handle { return a.h }

// DomainID returns the array's owner.
func (a *Array[T]) DomainID() DomainID { return a.h.DomainID() }

// MoveTo moves the array, every occupied slot and whatever those slots
// nest to d.
func (a *Array[T]) MoveTo(d DomainID) {
	if a == nil {
		return
	}
	a.visit(&walker{mode: walkMove, to: d})
}

// Drop drops every occupied slot, then the array.
func (a *Array[T]) Drop() {
	a.heap.Dealloc(a.h)
}

func (a *Array[T]) dropSlots() {
	for i, r := range a.slots {
		if r != nil {
			a.slots[i] = nil
			r.Drop()
		}
	}
}

func (a *Array[T]) visit(w *walker) {
	if w.mode == walkDrop {
		a.Drop()
		return
	}
	if !w.enter(unsafe.Pointer(a)) {
		return
	}
	w.mark(a.h)
	for _, r := range a.slots {
		r.visit(w)
	}
}
