// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rref

import "unsafe"

// Ref is an exchange reference to a single value of type T.
//
// A Ref is held by pointer. Exactly one domain, the one named by
// DomainID, may treat the value as its own; handing it to another domain
// is MoveTo followed by the caller no longer touching it. The core does not
// detect use after a move.
type Ref[T any] struct {
	h    *Handle
	heap *Heap
}

// New allocates value on heap owned by owner.
// It panics if the heap has no registry, T is not registered, or the heap
// budget is exhausted.
func New[T any](heap *Heap, owner DomainID, value T) *Ref[T] {
	h := heap.alloc(LayoutOf[T](), TagOf[T](), owner)
	p := new(T)
	*p = value
	h.value = p
	return &Ref[T]{h: h, heap: heap}
}

// Get returns the payload. The caller must own the reference.
func (r *Ref[T]) Get() *T {
	r.h.mustLive()
	return r.h.value.(*T)
}

// Handle returns the underlying allocation handle.
func (r *Ref[T]) Handle() *Handle { return r.h }

// DomainID returns the owning domain.
func (r *Ref[T]) DomainID() DomainID { return r.h.DomainID() }

// MoveTo transfers ownership to d together with every exchange reference
// nested in the value. No payload bytes are copied. A nil Ref is a no-op.
func (r *Ref[T]) MoveTo(d DomainID) {
	r.visit(&walker{mode: walkMove, to: d})
}

// Borrow records one immutable borrow. The count is advisory.
func (r *Ref[T]) Borrow() { r.h.borrow() }

// Forfeit ends one borrow. It panics with ErrBorrowUnderflow if there is
// no outstanding borrow.
func (r *Ref[T]) Forfeit() { r.h.forfeit() }

// BorrowCount returns the number of outstanding borrows.
func (r *Ref[T]) BorrowCount() int64 { return r.h.Borrows() }

// Drop releases the reference, dropping every exchange reference nested in
// the value first.
func (r *Ref[T]) Drop() {
	r.heap.Dealloc(r.h)
}

// Take releases the reference and returns the value without running its
// cleanup. Nested references now belong to the caller.
func (r *Ref[T]) Take() T {
	r.h.mustLive()
	v := *r.h.value.(*T)
	r.heap.release(r.h)
	return v
}

func (r *Ref[T]) visit(w *walker) {
	if r == nil {
		return
	}
	if w.mode == walkDrop {
		r.Drop()
		return
	}
	if !w.enter(unsafe.Pointer(r)) {
		return
	}
	w.mark(r.h)
	if v := r.h.value; v != nil {
		if fn := r.heap.mustInit().traversal(r.h.tag); fn != nil {
			fn(v, w)
		}
	}
}
