// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rref

// Vec is an exchange reference to a byte buffer of fixed capacity with a
// tracked length.
type Vec struct {
	h    *Handle
	heap *Heap
	buf  []byte
	n    int
}

// NewVec allocates a zero-length buffer of the given capacity on heap
// owned by owner.
func NewVec(heap *Heap, owner DomainID, capacity int) *Vec {
	if capacity < 0 {
		panic(ErrLenOutOfRange)
	}
	v := &Vec{
		h:    heap.alloc(Layout{Size: uintptr(capacity), Align: 1}, tagVec, owner),
		heap: heap,
		buf:  make([]byte, capacity),
	}
	v.h.value = v.buf
	return v
}

// Len returns the number of valid bytes.
func (v *Vec) Len() int { return v.n }

// Cap returns the fixed capacity.
func (v *Vec) Cap() int { return len(v.buf) }

// Bytes returns the valid bytes [0, Len). The slice aliases the buffer
// and is capped at Len, so appending to it never writes past the valid
// bytes.
func (v *Vec) Bytes() []byte {
	v.h.mustLive()
	return v.buf[:v.n:v.n]
}

// MutBytes is Bytes for callers that write in place. Go has no read-only
// slice, so both return the same aliasing view.
func (v *Vec) MutBytes() []byte { return v.Bytes() }

// Spare returns the bytes past Len, for filling before SetLen.
func (v *Vec) Spare() []byte {
	v.h.mustLive()
	return v.buf[v.n:]
}

// SetLen sets the valid length. The caller guarantees bytes [0, n) hold
// meaningful data. It panics with ErrLenOutOfRange when n > Cap.
func (v *Vec) SetLen(n int) {
	v.h.mustLive()
	if n < 0 || n > len(v.buf) {
		panic(ErrLenOutOfRange)
	}
	v.n = n
}

// Append copies as much of p as fits and returns the number of bytes
// copied.
func (v *Vec) Append(p []byte) int {
	v.h.mustLive()
	c := copy(v.buf[v.n:], p)
	v.n += c
	return c
}

// Handle returns the buffer's allocation handle.
func (v *Vec) Handle() *Handle { return v.h }

// DomainID returns the owner.
func (v *Vec) DomainID() DomainID { return v.h.DomainID() }

// MoveTo transfers ownership to d.
func (v *Vec) MoveTo(d DomainID) {
	if v == nil {
		return
	}
	v.h.moveTo(d)
}

// Drop releases the buffer.
func (v *Vec) Drop() {
	v.heap.Dealloc(v.h)
}

func (v *Vec) visit(w *walker) {
	if w.mode == walkDrop {
		v.Drop()
		return
	}
	w.mark(v.h)
}
