// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rref

import (
	"unsafe"

	"code.hybscloud.com/atomix"
)

// DomainID names the domain that currently owns an allocation.
type DomainID uint64

// Layout is the size and alignment of an allocation.
type Layout struct {
	Size  uintptr
	Align uintptr
}

// LayoutOf returns the layout of T.
func LayoutOf[T any]() Layout {
	var zero T
	return Layout{Size: unsafe.Sizeof(zero), Align: unsafe.Alignof(zero)}
}

// Handle lifecycle states.
const (
	handleLive uint32 = iota
	handleDropping
	handleFreed
)

// Handle is one heap allocation that may cross domain boundaries.
//
// The domain and borrow cells are mutable through shared handles; every
// other field is fixed at allocation.
type Handle struct {
	value   any
	domain  atomix.Uint64
	borrows atomix.Int64
	state   atomix.Uint32
	tag     TypeTag
	layout  Layout
}

// Value returns the payload: *T for a [Ref], []byte for a [Vec], the
// container itself for [Array] and [Deque]. It is nil once freed.
func (h *Handle) Value() any { return h.value }

// DomainID returns the owning domain.
func (h *Handle) DomainID() DomainID { return DomainID(h.domain.Load()) }

// Tag returns the type tag used for cleanup dispatch.
func (h *Handle) Tag() TypeTag { return h.tag }

// Layout returns the allocation layout.
func (h *Handle) Layout() Layout { return h.layout }

// Borrows returns the advisory borrow count.
func (h *Handle) Borrows() int64 { return h.borrows.Load() }

// Live reports whether the handle has not been released.
func (h *Handle) Live() bool { return h.state.Load() == handleLive }

func (h *Handle) moveTo(d DomainID) { h.domain.Store(uint64(d)) }

func (h *Handle) borrow() { h.borrows.Add(1) }

func (h *Handle) forfeit() {
	if h.borrows.Add(-1) < 0 {
		h.borrows.Add(1)
		panic(ErrBorrowUnderflow)
	}
}

func (h *Handle) mustLive() {
	if h.state.Load() != handleLive {
		panic(ErrUseAfterDrop)
	}
}
