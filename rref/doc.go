// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package rref provides exchange references: owning handles to values on a
// shared heap that cross domain boundaries by rewriting an owner cell
// instead of copying the payload.
//
// # Ownership
//
// Every allocation is a [Handle] carrying the payload, the owning domain,
// an advisory borrow counter, a type tag and the layout used to account
// for it. [Ref], [Array], [Deque] and [Vec] wrap a handle:
//
//   - [Ref.MoveTo] is the transfer primitive: a single atomic store.
//   - [Ref.Borrow] and [Ref.Forfeit] maintain the advisory counter.
//   - [Ref.Drop] hands the handle back to the [Heap], which runs the
//     registered cleanup for the tag so nested references are dropped
//     depth-first before the handle is released.
//
// Ownership is a tree. A cleanup that reaches a handle which is already
// being dropped panics with [ErrOwnershipCycle].
//
// # Type registry
//
// A [Registry] maps type tags to cleanup functions. It is populated during
// bring-up with [Register] (structural cleanup derived from the type's
// fields) or [RegisterFunc], then installed into a heap exactly once with
// [Heap.Init]. Allocating before Init, initializing twice, or allocating a
// type that was never registered panics.
//
// # Example
//
//	reg := rref.NewRegistry()
//	rref.Register[rref.BlockBuffer](reg)
//	heap := rref.NewHeap()
//	heap.Init(reg)
//
//	buf := rref.New(heap, 1, rref.BlockBuffer{})
//	buf.MoveTo(2)
//	buf.Drop()
package rref
