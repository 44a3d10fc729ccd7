// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rref

import (
	"fmt"

	"code.hybscloud.com/atomix"
)

// Stats is a snapshot of heap counters.
type Stats struct {
	Allocs   uint64 // handles allocated
	Deallocs uint64 // handles released through Dealloc (cleanup ran)
	Releases uint64 // handles released through Take (no cleanup)
	Live     uint64 // handles not yet released
	Bytes    uint64 // payload bytes held by live handles
}

// Heap is the allocation backend shared by all domains.
//
// It owns the type registry: Dealloc looks up the handle's tag and runs
// the cleanup before releasing the handle.
type Heap struct {
	registry *Registry
	inited   atomix.Uint32
	budget   uint64

	allocs   atomix.Uint64
	deallocs atomix.Uint64
	releases atomix.Uint64
	bytes    atomix.Uint64
}

// HeapOption configures a Heap.
type HeapOption func(*Heap)

// WithBudget caps the payload bytes held by live handles. Zero means
// unlimited. Allocations beyond the budget fail.
func WithBudget(bytes uint64) HeapOption {
	return func(h *Heap) { h.budget = bytes }
}

// NewHeap creates a heap. It must be initialized with Init before use.
func NewHeap(opts ...HeapOption) *Heap {
	h := &Heap{}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Init installs the registry. It panics with ErrRegistryReinit if the heap
// already has one or the registry was installed elsewhere.
func (h *Heap) Init(r *Registry) {
	if !h.inited.CompareAndSwap(0, 1) {
		panic(ErrRegistryReinit)
	}
	if !r.seal() {
		h.inited.Store(0)
		panic(ErrRegistryReinit)
	}
	h.registry = r
	h.inited.Store(2)
}

// Registry returns the installed registry, or nil before Init.
func (h *Heap) Registry() *Registry {
	if h.inited.Load() != 2 {
		return nil
	}
	return h.registry
}

func (h *Heap) mustInit() *Registry {
	if h.inited.Load() != 2 {
		panic(ErrRegistryUninitialized)
	}
	return h.registry
}

// Known reports whether tag is registered. It panics before Init.
func (h *Heap) Known(tag TypeTag) bool {
	_, ok := h.mustInit().Lookup(tag)
	return ok
}

// Alloc reserves a handle for a payload of the given layout and tag.
// The caller stores the payload. It returns ErrUnknownType for an
// unregistered tag and ErrAllocFailed when the budget is exhausted.
func (h *Heap) Alloc(layout Layout, tag TypeTag) (*Handle, error) {
	r := h.mustInit()
	if _, ok := r.Lookup(tag); !ok {
		return nil, fmt.Errorf("%w: %#x", ErrUnknownType, uint64(tag))
	}
	size := uint64(layout.Size)
	for {
		cur := h.bytes.Load()
		if h.budget != 0 && cur+size > h.budget {
			return nil, fmt.Errorf("%w: %d bytes over budget %d", ErrAllocFailed, size, h.budget)
		}
		if h.bytes.CompareAndSwap(cur, cur+size) {
			break
		}
	}
	h.allocs.Add(1)
	return &Handle{tag: tag, layout: layout}, nil
}

// Dealloc runs the cleanup registered for the handle's tag, then releases
// the handle. Dropping a handle twice panics with ErrDoubleDrop; reaching a
// handle whose cleanup is in progress panics with ErrOwnershipCycle.
func (h *Heap) Dealloc(hd *Handle) {
	r := h.mustInit()
	if !hd.state.CompareAndSwap(handleLive, handleDropping) {
		if hd.state.Load() == handleDropping {
			panic(ErrOwnershipCycle)
		}
		panic(ErrDoubleDrop)
	}
	if fn, _ := r.Lookup(hd.tag); fn != nil && hd.value != nil {
		fn(hd.value)
	}
	h.free(hd)
	h.deallocs.Add(1)
}

// release frees the handle without running its cleanup.
func (h *Heap) release(hd *Handle) {
	if !hd.state.CompareAndSwap(handleLive, handleDropping) {
		panic(ErrDoubleDrop)
	}
	h.free(hd)
	h.releases.Add(1)
}

func (h *Heap) free(hd *Handle) {
	hd.value = nil
	hd.state.Store(handleFreed)
	h.bytes.Add(^(uint64(hd.layout.Size) - 1))
}

// Stats returns a snapshot of the heap counters.
func (h *Heap) Stats() Stats {
	allocs := h.allocs.Load()
	deallocs := h.deallocs.Load()
	releases := h.releases.Load()
	return Stats{
		Allocs:   allocs,
		Deallocs: deallocs,
		Releases: releases,
		Live:     allocs - deallocs - releases,
		Bytes:    h.bytes.Load(),
	}
}

// alloc allocates or panics; the fatal path for every constructor.
func (h *Heap) alloc(layout Layout, tag TypeTag, owner DomainID) *Handle {
	hd, err := h.Alloc(layout, tag)
	if err != nil {
		panic(err)
	}
	hd.domain.Store(uint64(owner))
	return hd
}

func (h *Heap) mustKnow(tag TypeTag) {
	if !h.Known(tag) {
		panic(fmt.Errorf("%w: %#x", ErrUnknownType, uint64(tag)))
	}
}
