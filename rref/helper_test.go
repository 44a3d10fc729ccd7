// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rref_test

import (
	"errors"
	"testing"

	"code.hybscloud.com/xdom/rref"
)

type leaf struct {
	N int
}

type inner struct {
	Leaves []*rref.Ref[leaf]
}

type outer struct {
	Name   string
	Inners [2]*rref.Ref[inner]
}

// hidden nests a reference behind an unexported field and an interface.
type hidden struct {
	ref  *rref.Ref[leaf]
	any  any
	byID map[int]*rref.Ref[leaf]
}

type node struct {
	Next *rref.Ref[node]
}

// newHeap returns an initialized heap with the test types registered.
func newHeap(t testing.TB, opts ...rref.HeapOption) *rref.Heap {
	t.Helper()
	reg := rref.NewRegistry()
	rref.Register[leaf](reg)
	rref.Register[inner](reg)
	rref.Register[outer](reg)
	rref.Register[hidden](reg)
	rref.Register[node](reg)
	rref.Register[int](reg)
	rref.RegisterDriverTypes(reg)
	h := rref.NewHeap(opts...)
	h.Init(reg)
	return h
}

// mustPanicWith runs fn and fails unless it panics with an error matching
// target.
func mustPanicWith(t *testing.T, target error, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		v := recover()
		if v == nil {
			t.Fatalf("no panic, want %v", target)
		}
		err, ok := v.(error)
		if !ok || !errors.Is(err, target) {
			t.Fatalf("panic %v, want %v", v, target)
		}
	}()
	fn()
}
