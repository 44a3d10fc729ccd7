// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rref

import (
	"reflect"
	"sync"
	"unsafe"
)

// Exchange is implemented by *Ref, *Array, *Deque and *Vec. It cannot be
// implemented outside this package.
type Exchange interface {
	Handle() *Handle
	DomainID() DomainID
	MoveTo(d DomainID)
	visit(w *walker)
}

// CountOwned returns how many live handles reachable from x, x included,
// are owned by d.
func CountOwned(x Exchange, d DomainID) int {
	w := walker{mode: walkCount, to: d}
	x.visit(&w)
	return w.n
}

var (
	exchangeType = reflect.TypeFor[Exchange]()
	pkgPath     = reflect.TypeFor[Vec]().PkgPath()
	nestedCache sync.Map
)

// isExchange reports whether t is a pointer to one of this package's
// exchange reference types. Checking the package keeps user structs that
// embed a *Ref from matching through method promotion.
func isExchange(t reflect.Type) bool {
	return t.Kind() == reflect.Pointer &&
		t.Elem().Kind() == reflect.Struct &&
		t.Elem().PkgPath() == pkgPath &&
		t.Implements(exchangeType)
}

// hasNested reports whether a value of type t can reach an exchange
// reference. Interfaces are assumed to.
func hasNested(t reflect.Type) bool {
	if v, ok := nestedCache.Load(t); ok {
		return v.(bool)
	}
	r := scanNested(t, make(map[reflect.Type]bool))
	nestedCache.Store(t, r)
	return r
}

func scanNested(t reflect.Type, seen map[reflect.Type]bool) bool {
	if isExchange(t) {
		return true
	}
	if seen[t] {
		return false
	}
	seen[t] = true
	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Array:
		return scanNested(t.Elem(), seen)
	case reflect.Map:
		return scanNested(t.Key(), seen) || scanNested(t.Elem(), seen)
	case reflect.Struct:
		for i := range t.NumField() {
			if scanNested(t.Field(i).Type, seen) {
				return true
			}
		}
	case reflect.Interface:
		return true
	}
	return false
}

type walkMode uint8

const (
	walkDrop walkMode = iota
	walkMove
	walkCount
)

// walker visits every exchange reference reachable from a value,
// depth-first in field order. In drop mode each one is dropped; in move
// mode it and its own nested references are moved to the walker's target;
// in count mode live handles owned by the target are counted. Pointers,
// exchange references included, are followed once per walk.
type walker struct {
	mode    walkMode
	to      DomainID
	n       int
	visited map[unsafe.Pointer]struct{}
}

// enter reports whether p is seen for the first time.
func (w *walker) enter(p unsafe.Pointer) bool {
	if w.visited == nil {
		w.visited = make(map[unsafe.Pointer]struct{})
	}
	if _, ok := w.visited[p]; ok {
		return false
	}
	w.visited[p] = struct{}{}
	return true
}

// mark applies a move or count step to one handle.
func (w *walker) mark(h *Handle) {
	switch w.mode {
	case walkMove:
		h.moveTo(w.to)
	case walkCount:
		if h.Live() && h.DomainID() == w.to {
			w.n++
		}
	}
}

func (w *walker) walk(v reflect.Value) {
	t := v.Type()
	if isExchange(t) {
		if v.IsNil() {
			return
		}
		// Unexported fields yield read-only values; rebuild the pointer so
		// the method can be called.
		x := reflect.NewAt(t.Elem(), v.UnsafePointer()).Interface().(Exchange)
		x.visit(w)
		return
	}
	if t.Kind() != reflect.Interface && !hasNested(t) {
		return
	}
	switch t.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return
		}
		if w.enter(v.UnsafePointer()) {
			w.walk(v.Elem())
		}
	case reflect.Interface:
		if !v.IsNil() {
			w.walk(v.Elem())
		}
	case reflect.Struct:
		for i := range v.NumField() {
			w.walk(v.Field(i))
		}
	case reflect.Array, reflect.Slice:
		for i := range v.Len() {
			w.walk(v.Index(i))
		}
	case reflect.Map:
		it := v.MapRange()
		for it.Next() {
			w.walk(it.Key())
			w.walk(it.Value())
		}
	}
}
