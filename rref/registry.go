// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rref

import (
	"fmt"
	"reflect"
	"strconv"
	"sync"

	"code.hybscloud.com/atomix"
	"github.com/zeebo/xxh3"
)

// TypeTag identifies a payload type for cleanup dispatch.
type TypeTag uint64

// Cleanup tears down a payload before its handle is released.
// value is what [Handle.Value] returned.
type Cleanup func(value any)

var (
	// tagCache memoizes reflect.Type -> TypeTag.
	tagCache sync.Map
	// tagOwners maps every handed-out tag to its type.
	tagOwners sync.Map
)

// TagOf returns the type tag of T: an xxh3 hash of its qualified name.
// Distinct types sharing a name, such as local types declared in
// different functions, get distinct tags.
func TagOf[T any]() TypeTag {
	return tagOfType(reflect.TypeFor[T]())
}

func tagOfType(t reflect.Type) TypeTag {
	if v, ok := tagCache.Load(t); ok {
		return v.(TypeTag)
	}
	name := t.String()
	if p := t.PkgPath(); p != "" {
		name = p + "." + t.Name()
	}
	for i := 0; ; i++ {
		key := name
		if i > 0 {
			key += "#" + strconv.Itoa(i)
		}
		tag := TypeTag(xxh3.HashString(key))
		if owner, _ := tagOwners.LoadOrStore(tag, t); owner.(reflect.Type) == t {
			v, _ := tagCache.LoadOrStore(t, tag)
			return v.(TypeTag)
		}
	}
}

// Built-in tags for container allocations. Their cleanups are installed by
// NewRegistry; element types are registered separately.
var (
	tagArray = TypeTag(xxh3.HashString("code.hybscloud.com/xdom/rref.Array"))
	tagDeque = TypeTag(xxh3.HashString("code.hybscloud.com/xdom/rref.Deque"))
	tagVec   = TypeTag(xxh3.HashString("code.hybscloud.com/xdom/rref.Vec"))
)

// slotDropper is implemented by the container payloads.
type slotDropper interface {
	dropSlots()
}

func dropContainer(value any) {
	value.(slotDropper).dropSlots()
}

type entry struct {
	name    string
	typ     reflect.Type
	cleanup Cleanup
	// traverse walks the nested references of a payload; nil when the
	// type has none.
	traverse func(value any, w *walker)
}

// Registry maps type tags to cleanup functions.
//
// It is written during bring-up and becomes read-only once a heap installs
// it; lookups after that need no locking.
type Registry struct {
	entries map[TypeTag]entry
	sealed  atomix.Uint32
}

// NewRegistry returns a registry holding the built-in container tags.
func NewRegistry() *Registry {
	r := &Registry{entries: make(map[TypeTag]entry)}
	r.entries[tagArray] = entry{name: "rref.Array", cleanup: dropContainer}
	r.entries[tagDeque] = entry{name: "rref.Deque", cleanup: dropContainer}
	r.entries[tagVec] = entry{name: "rref.Vec"}
	return r
}

// Register adds T with a cleanup derived from its field layout: every
// exchange reference reachable from a T is dropped. Registering a type
// twice is harmless.
func Register[T any](r *Registry) TypeTag {
	t := reflect.TypeFor[T]()
	var fn Cleanup
	if hasNested(t) {
		fn = func(value any) {
			var w walker
			w.walk(reflect.ValueOf(value.(*T)).Elem())
		}
	}
	return r.add(t, fn, traversal[T](t))
}

// RegisterFunc adds T with a custom cleanup. fn receives the payload.
// Moves still follow T's field layout.
func RegisterFunc[T any](r *Registry, fn func(*T)) TypeTag {
	t := reflect.TypeFor[T]()
	return r.add(t, func(value any) { fn(value.(*T)) }, traversal[T](t))
}

// traversal derives the structural walk MoveTo and CountOwned use.
func traversal[T any](t reflect.Type) func(any, *walker) {
	if !hasNested(t) {
		return nil
	}
	return func(value any, w *walker) {
		w.walk(reflect.ValueOf(value.(*T)).Elem())
	}
}

func (r *Registry) add(t reflect.Type, fn Cleanup, traverse func(any, *walker)) TypeTag {
	if r.sealed.Load() != 0 {
		panic(ErrRegistrySealed)
	}
	tag := tagOfType(t)
	if e, ok := r.entries[tag]; ok && e.typ != nil && e.typ != t {
		panic(fmt.Errorf("%w: %s and %s", ErrTagCollision, e.typ, t))
	}
	r.entries[tag] = entry{name: t.String(), typ: t, cleanup: fn, traverse: traverse}
	return tag
}

// Lookup returns the cleanup for tag. A registered type without nested
// references has a nil cleanup and ok == true.
func (r *Registry) Lookup(tag TypeTag) (Cleanup, bool) {
	e, ok := r.entries[tag]
	return e.cleanup, ok
}

func (r *Registry) traversal(tag TypeTag) func(any, *walker) {
	return r.entries[tag].traverse
}

// Name returns the registered type name for tag.
func (r *Registry) Name(tag TypeTag) string {
	return r.entries[tag].name
}

// Len returns the number of registered tags, built-ins included.
func (r *Registry) Len() int { return len(r.entries) }

// Sealed reports whether a heap has installed the registry.
func (r *Registry) Sealed() bool { return r.sealed.Load() != 0 }

func (r *Registry) seal() bool {
	return r.sealed.CompareAndSwap(0, 1)
}
