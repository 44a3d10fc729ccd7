// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rref

import "errors"

// Fatal usage errors. They are raised with panic; there is no recovery path.
var (
	ErrRegistryUninitialized = errors.New("rref: heap used before registry init")
	ErrRegistryReinit        = errors.New("rref: registry installed twice")
	ErrRegistrySealed        = errors.New("rref: registry modified after init")
	ErrUnknownType           = errors.New("rref: type tag not registered")
	ErrTagCollision          = errors.New("rref: type tag held by another type")
	ErrAllocFailed           = errors.New("rref: allocation failed")
	ErrDoubleDrop            = errors.New("rref: handle dropped twice")
	ErrUseAfterDrop          = errors.New("rref: handle used after drop")
	ErrOwnershipCycle        = errors.New("rref: ownership cycle")
	ErrBorrowUnderflow       = errors.New("rref: forfeit without borrow")
	ErrLenOutOfRange         = errors.New("rref: length exceeds capacity")
)

var fatal = [...]error{
	ErrRegistryUninitialized,
	ErrRegistryReinit,
	ErrRegistrySealed,
	ErrUnknownType,
	ErrTagCollision,
	ErrAllocFailed,
	ErrDoubleDrop,
	ErrUseAfterDrop,
	ErrOwnershipCycle,
	ErrBorrowUnderflow,
	ErrLenOutOfRange,
}

// IsFatal reports whether v, typically a recovered panic value, is one of
// the fatal usage errors of this package.
func IsFatal(v any) bool {
	err, ok := v.(error)
	if !ok {
		return false
	}
	for _, f := range fatal {
		if errors.Is(err, f) {
			return true
		}
	}
	return false
}
