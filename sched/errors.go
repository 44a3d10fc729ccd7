// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sched

import "errors"

// Fatal scheduler errors, raised with panic.
var (
	ErrContinuationOverflow  = errors.New("sched: continuation stack full")
	ErrContinuationUnderflow = errors.New("sched: continuation stack empty")
)

// IsFatal reports whether v, typically a recovered panic value, is a fatal
// scheduler error.
func IsFatal(v any) bool {
	err, ok := v.(error)
	if !ok {
		return false
	}
	return errors.Is(err, ErrContinuationOverflow) || errors.Is(err, ErrContinuationUnderflow)
}
