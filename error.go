// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package xdom

import (
	"code.hybscloud.com/kont"
	"code.hybscloud.com/xdom/sched"
)

// domainErrorHandler handles both domain and error effects.
// Domain ops run on the thread. Error ops short-circuit on Throw.
type domainErrorHandler[E, A any] struct {
	th     *sched.Thread
	errCtx *kont.ErrorContext[E]
}

// Dispatch implements kont.Handler for the composed Domain+Error handler.
// Dispatch order: Domain → Error.
func (h domainErrorHandler[E, A]) Dispatch(op kont.Operation) (kont.Resumed, bool) {
	if dop, ok := op.(domainDispatcher); ok {
		return dop.DispatchDomain(h.th), true
	}
	if eop, ok := op.(interface {
		DispatchError(ctx *kont.ErrorContext[E]) (kont.Resumed, bool)
	}); ok {
		v, _ := eop.DispatchError(h.errCtx)
		if h.errCtx.HasErr {
			return kont.Left[E, A](h.errCtx.Err), false
		}
		return v, true
	}
	panic("xdom: unhandled effect in domainErrorHandler")
}

// ExecError runs a domain protocol with error handling on th.
// Returns Either[E, R]: Right on success, Left on Throw.
func ExecError[E, R any](th *sched.Thread, protocol kont.Eff[R]) kont.Either[E, R] {
	wrapped := kont.Map[kont.Resumed, R, kont.Either[E, R]](protocol, func(r R) kont.Either[E, R] {
		return kont.Right[E, R](r)
	})
	var errCtx kont.ErrorContext[E]
	h := domainErrorHandler[E, R]{th: th, errCtx: &errCtx}
	return kont.Handle(wrapped, h)
}

// Must unwraps a call result inside a protocol, turning Left into a Throw
// that ExecError reports.
func Must[R any](e kont.Either[error, R]) kont.Eff[R] {
	if err, ok := e.GetLeft(); ok {
		return kont.ThrowError[error, R](err)
	}
	r, _ := e.GetRight()
	return kont.Pure(r)
}
