// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package xdom

import (
	"code.hybscloud.com/kont"
	"code.hybscloud.com/xdom/sched"
)

// domainDispatcher is the structural interface for domain operations.
// DispatchDomain runs on the calling thread; Yield may switch it out.
type domainDispatcher interface {
	DispatchDomain(th *sched.Thread) kont.Resumed
}

// domainHandler implements kont.Handler for domain effects.
// Value type: passed to evalFrames on the stack, avoiding heap allocation.
type domainHandler[R any] struct {
	th *sched.Thread
}

// Dispatch implements kont.Handler via structural interface assertion.
func (h domainHandler[R]) Dispatch(op kont.Operation) (kont.Resumed, bool) {
	dop, ok := op.(domainDispatcher)
	if !ok {
		panic("xdom: unhandled effect in domainHandler")
	}
	return dop.DispatchDomain(h.th), true
}

// Exec runs a Cont-world domain protocol on th.
func Exec[R any](th *sched.Thread, protocol kont.Eff[R]) R {
	return kont.Handle(protocol, domainHandler[R]{th: th})
}

// ExecExpr runs an Expr-world domain protocol on th.
func ExecExpr[R any](th *sched.Thread, protocol kont.Expr[R]) R {
	return kont.HandleExpr(protocol, domainHandler[R]{th: th})
}
