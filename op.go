// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package xdom

import (
	"code.hybscloud.com/kont"
	"code.hybscloud.com/xdom/rref"
	"code.hybscloud.com/xdom/sched"
)

// Invoke is the effect operation for a cross-domain call.
// Perform(Invoke[R]{Proxy: p, Fn: fn, Args: args}) runs fn in p's callee
// domain and resumes with Right(result), or Left(err) if the callee
// panicked or had crashed before.
type Invoke[R any] struct {
	kont.Phantom[kont.Either[error, R]]
	Proxy *Proxy
	Fn    func(*CallContext) R
	Args  []Movable
}

// DispatchDomain handles Invoke on the calling thread.
// The call runs to completion on the same goroutine; it never suspends.
func (op Invoke[R]) DispatchDomain(th *sched.Thread) kont.Resumed {
	return Call(op.Proxy, th, op.Fn, op.Args...)
}

// Yield is the effect operation for giving up the CPU.
// Perform(Yield{}) returns once the scheduler runs the thread again.
type Yield struct {
	kont.Phantom[struct{}]
}

// DispatchDomain handles Yield by rescheduling the calling thread.
func (Yield) DispatchDomain(th *sched.Thread) kont.Resumed {
	th.Yield()
	return struct{}{}
}

// Self is the effect operation for reading the current domain.
// Perform(Self{}) resumes with the domain the thread is executing in.
type Self struct {
	kont.Phantom[rref.DomainID]
}

// DispatchDomain handles Self. Never blocks.
func (Self) DispatchDomain(th *sched.Thread) kont.Resumed {
	return th.Domain()
}
