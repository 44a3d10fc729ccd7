// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package xdom

import (
	"errors"
	"fmt"
	"runtime/debug"

	"code.hybscloud.com/kont"
	"code.hybscloud.com/xdom/rref"
	"code.hybscloud.com/xdom/sched"
)

var (
	// ErrCallAborted is returned in place of a result when the callee
	// panicked. The panic is wrapped as a *PanicError.
	ErrCallAborted = errors.New("xdom: call aborted")
	// ErrDomainCrashed is returned for calls into a crashed domain that has
	// not been restarted.
	ErrDomainCrashed = errors.New("xdom: domain crashed")
)

// PanicError carries a recovered callee panic.
type PanicError struct {
	Domain string
	Value  any
	Stack  []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("xdom: domain %s panicked: %v", e.Domain, e.Value)
}

// Unwrap returns the panic value if it is an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// Movable is an exchange reference that can cross a domain boundary:
// *rref.Ref, *rref.Array, *rref.Deque and *rref.Vec. Moving one moves
// every reference nested in it.
type Movable interface {
	rref.Exchange
}

// Proxy is the call gate from one domain into another.
type Proxy struct {
	caller *Domain
	callee *Domain
}

// Caller returns the calling side.
func (p *Proxy) Caller() *Domain { return p.caller }

// Callee returns the called side.
func (p *Proxy) Callee() *Domain { return p.callee }

// CallContext is what a callee function sees.
type CallContext struct {
	Thread *sched.Thread
	Caller *Domain
	Callee *Domain
}

// Heap returns the heap the callee allocates from.
func (c *CallContext) Heap() *rref.Heap { return c.Callee.sys.heap }

// Call runs fn in p's callee domain on th.
//
// Every argument is moved to the callee first, a continuation holding the
// caller's registers and domain is pushed, and th switches to the callee
// domain. On return the continuation is popped, arguments still owned by
// the callee and a Movable result are moved back, and the caller domain is
// restored. If fn panics the caller's registers and domain are restored
// from the continuation instead, the callee is marked crashed and the
// result is Left(ErrCallAborted). Every live handle the callee still owns
// through the arguments, nested ones included, is counted as leaked.
//
// Fatal errors from rref and sched are not caught.
func Call[R any](p *Proxy, th *sched.Thread, fn func(*CallContext) R, args ...Movable) kont.Either[error, R] {
	callee := p.callee
	if callee.Crashed() {
		return kont.Left[error, R](fmt.Errorf("%w: %s", ErrDomainCrashed, callee.name))
	}
	callee.calls.Add(1)
	caller := th.Domain()
	for _, a := range args {
		a.MoveTo(callee.id)
	}

	cpu := th.Processor()
	k := sched.Continuation{
		Context: *cpu.Registers(),
		Domain:  caller,
		Token:   uint64(callee.id),
	}
	cpu.PushContinuation(&k)
	th.SetDomain(callee.id)

	ctx := &CallContext{Thread: th, Caller: p.caller, Callee: callee}
	result, perr := invoke(ctx, fn)

	// The callee may have yielded and resumed on another CPU.
	cpu = th.Processor()
	saved := cpu.PopContinuation()
	if perr != nil {
		cpu.RestoreRegisters(saved.Context)
		th.SetDomain(saved.Domain)
		leaked := 0
		for _, a := range args {
			leaked += rref.CountOwned(a, callee.id)
		}
		callee.crash(perr, leaked)
		return kont.Left[error, R](fmt.Errorf("%w: %w", ErrCallAborted, perr))
	}

	for _, a := range args {
		if a.Handle().Live() && a.DomainID() == callee.id {
			a.MoveTo(caller)
		}
	}
	if m, ok := any(result).(Movable); ok {
		m.MoveTo(caller)
	}
	th.SetDomain(saved.Domain)
	return kont.Right[error, R](result)
}

func invoke[R any](ctx *CallContext, fn func(*CallContext) R) (result R, perr *PanicError) {
	defer func() {
		v := recover()
		if v == nil {
			return
		}
		if rref.IsFatal(v) || sched.IsFatal(v) {
			panic(v)
		}
		perr = &PanicError{Domain: ctx.Callee.name, Value: v, Stack: debug.Stack()}
	}()
	return fn(ctx), nil
}
