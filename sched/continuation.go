// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sched

import "code.hybscloud.com/xdom/rref"

// MaxContinuations is the per-thread continuation stack depth. Exhausting
// it means cross-domain calls recursed without bound.
const MaxContinuations = 16

// Context is the callee-saved register file of a CPU. It is saved into the
// outgoing thread and loaded from the incoming one on every switch.
type Context struct {
	RBX, RBP         uint64
	R12, R13         uint64
	R14, R15         uint64
	RSP, RIP, RFLAGS uint64
}

// Continuation is a caller snapshot taken before a cross-domain call:
// enough register state to resume the caller if the callee panics.
type Continuation struct {
	Context
	RAX, RDI, RSI, RDX uint64
	RCX, R8, R9        uint64

	// Domain is the caller's domain, restored on unwind.
	Domain rref.DomainID
	// Token is opaque to the scheduler.
	Token uint64
}

// contStack is the cursor triple over one thread's continuation array.
// start <= current <= end always holds.
type contStack struct {
	slots   *[MaxContinuations]Continuation
	current int
	start   int
	end     int
}

func baseOf(t *Thread) contStack {
	return contStack{slots: &t.conts, end: MaxContinuations}
}

// PushContinuation copies k onto the current thread's continuation stack.
// It panics with ErrContinuationOverflow when the stack is full.
func (c *CPU) PushContinuation(k *Continuation) {
	if c.cont.current >= c.cont.end {
		panic(ErrContinuationOverflow)
	}
	c.cont.slots[c.cont.current] = *k
	c.cont.current++
}

// PopContinuation steps back one slot and returns it. The slot stays valid
// until the next push. It panics with ErrContinuationUnderflow when the
// stack is empty.
func (c *CPU) PopContinuation() *Continuation {
	if c.cont.current <= c.cont.start {
		panic(ErrContinuationUnderflow)
	}
	c.cont.current--
	return &c.cont.slots[c.cont.current]
}

// ContinuationDepth returns the number of pushed continuations of the
// current thread.
func (c *CPU) ContinuationDepth() int {
	return c.cont.current - c.cont.start
}

// Registers returns the live register file.
func (c *CPU) Registers() *Context { return &c.regs }

// RestoreRegisters loads ctx into the live register file.
func (c *CPU) RestoreRegisters(ctx Context) { c.regs = ctx }
