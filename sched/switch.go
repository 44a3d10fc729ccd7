// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sched

// Switcher performs the transfer of control at the end of a context
// switch. When Switch is called the queues, the current thread, the
// continuation cursor and the register file already reflect next.
type Switcher interface {
	Switch(c *CPU, prev, next *Thread)
}

// Bookkeeping is a Switcher that transfers nothing. The caller of
// Schedule keeps running, which lets the scheduling decisions be driven
// step by step.
type Bookkeeping struct{}

func (Bookkeeping) Switch(*CPU, *Thread, *Thread) {}

// handoff runs every thread on its own goroutine and passes the CPU like a
// baton: it wakes next, then parks the caller until the CPU comes back.
type handoff struct{}

func (handoff) Switch(_ *CPU, prev, next *Thread) {
	dead := prev.State() == Dead
	if next.started {
		next.wake <- struct{}{}
	} else {
		next.started = true
		go next.run()
	}
	if dead {
		return
	}
	<-prev.wake
}
