// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sched

import (
	"context"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"github.com/rs/zerolog"
)

// CPU is one simulated core with its own pair of run queues.
//
// Everything except the atomic counters is touched only by whoever holds
// the CPU: the running thread, or the idle loop when nothing runs.
type CPU struct {
	id     int
	m      *Machine
	log    zerolog.Logger
	queues [2]runQueue
	active int

	current *Thread
	idle    *Thread
	regs    Context
	cont    contStack

	switches    atomix.Uint64
	migrations  atomix.Uint64
	needResched atomix.Bool
}

func newCPU(m *Machine, id int) *CPU {
	c := &CPU{id: id, m: m, log: m.log.With().Int("cpu", id).Logger()}
	idle := m.newThread("idle", nil)
	idle.state.Store(uint32(Idle))
	idle.priority.Store(0)
	idle.affinity.Store(uint32(id))
	idle.cpuID.Store(uint32(id))
	idle.started = true
	c.idle = idle
	c.current = idle
	c.cont = baseOf(idle)
	c.regs = idle.ctx
	return c
}

// ID returns the CPU index.
func (c *CPU) ID() int { return c.id }

// Current returns the thread holding the CPU.
func (c *CPU) Current() *Thread { return c.current }

// Idle returns the CPU's idle thread.
func (c *CPU) Idle() *Thread { return c.idle }

// Switches returns the number of context switches performed.
func (c *CPU) Switches() uint64 { return c.switches.Load() }

// Migrations returns the number of threads this CPU routed elsewhere.
func (c *CPU) Migrations() uint64 { return c.migrations.Load() }

// Queued returns the number of threads in the active and passive queues.
func (c *CPU) Queued() int { return c.queues[0].len() + c.queues[1].len() }

func (c *CPU) activeQ() *runQueue  { return &c.queues[c.active] }
func (c *CPU) passiveQ() *runQueue { return &c.queues[c.active^1] }

// Schedule picks the next thread and switches to it. It reports whether a
// switch happened. Schedule must be called by the holder of the CPU and
// is not re-entrant.
func (c *CPU) Schedule() bool {
	c.needResched.Store(false)
	if c.m.rb.signalled(c.id) {
		c.m.rb.drain(c.id, c.admit)
	}

	var next *Thread
	flipped := false
	for next == nil {
		t := c.activeQ().pop()
		if t == nil {
			if flipped {
				break
			}
			c.active ^= 1
			flipped = true
			continue
		}
		if t.rebalance.Load() {
			c.migrate(t)
			continue
		}
		switch t.State() {
		case Waiting, Paused:
			c.passiveQ().push(t)
			continue
		case Dead:
			continue
		}
		next = t
	}

	prev := c.current
	if next == nil {
		switch prev.State() {
		case Running, Runnable, Idle:
			return false
		}
		next = c.idle
	}
	c.switchTo(prev, next)
	return true
}

// admit takes a thread drained from this CPU's rebalance FIFO.
func (c *CPU) admit(t *Thread) {
	t.rebalance.Store(false)
	t.state.Store(uint32(Runnable))
	t.cpuID.Store(uint32(c.id))
	c.passiveQ().push(t)
}

// migrate hands t to its affinity CPU. A full FIFO keeps it here for
// another round.
func (c *CPU) migrate(t *Thread) {
	target := t.Affinity()
	if target == c.id {
		t.rebalance.Store(false)
		t.state.CompareAndSwap(uint32(Rebalanced), uint32(Runnable))
		c.passiveQ().push(t)
		return
	}
	if err := c.m.rb.push(target, t); err != nil {
		if iox.IsWouldBlock(err) {
			c.log.Warn().Uint64("thread", uint64(t.id)).Int("target", target).Msg("sched: rebalance queue full")
			c.passiveQ().push(t)
			return
		}
		panic(err)
	}
	c.migrations.Add(1)
	c.log.Debug().Uint64("thread", uint64(t.id)).Int("target", target).Msg("sched: migrated")
}

func (c *CPU) switchTo(prev, next *Thread) {
	switch prev.State() {
	case Idle:
		c.idle = prev
	case Dead:
	case Running:
		prev.state.CompareAndSwap(uint32(Running), uint32(Runnable))
		c.passiveQ().push(prev)
	default:
		c.passiveQ().push(prev)
	}
	if next.State() != Idle {
		next.state.Store(uint32(Running))
	}
	next.cpuID.Store(uint32(c.id))
	c.current = next

	prev.cont = c.cont
	if next.cont.slots == nil {
		next.cont = baseOf(next)
	}
	c.cont = next.cont

	prev.ctx = c.regs
	c.regs = next.ctx

	c.switches.Add(1)
	c.m.switcher.Switch(c, prev, next)
}

// loop is the idle thread's body.
func (c *CPU) loop(ctx context.Context) {
	var bo iox.Backoff
	for ctx.Err() == nil {
		if c.Schedule() {
			bo.Reset()
			continue
		}
		bo.Wait()
	}
}
