// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sched

import (
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/xdom/rref"
)

// State is a thread's scheduling state.
type State uint32

const (
	Running State = iota
	Runnable
	Paused
	Waiting
	Idle
	Rebalanced
	// Dead marks a thread whose entry function returned. It is never
	// requeued.
	Dead
)

var stateNames = [...]string{
	Running:    "running",
	Runnable:   "runnable",
	Paused:     "paused",
	Waiting:    "waiting",
	Idle:       "idle",
	Rebalanced: "rebalanced",
	Dead:       "dead",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Priorities run from 0 to MaxPriority; higher runs first.
const (
	MaxPriority     = 15
	DefaultPriority = 7
	numPriorities   = MaxPriority + 1
)

// ThreadID identifies a thread within a machine.
type ThreadID uint64

// Thread is a schedulable unit of execution.
//
// The run-queue link, the saved context and the continuation cursor belong
// to the CPU currently holding the thread; the atomic cells may be touched
// from anywhere.
type Thread struct {
	id    ThreadID
	name  string
	entry func(*Thread)
	m     *Machine

	priority  atomix.Uint32
	affinity  atomix.Uint32
	cpuID     atomix.Uint32
	state     atomix.Uint32
	rebalance atomix.Bool
	domain    atomix.Uint64

	ctx      Context
	next     *Thread
	waitNext *Thread
	conts    [MaxContinuations]Continuation
	cont     contStack

	started bool
	wake    chan struct{}
}

// ThreadOption configures a thread at creation.
type ThreadOption func(*Thread)

// WithPriority sets the initial priority. Values above MaxPriority are
// rejected and the default is kept.
func WithPriority(p int) ThreadOption {
	return func(t *Thread) { t.m.SetPriority(t, p) }
}

// OnCPU sets the initial affinity.
func OnCPU(cpu int) ThreadOption {
	return func(t *Thread) {
		if cpu >= 0 && cpu < len(t.m.cpus) {
			t.affinity.Store(uint32(cpu))
		}
	}
}

// WithDomain sets the domain the thread starts in.
func WithDomain(d rref.DomainID) ThreadOption {
	return func(t *Thread) { t.domain.Store(uint64(d)) }
}

// ID returns the thread id.
func (t *Thread) ID() ThreadID { return t.id }

// Name returns the name given at creation.
func (t *Thread) Name() string { return t.name }

// Priority returns the current priority.
func (t *Thread) Priority() int { return int(t.priority.Load()) }

// Affinity returns the CPU the thread should run on.
func (t *Thread) Affinity() int { return int(t.affinity.Load()) }

// CPU returns the CPU the thread is queued or running on.
func (t *Thread) CPU() int { return int(t.cpuID.Load()) }

// State returns the scheduling state.
func (t *Thread) State() State { return State(t.state.Load()) }

// Rebalancing reports whether the thread is due to migrate.
func (t *Thread) Rebalancing() bool { return t.rebalance.Load() }

// SetState moves the thread to Waiting or Runnable. Other states are owned
// by the scheduler and are ignored.
func (t *Thread) SetState(s State) {
	switch s {
	case Waiting, Runnable:
		t.state.Store(uint32(s))
	default:
		t.m.log.Warn().Uint64("thread", uint64(t.id)).Stringer("state", s).Msg("sched: state not settable")
	}
}

// wakeUp moves a waiting thread to Runnable.
func (t *Thread) wakeUp() bool {
	return t.state.CompareAndSwap(uint32(Waiting), uint32(Runnable))
}

// Domain returns the domain the thread is executing in.
func (t *Thread) Domain() rref.DomainID { return rref.DomainID(t.domain.Load()) }

// SetDomain records that the thread now executes in domain d.
func (t *Thread) SetDomain(d rref.DomainID) { t.domain.Store(uint64(d)) }

// Context returns the register file saved at the thread's last switch-out.
func (t *Thread) Context() Context { return t.ctx }

// ContinuationDepth returns the depth saved at the thread's last switch-out.
func (t *Thread) ContinuationDepth() int { return t.cont.current - t.cont.start }

// Machine returns the machine the thread belongs to.
func (t *Thread) Machine() *Machine { return t.m }

// Processor returns the CPU the thread is queued or running on.
func (t *Thread) Processor() *CPU { return t.cpu() }

func (t *Thread) cpu() *CPU { return t.m.cpus[t.cpuID.Load()] }

// Yield gives up the CPU. It returns when the scheduler runs the thread
// again, possibly on another CPU.
func (t *Thread) Yield() {
	t.cpu().Schedule()
}

// Check yields if the CPU's timer tick asked for a reschedule.
func (t *Thread) Check() {
	if t.cpu().needResched.CompareAndSwap(true, false) {
		t.Yield()
	}
}

// Sleep marks the thread Waiting, releases l and yields. It returns once
// another thread sets it Runnable and the scheduler picks it again.
func (t *Thread) Sleep(l sync.Locker) {
	t.state.Store(uint32(Waiting))
	l.Unlock()
	t.Yield()
}

func (t *Thread) run() {
	t.entry(t)
	t.die()
}

func (t *Thread) die() {
	t.state.Store(uint32(Dead))
	t.m.live.Add(-1)
	t.m.log.Debug().Uint64("thread", uint64(t.id)).Str("name", t.name).Msg("sched: thread exited")
	t.cpu().Schedule()
}
