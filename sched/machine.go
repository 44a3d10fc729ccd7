// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sched

import (
	"context"
	"runtime"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// stackSpan spaces the simulated stack tops of successive threads.
const stackSpan = 64 << 10

// Machine is a set of CPUs sharing the rebalance queues.
type Machine struct {
	cpus     []*CPU
	rb       *rebalancer
	log      zerolog.Logger
	switcher Switcher
	tick     time.Duration
	rbCap    int
	ncpu     int

	nextID  atomix.Uint64
	live    atomix.Int64
	running atomix.Bool
}

// Option configures a Machine.
type Option func(*Machine)

// WithCPUs sets the number of CPUs. The default is GOMAXPROCS.
func WithCPUs(n int) Option {
	return func(m *Machine) {
		if n > 0 {
			m.ncpu = n
		}
	}
}

// WithLogger sets the logger for scheduler diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Machine) { m.log = l }
}

// WithSwitcher replaces the goroutine handoff. [Bookkeeping] turns
// Schedule into a pure decision step.
func WithSwitcher(s Switcher) Option {
	return func(m *Machine) { m.switcher = s }
}

// WithTick sets the timer tick interval used by Run. Zero disables the
// timer; threads then switch only when they yield.
func WithTick(d time.Duration) Option {
	return func(m *Machine) { m.tick = d }
}

// WithRebalanceCapacity sets the per-CPU migration FIFO capacity.
func WithRebalanceCapacity(n int) Option {
	return func(m *Machine) {
		if n > 0 {
			m.rbCap = n
		}
	}
}

// NewMachine creates a machine whose CPUs each start on their idle thread.
func NewMachine(opts ...Option) *Machine {
	m := &Machine{
		log:      zerolog.Nop(),
		switcher: handoff{},
		rbCap:    DefaultRebalanceCapacity,
		ncpu:     runtime.GOMAXPROCS(0),
	}
	for _, o := range opts {
		o(m)
	}
	m.rb = newRebalancer(m.ncpu, m.rbCap)
	m.cpus = make([]*CPU, m.ncpu)
	for i := range m.cpus {
		m.cpus[i] = newCPU(m, i)
	}
	return m
}

// NumCPU returns the number of CPUs.
func (m *Machine) NumCPU() int { return len(m.cpus) }

// CPU returns CPU i.
func (m *Machine) CPU(i int) *CPU { return m.cpus[i] }

// Live returns the number of created threads that have not exited.
func (m *Machine) Live() int64 { return m.live.Load() }

func (m *Machine) newThread(name string, entry func(*Thread)) *Thread {
	t := &Thread{
		id:    ThreadID(m.nextID.Add(1)),
		name:  name,
		entry: entry,
		m:     m,
		wake:  make(chan struct{}, 1),
	}
	t.priority.Store(DefaultPriority)
	t.ctx.RSP = uint64(t.id) * stackSpan
	return t
}

// CreateThread creates a Runnable thread that will run entry and hands it
// to its CPU through the rebalance queue. By default threads are spread
// over the CPUs by id.
func (m *Machine) CreateThread(name string, entry func(*Thread), opts ...ThreadOption) *Thread {
	t := m.newThread(name, entry)
	t.affinity.Store(uint32(uint64(t.id) % uint64(len(m.cpus))))
	for _, o := range opts {
		o(t)
	}
	t.state.Store(uint32(Runnable))
	target := t.Affinity()
	t.cpuID.Store(uint32(target))
	m.live.Add(1)

	var bo iox.Backoff
	for {
		err := m.rb.push(target, t)
		if err == nil {
			break
		}
		if !iox.IsWouldBlock(err) {
			panic(err)
		}
		bo.Wait()
	}
	m.log.Debug().Uint64("thread", uint64(t.id)).Str("name", name).Int("cpu", target).Int("priority", t.Priority()).Msg("sched: thread created")
	return t
}

// SetAffinity asks for t to run on cpu. The move happens lazily, the next
// time t's current CPU considers it. An out-of-range cpu is logged and
// ignored.
func (m *Machine) SetAffinity(t *Thread, cpu int) {
	if cpu < 0 || cpu >= len(m.cpus) {
		m.log.Warn().Uint64("thread", uint64(t.id)).Int("cpu", cpu).Int("cpus", len(m.cpus)).Msg("sched: affinity out of range")
		return
	}
	if t.State() == Dead {
		return
	}
	t.affinity.Store(uint32(cpu))
	if cpu == t.CPU() {
		t.rebalance.Store(false)
		t.state.CompareAndSwap(uint32(Rebalanced), uint32(Runnable))
		return
	}
	t.rebalance.Store(true)
	t.state.Store(uint32(Rebalanced))
}

// SetPriority changes t's priority. A value above MaxPriority is logged
// and ignored. A queued thread keeps its bucket until it is next queued.
func (m *Machine) SetPriority(t *Thread, p int) {
	if p < 0 || p > MaxPriority {
		m.log.Warn().Uint64("thread", uint64(t.id)).Int("priority", p).Int("max", MaxPriority).Msg("sched: priority out of range")
		return
	}
	t.priority.Store(uint32(p))
}

// Run drives every CPU's idle loop and the timer until ctx is done. Each
// CPU stops once it is back on its idle thread. Run may be called once.
func (m *Machine) Run(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		panic("sched: machine already running")
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, c := range m.cpus {
		g.Go(func() error {
			c.loop(ctx)
			return nil
		})
	}
	if m.tick > 0 {
		g.Go(func() error {
			tk := time.NewTicker(m.tick)
			defer tk.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-tk.C:
					for _, c := range m.cpus {
						c.needResched.Store(true)
					}
				}
			}
		})
	}
	m.log.Info().Int("cpus", len(m.cpus)).Dur("tick", m.tick).Msg("sched: machine running")
	return g.Wait()
}

// Wait blocks until every created thread has exited or ctx is done.
func (m *Machine) Wait(ctx context.Context) error {
	var bo iox.Backoff
	for m.live.Load() > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		bo.Wait()
	}
	return nil
}
