// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sched

import (
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/lfq"
	"golang.org/x/sys/cpu"
)

// DefaultRebalanceCapacity is the per-CPU migration FIFO capacity.
const DefaultRebalanceCapacity = 1024

// signal is a per-CPU flag on its own cache line.
type signal struct {
	_   cpu.CacheLinePad
	set atomix.Bool
	_   cpu.CacheLinePad
}

// rebalancer hands migrating threads to their target CPU. The FIFOs are
// shared by every CPU and sit behind one lock; the flags are read without
// it.
type rebalancer struct {
	mu     sync.Mutex
	queues []lfq.SPSC[*Thread]
	flags  []signal
}

func newRebalancer(ncpu, capacity int) *rebalancer {
	r := &rebalancer{
		queues: make([]lfq.SPSC[*Thread], ncpu),
		flags:  make([]signal, ncpu),
	}
	for i := range r.queues {
		r.queues[i].Init(capacity)
	}
	return r
}

// push queues t for cpu and raises its flag. It returns
// iox.ErrWouldBlock when the FIFO is full.
func (r *rebalancer) push(cpu int, t *Thread) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.queues[cpu].Enqueue(&t); err != nil {
		return err
	}
	r.flags[cpu].set.Store(true)
	return nil
}

func (r *rebalancer) signalled(cpu int) bool {
	return r.flags[cpu].set.Load()
}

// drain clears cpu's flag and passes every queued thread to fn in FIFO
// order.
func (r *rebalancer) drain(cpu int, fn func(*Thread)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flags[cpu].set.Store(false)
	for {
		t, err := r.queues[cpu].Dequeue()
		if err != nil {
			return
		}
		fn(t)
	}
}
