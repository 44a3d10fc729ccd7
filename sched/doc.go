// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package sched is a per-CPU cooperative thread scheduler.
//
// # Architecture
//
//   - Run queues: each [CPU] owns an active and a passive queue of 16 priority buckets. Buckets are LIFO; the cached highest bucket is lowered lazily.
//   - Rebalancing: [Machine.SetAffinity] only flags a thread. The CPU holding it routes it to the target CPU's FIFO the next time it considers it; FIFOs are [code.hybscloud.com/lfq] queues behind one lock, with cache-line padded signal flags.
//   - Continuations: every thread has a fixed stack of [Continuation] snapshots, addressed through a per-CPU cursor that is swapped on every switch.
//   - Switching: a [Switcher] transfers control. The default runs each thread on its own goroutine and passes the CPU like a baton; [Bookkeeping] transfers nothing, for driving decisions step by step.
//
// # Suspension points
//
// A thread gives up its CPU only in [Thread.Yield], [Thread.Sleep],
// [Thread.Check] after a timer tick, or when its entry function returns.
//
// # Example
//
//	m := sched.NewMachine(sched.WithCPUs(2), sched.WithTick(time.Millisecond))
//	m.CreateThread("worker", func(t *sched.Thread) {
//		for range 10 {
//			work()
//			t.Check()
//		}
//	})
//	go m.Run(ctx)
//	m.Wait(ctx)
package sched
