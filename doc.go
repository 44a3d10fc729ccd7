// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package xdom provides isolated domains that call each other through
// proxies, with exchange references crossing the boundary by ownership
// transfer instead of copying.
//
// Cross-domain calls are algebraic effects on [code.hybscloud.com/kont],
// dispatched on a [code.hybscloud.com/xdom/sched] thread.
//
// # Architecture
//
//   - Ownership: payloads live on a shared [code.hybscloud.com/xdom/rref.Heap]. Handing one to another domain rewrites its owner, never its bytes.
//   - Calls: [Call] moves arguments to the callee, pushes a continuation, switches the thread's domain and runs the callee on the same goroutine.
//   - Faults: a callee panic is recovered, the caller is restored from the continuation and receives [ErrCallAborted]. The callee is marked crashed until [Domain.Restart].
//   - Scheduling: calls never suspend. [Yield] and the machine's timer tick are the only switch points.
//
// # API Topologies
//
//   - Operations: [Invoke], [Yield], [Self].
//   - Cont-world: [CallBind], [CallThen], [YieldThen], [SelfBind].
//   - Recursive: [Loop] with [Continue] and [Done].
//   - Execution: [Exec], [ExecExpr], and [ExecError] with [Must] for short-circuiting on a failed call.
//
// # Example
//
//	sys := xdom.NewSystem(heap, machine)
//	app, blk := sys.NewDomain("app"), sys.NewDomain("blk")
//	p := sys.Connect(app, blk)
//	sys.Spawn(app, "main", func(th *sched.Thread) {
//		reqs := rref.NewDeque[rref.BlockRequest](heap, app.ID(), rref.BatchSmall)
//		res := xdom.Call(p, th, func(c *xdom.CallContext) int {
//			return serve(c, reqs)
//		}, reqs)
//		if err, ok := res.GetLeft(); ok {
//			log.Print(err) // blk crashed; app keeps running
//		}
//	})
package xdom
