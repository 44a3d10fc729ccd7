// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package xdom_test

import (
	"context"
	"testing"
	"time"

	"code.hybscloud.com/kont"
	"code.hybscloud.com/xdom"
	"code.hybscloud.com/xdom/rref"
	"code.hybscloud.com/xdom/sched"
)

type leaf struct {
	N int
}

func newHeap(t testing.TB) *rref.Heap {
	t.Helper()
	reg := rref.NewRegistry()
	rref.Register[leaf](reg)
	rref.RegisterDriverTypes(reg)
	heap := rref.NewHeap()
	heap.Init(reg)
	return heap
}

// fixture is an app domain calling a blk domain from a thread that holds
// CPU 0 of a bookkeeping-only machine.
type fixture struct {
	sys  *xdom.System
	heap *rref.Heap
	th   *sched.Thread
	cpu  *sched.CPU
	app  *xdom.Domain
	blk  *xdom.Domain
	p    *xdom.Proxy
}

func newFixture(t testing.TB) *fixture {
	t.Helper()
	heap := newHeap(t)
	m := sched.NewMachine(sched.WithCPUs(1), sched.WithSwitcher(sched.Bookkeeping{}))
	sys := xdom.NewSystem(heap, m)
	app := sys.NewDomain("app")
	blk := sys.NewDomain("blk")
	th := sys.Spawn(app, "main", func(*sched.Thread) {})
	m.CPU(0).Schedule()
	if m.CPU(0).Current() != th {
		t.Fatal("fixture thread not running")
	}
	return &fixture{
		sys:  sys,
		heap: heap,
		th:   th,
		cpu:  m.CPU(0),
		app:  app,
		blk:  blk,
		p:    sys.Connect(app, blk),
	}
}

// right fails the test unless e is Right and returns its value.
func right[R any](t testing.TB, e kont.Either[error, R]) R {
	t.Helper()
	if err, ok := e.GetLeft(); ok {
		t.Fatalf("call failed: %v", err)
	}
	r, _ := e.GetRight()
	return r
}

// startMachine runs m in the background and returns a function that
// stops it and reports Run's result.
func startMachine(t testing.TB, m *sched.Machine) (stop func() error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()
	return func() error {
		cancel()
		return <-done
	}
}

func waitMachine(t testing.TB, m *sched.Machine) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.Wait(ctx); err != nil {
		t.Fatalf("threads still live: %d (%v)", m.Live(), err)
	}
}
