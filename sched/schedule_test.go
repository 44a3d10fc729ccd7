// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sched_test

import (
	"strings"
	"testing"

	"code.hybscloud.com/xdom/sched"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestHighestPriorityFirst(t *testing.T) {
	m := newMachine(t, 1)
	for _, p := range []int{2, 5, 5, 7} {
		m.CreateThread("p", noop, sched.WithPriority(p))
	}
	c := m.CPU(0)
	var got []int
	for range 4 {
		if !c.Schedule() {
			t.Fatal("no switch with runnable threads queued")
		}
		got = append(got, c.Current().Priority())
	}
	if diff := cmp.Diff([]int{7, 5, 5, 2}, got); diff != "" {
		t.Fatalf("selection order (-want +got):\n%s", diff)
	}

	// Everything ran once; the next pass starts again from the top.
	c.Schedule()
	if p := c.Current().Priority(); p != 7 {
		t.Fatalf("second pass got priority %d, want 7", p)
	}
}

func TestLIFOTieBreak(t *testing.T) {
	m := newMachine(t, 1)
	a := m.CreateThread("a", noop, sched.WithPriority(4))
	b := m.CreateThread("b", noop, sched.WithPriority(4))
	c := m.CPU(0)

	c.Schedule()
	if c.Current() != b {
		t.Fatalf("got %q, want the later thread b", c.Current().Name())
	}
	c.Schedule()
	if c.Current() != a {
		t.Fatalf("got %q, want a", c.Current().Name())
	}
}

func TestSingleRunnableNoSwitch(t *testing.T) {
	sw := &counting{}
	m := newMachine(t, 1, sched.WithSwitcher(sw))
	th := m.CreateThread("only", noop)
	c := m.CPU(0)

	if !c.Schedule() {
		t.Fatal("idle did not switch to the runnable thread")
	}
	for range 3 {
		if c.Schedule() {
			t.Fatal("switched with a single runnable thread")
		}
	}
	if sw.n != 1 || c.Switches() != 1 {
		t.Fatalf("switches got %d/%d, want 1", sw.n, c.Switches())
	}
	want := [][2]sched.ThreadID{{c.Idle().ID(), th.ID()}}
	if diff := cmp.Diff(want, sw.pairs); diff != "" {
		t.Fatalf("switch pairs (-want +got):\n%s", diff)
	}
	if th.State() != sched.Running {
		t.Fatalf("state got %v, want running", th.State())
	}
}

func TestIdleSubstitutedWhenNothingRuns(t *testing.T) {
	m := newMachine(t, 1)
	c := m.CPU(0)
	if c.Schedule() {
		t.Fatal("idle CPU switched with empty queues")
	}
	th := m.CreateThread("sleeper", noop)
	c.Schedule()
	th.SetState(sched.Waiting)
	if !c.Schedule() {
		t.Fatal("waiting thread kept the CPU")
	}
	if c.Current() != c.Idle() {
		t.Fatalf("got %q, want the idle thread", c.Current().Name())
	}
	if c.Queued() != 1 {
		t.Fatalf("queued got %d, want the waiting thread requeued", c.Queued())
	}
}

func TestWaitingThreadSkipped(t *testing.T) {
	m := newMachine(t, 1)
	hi := m.CreateThread("hi", noop, sched.WithPriority(9))
	lo := m.CreateThread("lo", noop, sched.WithPriority(3))
	c := m.CPU(0)

	c.Schedule()
	require.Same(t, hi, c.Current())
	hi.SetState(sched.Waiting)
	c.Schedule()
	require.Same(t, lo, c.Current())

	// hi is popped, found waiting and put back; lo keeps the CPU.
	if c.Schedule() {
		t.Fatal("switched to a waiting thread")
	}
	require.Same(t, lo, c.Current())
	require.Equal(t, 1, c.Queued())

	hi.SetState(sched.Runnable)
	c.Schedule()
	require.Same(t, hi, c.Current())
	require.Equal(t, sched.Runnable, lo.State())
}

func TestAffinityRejected(t *testing.T) {
	log, buf := logBuffer()
	m := newMachine(t, 2, sched.WithLogger(log))
	th := m.CreateThread("t", noop, sched.OnCPU(1))

	m.SetAffinity(th, m.NumCPU())
	if th.Affinity() != 1 {
		t.Fatalf("affinity got %d, want unchanged 1", th.Affinity())
	}
	if th.Rebalancing() {
		t.Fatal("rejected affinity set the rebalance flag")
	}
	if !strings.Contains(buf.String(), "affinity out of range") {
		t.Fatalf("no warning logged: %q", buf.String())
	}
}

func TestPriorityRejected(t *testing.T) {
	log, buf := logBuffer()
	m := newMachine(t, 1, sched.WithLogger(log))
	th := m.CreateThread("t", noop, sched.WithPriority(3))

	m.SetPriority(th, sched.MaxPriority+1)
	require.Equal(t, 3, th.Priority())
	require.Contains(t, buf.String(), "priority out of range")

	m.SetPriority(th, sched.MaxPriority)
	require.Equal(t, sched.MaxPriority, th.Priority())
}

func TestSetStateIgnoresSchedulerStates(t *testing.T) {
	m := newMachine(t, 1)
	th := m.CreateThread("t", noop)
	th.SetState(sched.Idle)
	th.SetState(sched.Dead)
	require.Equal(t, sched.Runnable, th.State())
}

func TestRebalanceMigration(t *testing.T) {
	m := newMachine(t, 2)
	th := m.CreateThread("mover", noop, sched.OnCPU(0))
	c0, c1 := m.CPU(0), m.CPU(1)

	c0.Schedule()
	require.Same(t, th, c0.Current())

	m.SetAffinity(th, 1)
	require.True(t, th.Rebalancing())
	require.Equal(t, sched.Rebalanced, th.State())
	// Lazy: still on CPU 0 until CPU 0 schedules.
	require.Equal(t, 0, th.CPU())
	require.Same(t, th, c0.Current())

	c0.Schedule() // gives up the CPU, thread is requeued locally
	c0.Schedule() // pops it and routes it to CPU 1
	require.Same(t, c0.Idle(), c0.Current())
	require.Equal(t, uint64(1), c0.Migrations())
	require.Equal(t, 0, c0.Queued())

	if !c1.Schedule() {
		t.Fatal("CPU 1 did not pick up the migrated thread")
	}
	require.Same(t, th, c1.Current())
	require.Equal(t, 1, th.CPU())
	require.False(t, th.Rebalancing())
	require.Equal(t, sched.Running, th.State())
}

func TestAffinityBackCancelsMigration(t *testing.T) {
	m := newMachine(t, 2)
	th := m.CreateThread("t", noop, sched.OnCPU(0))
	c0 := m.CPU(0)
	c0.Schedule()

	m.SetAffinity(th, 1)
	m.SetAffinity(th, 0)
	require.False(t, th.Rebalancing())
	require.False(t, c0.Schedule())
	require.Same(t, th, c0.Current())
	require.Equal(t, uint64(0), c0.Migrations())
}

func TestCreateThreadSpreadsOverCPUs(t *testing.T) {
	m := newMachine(t, 3)
	for range 6 {
		m.CreateThread("w", noop)
	}
	for i := range m.NumCPU() {
		c := m.CPU(i)
		c.Schedule()
		require.Equal(t, 1, c.Queued(), "cpu %d", i)
		require.Equal(t, i, c.Current().CPU())
	}
}

func TestStateString(t *testing.T) {
	require.Equal(t, "rebalanced", sched.Rebalanced.String())
	require.Equal(t, "unknown", sched.State(99).String())
}

func BenchmarkScheduleRoundRobin(b *testing.B) {
	m := newMachine(b, 1)
	for p := range 8 {
		m.CreateThread("w", noop, sched.WithPriority(p))
	}
	c := m.CPU(0)
	b.ReportAllocs()
	for b.Loop() {
		c.Schedule()
	}
}
