// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sched_test

import (
	"context"
	"testing"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/xdom/sched"
	"github.com/stretchr/testify/require"
)

// runMachine starts m and returns a function that stops it and reports
// Run's result.
func runMachine(t *testing.T, m *sched.Machine) (stop func() error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()
	return func() error {
		cancel()
		return <-done
	}
}

func waitAll(t *testing.T, m *sched.Machine) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.Wait(ctx); err != nil {
		t.Fatalf("threads still live: %d (%v)", m.Live(), err)
	}
}

func TestMachineRunYielding(t *testing.T) {
	skipRace(t)
	m := sched.NewMachine(sched.WithCPUs(2))
	const threads, rounds = 6, 50
	var steps atomix.Int64
	var ths []*sched.Thread
	for i := range threads {
		ths = append(ths, m.CreateThread("yielder", func(th *sched.Thread) {
			for range rounds {
				steps.Add(1)
				th.Yield()
			}
		}, sched.WithPriority(i%3+4)))
	}
	stop := runMachine(t, m)
	waitAll(t, m)
	require.NoError(t, stop())

	require.Equal(t, int64(threads*rounds), steps.Load())
	for _, th := range ths {
		require.Equal(t, sched.Dead, th.State())
	}
	var switches uint64
	for i := range m.NumCPU() {
		switches += m.CPU(i).Switches()
	}
	require.GreaterOrEqual(t, switches, uint64(threads))
}

func TestMachineTickPreempts(t *testing.T) {
	skipRace(t)
	m := sched.NewMachine(sched.WithCPUs(1), sched.WithTick(time.Millisecond))
	var spinner, other atomix.Int64
	deadline := time.Now().Add(5 * time.Second)
	m.CreateThread("spinner", func(th *sched.Thread) {
		// Runs until the other thread has had the CPU, which only the
		// tick can arrange.
		for other.Load() == 0 && time.Now().Before(deadline) {
			spinner.Add(1)
			th.Check()
		}
	}, sched.WithPriority(6))
	m.CreateThread("other", func(*sched.Thread) {
		other.Add(1)
	}, sched.WithPriority(5))

	stop := runMachine(t, m)
	waitAll(t, m)
	require.NoError(t, stop())
	require.Equal(t, int64(1), other.Load())
	require.Positive(t, spinner.Load())
}

func TestMachineMigratesRunningThread(t *testing.T) {
	skipRace(t)
	m := sched.NewMachine(sched.WithCPUs(2))
	var seen [2]atomix.Int64
	m.CreateThread("mover", func(th *sched.Thread) {
		seen[th.CPU()].Add(1)
		m.SetAffinity(th, 1)
		th.Yield()
		seen[th.CPU()].Add(1)
	}, sched.OnCPU(0))

	stop := runMachine(t, m)
	waitAll(t, m)
	require.NoError(t, stop())
	require.Equal(t, int64(1), seen[0].Load())
	require.Equal(t, int64(1), seen[1].Load())
	require.Equal(t, uint64(1), m.CPU(0).Migrations())
}

func TestWaitQueueHandoff(t *testing.T) {
	skipRace(t)
	m := sched.NewMachine(sched.WithCPUs(2))
	var q sched.WaitQueue
	var ready atomix.Bool
	var woken atomix.Int64
	const consumers = 4
	for i := range consumers {
		m.CreateThread("consumer", func(th *sched.Thread) {
			for !ready.Load() {
				q.SleepUnless(th, ready.Load)
			}
			woken.Add(1)
		}, sched.OnCPU(i%2))
	}
	m.CreateThread("producer", func(th *sched.Thread) {
		for range 10 {
			th.Yield()
		}
		ready.Store(true)
		q.WakeAll()
	}, sched.OnCPU(1), sched.WithPriority(1))

	stop := runMachine(t, m)
	waitAll(t, m)
	require.NoError(t, stop())
	require.Equal(t, int64(consumers), woken.Load())
}

func TestWaitQueueEmpty(t *testing.T) {
	m := newMachine(t, 1)
	var q sched.WaitQueue
	if q.WakeOne() {
		t.Fatal("woke a thread on an empty queue")
	}
	require.Equal(t, 0, q.WakeAll())

	a := m.CreateThread("a", noop)
	q.SleepUnless(a, func() bool { return true })
	require.Equal(t, sched.Runnable, a.State(), "satisfied condition must not park")
}

func TestWaitTimesOut(t *testing.T) {
	m := newMachine(t, 1)
	m.CreateThread("never-run", noop)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, m.Wait(ctx), context.DeadlineExceeded)
}

func TestRunTwicePanics(t *testing.T) {
	skipRace(t)
	m := sched.NewMachine(sched.WithCPUs(1))
	stop := runMachine(t, m)
	defer stop()
	// Let the first Run claim the machine.
	time.Sleep(10 * time.Millisecond)
	require.Panics(t, func() { _ = m.Run(context.Background()) })
}
