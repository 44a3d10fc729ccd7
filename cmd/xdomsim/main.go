// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command xdomsim boots a simulated machine with an app domain and a block
// driver domain, submits batches of block requests across the boundary,
// crashes the driver once and reports what happened.
//
// Usage:
//
//	xdomsim [-config xdom.toml] [-level debug]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"code.hybscloud.com/xdom"
	"code.hybscloud.com/xdom/config"
	"code.hybscloud.com/xdom/rref"
	"code.hybscloud.com/xdom/sched"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	path := flag.String("config", "", "TOML config file")
	level := flag.String("level", "", "log level, overrides the config")
	flag.Parse()

	cfg, err := loadConfig(*path, *level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "xdomsim:", err)
		os.Exit(2)
	}
	lvl, _ := cfg.Level()
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(lvl).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	r, err := run(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("xdomsim: failed")
		os.Exit(1)
	}
	r.print(os.Stdout)
}

func loadConfig(path, level string) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
	}
	if level != "" {
		cfg.LogLevel = level
	}
	return cfg, cfg.Validate()
}

// report is what run observed.
type report struct {
	progress
	reads   int
	writes  int
	heap    rref.Stats
	domains []domainReport
	cpus    []cpuReport
}

type domainReport struct {
	name string
	xdom.DomainStats
}

type cpuReport struct {
	id         int
	switches   uint64
	migrations uint64
}

func run(ctx context.Context, cfg config.Config, log zerolog.Logger) (report, error) {
	reg := rref.NewRegistry()
	rref.RegisterDriverTypes(reg)
	heap := rref.NewHeap(cfg.HeapOptions()...)
	heap.Init(reg)

	m := sched.NewMachine(cfg.MachineOptions(log)...)
	sys := xdom.NewSystem(heap, m, xdom.WithLogger(log))
	app, blk := sys.NewDomain("app"), sys.NewDomain("blk")

	w := &workload{
		log:     log,
		sys:     sys,
		app:     app,
		proxy:   sys.Connect(app, blk),
		dev:     newBlockDevice(heap, blk.ID()),
		batches: cfg.Demo.Batches,
		batch:   cfg.Demo.Batch,
		crashAt: cfg.Demo.CrashAt,
	}
	done := make(chan progress, 1)
	w.th = sys.Spawn(app, "submit", func(th *sched.Thread) {
		done <- xdom.Exec(th, xdom.Loop(progress{}, w.step))
	}, sched.OnCPU(0))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return m.Run(gctx) })
	g.Go(func() error {
		defer cancel()
		return m.Wait(gctx)
	})
	if err := g.Wait(); err != nil {
		return report{}, err
	}

	p := <-done
	r := report{
		progress: p,
		reads:    w.dev.reads,
		writes:   w.dev.writes,
	}
	// What stays live afterwards was leaked by aborted calls.
	w.dev.disk.Drop()
	r.heap = heap.Stats()
	for _, d := range sys.Domains() {
		r.domains = append(r.domains, domainReport{name: d.Name(), DomainStats: d.Stats()})
	}
	for i := range m.NumCPU() {
		c := m.CPU(i)
		r.cpus = append(r.cpus, cpuReport{id: c.ID(), switches: c.Switches(), migrations: c.Migrations()})
	}
	return r, nil
}

func (r report) print(out io.Writer) {
	fmt.Fprintf(out, "batches   %d completed, %d aborted, %d requests served, %d mismatched\n",
		r.round-r.aborted, r.aborted, r.served, r.mismatched)
	fmt.Fprintf(out, "driver    %d reads, %d writes\n", r.reads, r.writes)
	fmt.Fprintf(out, "heap      %d allocs, %d deallocs, %d live, %d bytes\n",
		r.heap.Allocs, r.heap.Deallocs, r.heap.Live, r.heap.Bytes)
	for _, d := range r.domains {
		fmt.Fprintf(out, "domain    %-4s calls=%d aborts=%d leaked=%d restarts=%d crashed=%t\n",
			d.name, d.Calls, d.Aborts, d.Leaked, d.Restarts, d.Crashed)
	}
	for _, c := range r.cpus {
		fmt.Fprintf(out, "cpu%-6d switches=%d migrations=%d\n", c.id, c.switches, c.migrations)
	}
}
