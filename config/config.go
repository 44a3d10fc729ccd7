// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config loads the TOML settings for an xdom machine.
package config

import (
	"errors"
	"fmt"
	"math/bits"
	"os"
	"time"

	"code.hybscloud.com/xdom/rref"
	"code.hybscloud.com/xdom/sched"
	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config describes one machine and its demo workload.
type Config struct {
	CPUs              int           `toml:"cpus"`
	HeapBytes         uint64        `toml:"heap-bytes"`
	Tick              time.Duration `toml:"tick"`
	RebalanceCapacity int           `toml:"rebalance-capacity"`
	LogLevel          string        `toml:"log-level"`
	Demo              Demo          `toml:"demo"`
}

// Demo sizes the block request batches the app domain submits.
type Demo struct {
	Batches int `toml:"batches"`
	Batch   int `toml:"batch"`
	// CrashAt is the batch whose call panics in the driver; negative disables it.
	CrashAt int `toml:"crash-at"`
}

// Default returns the settings used when no file is given.
// A zero HeapBytes means no budget.
func Default() Config {
	return Config{
		CPUs:              2,
		Tick:              time.Millisecond,
		RebalanceCapacity: sched.DefaultRebalanceCapacity,
		LogLevel:          "info",
		Demo: Demo{
			Batches: 8,
			Batch:   rref.BatchSmall,
			CrashAt: 3,
		},
	}
}

// Load reads path over Default and validates the result.
func Load(path string) (Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("config: cannot read %s: %w", path, err)
	}
	md, err := toml.Decode(string(data), &c)
	if err != nil {
		return c, fmt.Errorf("config: parse error in %s: %w", path, err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return c, fmt.Errorf("%w: unknown key %q in %s", ErrInvalid, undec[0].String(), path)
	}
	return c, c.Validate()
}

// Validate reports the first setting the machine cannot run with.
func (c Config) Validate() error {
	switch {
	case c.CPUs < 1:
		return fmt.Errorf("%w: cpus must be positive, got %d", ErrInvalid, c.CPUs)
	case c.Tick < 0:
		return fmt.Errorf("%w: tick must not be negative, got %s", ErrInvalid, c.Tick)
	case c.RebalanceCapacity < 2 || bits.OnesCount(uint(c.RebalanceCapacity)) != 1:
		return fmt.Errorf("%w: rebalance-capacity must be a power of two >= 2, got %d", ErrInvalid, c.RebalanceCapacity)
	case c.Demo.Batches < 0:
		return fmt.Errorf("%w: demo.batches must not be negative, got %d", ErrInvalid, c.Demo.Batches)
	case c.Demo.Batch < 1 || c.Demo.Batch > rref.BatchLarge:
		return fmt.Errorf("%w: demo.batch must be in [1, %d], got %d", ErrInvalid, rref.BatchLarge, c.Demo.Batch)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (zerolog.Level, error) {
	l, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("%w: log-level: %w", ErrInvalid, err)
	}
	return l, nil
}

// MachineOptions maps the settings onto sched options.
func (c Config) MachineOptions(log zerolog.Logger) []sched.Option {
	return []sched.Option{
		sched.WithCPUs(c.CPUs),
		sched.WithTick(c.Tick),
		sched.WithRebalanceCapacity(c.RebalanceCapacity),
		sched.WithLogger(log),
	}
}

// HeapOptions maps the settings onto rref heap options.
func (c Config) HeapOptions() []rref.HeapOption {
	return []rref.HeapOption{rref.WithBudget(c.HeapBytes)}
}
