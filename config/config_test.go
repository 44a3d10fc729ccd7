// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"code.hybscloud.com/xdom/config"
	"code.hybscloud.com/xdom/rref"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "xdom.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultValid(t *testing.T) {
	require.NoError(t, config.Default().Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := write(t, `
cpus = 4
heap-bytes = 1048576
tick = "250us"
log-level = "debug"

[demo]
batch = 512
crash-at = -1
`)
	got, err := config.Load(path)
	require.NoError(t, err)

	want := config.Default()
	want.CPUs = 4
	want.HeapBytes = 1 << 20
	want.Tick = 250 * time.Microsecond
	want.LogLevel = "debug"
	want.Demo.Batch = rref.BatchMedium
	want.Demo.CrashAt = -1
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Load mismatch (-want +got):\n%s", diff)
	}

	lvl, err := got.Level()
	require.NoError(t, err)
	require.Equal(t, zerolog.DebugLevel, lvl)
	require.Len(t, got.MachineOptions(zerolog.Nop()), 4)
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	_, err := config.Load(write(t, "cpu = 4\n"))
	require.ErrorIs(t, err, config.ErrInvalid)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadParseError(t *testing.T) {
	_, err := config.Load(write(t, "cpus = = 2\n"))
	require.Error(t, err)
	require.NotErrorIs(t, err, config.ErrInvalid)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		edit func(*config.Config)
	}{
		{"zero cpus", func(c *config.Config) { c.CPUs = 0 }},
		{"negative tick", func(c *config.Config) { c.Tick = -time.Second }},
		{"capacity not power of two", func(c *config.Config) { c.RebalanceCapacity = 100 }},
		{"capacity too small", func(c *config.Config) { c.RebalanceCapacity = 1 }},
		{"negative batches", func(c *config.Config) { c.Demo.Batches = -1 }},
		{"empty batch", func(c *config.Config) { c.Demo.Batch = 0 }},
		{"batch too large", func(c *config.Config) { c.Demo.Batch = rref.BatchLarge + 1 }},
		{"unknown level", func(c *config.Config) { c.LogLevel = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := config.Default()
			tt.edit(&c)
			require.ErrorIs(t, c.Validate(), config.ErrInvalid)
		})
	}
}
