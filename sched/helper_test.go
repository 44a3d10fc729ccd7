// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sched_test

import (
	"bytes"
	"testing"

	"code.hybscloud.com/xdom/sched"
	"github.com/rs/zerolog"
)

// counting records every switch it is asked to perform.
type counting struct {
	n     int
	pairs [][2]sched.ThreadID
}

func (s *counting) Switch(_ *sched.CPU, prev, next *sched.Thread) {
	s.n++
	s.pairs = append(s.pairs, [2]sched.ThreadID{prev.ID(), next.ID()})
}

// newMachine returns a machine whose Schedule calls only make decisions.
func newMachine(t testing.TB, ncpu int, opts ...sched.Option) *sched.Machine {
	t.Helper()
	opts = append([]sched.Option{sched.WithCPUs(ncpu), sched.WithSwitcher(sched.Bookkeeping{})}, opts...)
	return sched.NewMachine(opts...)
}

// logBuffer returns a JSON logger writing into the returned buffer.
func logBuffer() (zerolog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return zerolog.New(&buf), &buf
}

func noop(*sched.Thread) {}
